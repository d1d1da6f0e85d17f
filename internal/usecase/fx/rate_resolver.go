package fx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
)

const (
	BaseCurrency     = "USD"
	BaselineProvider = "baseline"

	defaultCacheTTL     = 5 * time.Minute
	defaultFetchTimeout = 5 * time.Second
)

// baselineRates are USD-quoted rates used until a live source answers.
var baselineRates = map[string]float64{
	"BRL":  5.85,
	"MXN":  17.25,
	"EUR":  0.92,
	"GBP":  0.79,
	"COP":  3950,
	"ARS":  875,
	"CLP":  920,
	"PEN":  3.72,
	"USDC": 1.0,
}

func pairKey(from, to string) string {
	return from + "-" + to
}

// RateResolver resolves a rate for an ordered currency pair: direct entry,
// then inverse of the reverse entry, then cross via the base currency.
type RateResolver struct {
	base         string
	source       domain.LiveRateSource
	cacheTTL     time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger

	mu        sync.RWMutex
	table     map[string]float64
	provider  string
	fetchedAt time.Time

	now     func() time.Time
	Metrics *metrics.SettlementMetrics
}

type ResolverConfig struct {
	CacheTTL     time.Duration
	FetchTimeout time.Duration
}

// NewRateResolver seeds the table with the baseline rates. source may be nil.
func NewRateResolver(source domain.LiveRateSource, cfg ResolverConfig, logger *slog.Logger) *RateResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	r := &RateResolver{
		base:         BaseCurrency,
		source:       source,
		cacheTTL:     cfg.CacheTTL,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger,
		table:        make(map[string]float64, len(baselineRates)),
		provider:     BaselineProvider,
		now:          time.Now,
	}
	for currency, rate := range baselineRates {
		r.table[pairKey(r.base, currency)] = rate
	}
	return r
}

func (r *RateResolver) Base() string {
	return r.base
}

// Provider is the tag of whoever produced the current table.
func (r *RateResolver) Provider() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.provider
}

func (r *RateResolver) SetRate(from, to string, rate float64) error {
	if rate <= 0 {
		return domain.Validationf("rate for %s must be positive", pairKey(from, to))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[pairKey(normalize(from), normalize(to))] = rate
	return nil
}

func (r *RateResolver) RemoveRate(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.table, pairKey(normalize(from), normalize(to)))
}

// Rate returns how many units of to one unit of from buys.
func (r *RateResolver) Rate(from, to string) (float64, error) {
	from, to = normalize(from), normalize(to)
	if from == to {
		return 1, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if rate, ok := r.lookup(from, to); ok {
		return rate, nil
	}

	toBase, okFrom := r.lookup(from, r.base)
	fromBase, okTo := r.lookup(r.base, to)
	if !okFrom || !okTo {
		return 0, fmt.Errorf("%w for %s", domain.ErrRateUnavailable, pairKey(from, to))
	}
	return toBase * fromBase, nil
}

// lookup tries the direct entry then the inverse of the reverse entry.
// Caller holds r.mu.
func (r *RateResolver) lookup(from, to string) (float64, bool) {
	if from == to {
		return 1, true
	}
	if rate, ok := r.table[pairKey(from, to)]; ok && rate > 0 {
		return rate, true
	}
	if rate, ok := r.table[pairKey(to, from)]; ok && rate > 0 {
		return 1 / rate, true
	}
	return 0, false
}

// Refresh pulls base-quoted rates from the live source unless the cached
// table is younger than the cache TTL. On failure the current table, last
// known good or baseline, stays in place.
func (r *RateResolver) Refresh(ctx context.Context) error {
	if r.source == nil {
		return nil
	}

	r.mu.RLock()
	fresh := !r.fetchedAt.IsZero() && r.now().Sub(r.fetchedAt) < r.cacheTTL
	r.mu.RUnlock()
	if fresh {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	rates, err := r.source.FetchRates(fetchCtx, r.base)
	if err != nil {
		r.Metrics.RecordRateRefresh(r.source.GetName(), false)
		r.logger.Warn("live rate refresh failed, keeping current table",
			"provider", r.source.GetName(),
			"current_provider", r.Provider(),
			"error", err)
		return fmt.Errorf("%w: refresh from %s: %v", domain.ErrRateUnavailable, r.source.GetName(), err)
	}

	r.mu.Lock()
	updated := 0
	for currency, rate := range rates {
		currency = normalize(currency)
		if rate <= 0 || currency == r.base {
			continue
		}
		r.table[pairKey(r.base, currency)] = rate
		updated++
	}
	r.provider = r.source.GetName()
	r.fetchedAt = r.now()
	r.mu.Unlock()

	r.Metrics.RecordRateRefresh(r.source.GetName(), true)
	r.logger.Debug("live rates refreshed", "provider", r.source.GetName(), "rates", updated)
	return nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
