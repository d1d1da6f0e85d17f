package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
)

const (
	DefaultQuoteTTL  = 60 * time.Second
	DefaultLockTTL   = 30 * time.Second
	DefaultJitterPct = 0.1
	DefaultFeePct    = 0.75

	lockPrefix = "lock_"

	amountPlaces  = 2
	ratePlaces    = 8
	inversePlaces = 12
)

// DefaultCorridorFees are percentage fees keyed by corridor.
var DefaultCorridorFees = map[string]float64{
	"USD-BRL":  0.5,
	"USD-MXN":  0.4,
	"USD-COP":  0.8,
	"USD-ARS":  1.2,
	"USD-CLP":  0.8,
	"USD-PEN":  0.8,
	"USD-EUR":  0.25,
	"USD-GBP":  0.25,
	"USD-USDC": 0.1,
	"USDC-USD": 0.1,
}

type QuoteConfig struct {
	QuoteTTL      time.Duration
	LockTTL       time.Duration
	JitterPct     float64
	DefaultFeePct float64
	CorridorFees  map[string]float64
	StoreTimeout  time.Duration
}

type QuoteService struct {
	rates  *RateResolver
	store  domain.QuoteStore
	cfg    QuoteConfig
	logger *slog.Logger

	now    func() time.Time
	random func() float64

	Metrics *metrics.SettlementMetrics
}

func NewQuoteService(rates *RateResolver, store domain.QuoteStore, cfg QuoteConfig, logger *slog.Logger) *QuoteService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = DefaultQuoteTTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.JitterPct < 0 {
		cfg.JitterPct = 0
	}
	if cfg.DefaultFeePct <= 0 {
		cfg.DefaultFeePct = DefaultFeePct
	}
	if cfg.CorridorFees == nil {
		cfg.CorridorFees = DefaultCorridorFees
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	return &QuoteService{
		rates:  rates,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		random: rand.Float64,
	}
}

// FeePercentage returns the corridor fee, or the default when unconfigured.
func (s *QuoteService) FeePercentage(source, destination string) float64 {
	if pct, ok := s.cfg.CorridorFees[domain.Corridor(source, destination)]; ok {
		return pct
	}
	return s.cfg.DefaultFeePct
}

// GetQuote prices a conversion. SourceAmount wins when both amounts are set;
// with neither, the quote carries only the rate and fee percentage.
func (s *QuoteService) GetQuote(ctx context.Context, req domain.QuoteRequest) (*domain.FXQuote, error) {
	source, destination := normalize(req.SourceCurrency), normalize(req.DestinationCurrency)
	if err := validatePair(source, destination); err != nil {
		return nil, err
	}
	if req.SourceAmount != nil && *req.SourceAmount <= 0 {
		return nil, domain.Validationf("source amount must be positive")
	}
	if req.DestinationAmount != nil && *req.DestinationAmount <= 0 {
		return nil, domain.Validationf("destination amount must be positive")
	}

	resolved, err := s.rates.Rate(source, destination)
	if err != nil {
		s.Metrics.RecordError("fx", string(domain.CodeRateUnavailable))
		return nil, err
	}

	rate := decimal.NewFromFloat(s.jitter(resolved)).Round(ratePlaces)
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w for %s: rate rounds to zero", domain.ErrRateUnavailable, domain.Corridor(source, destination))
	}
	inverse := decimal.NewFromInt(1).DivRound(rate, inversePlaces)
	feePct := s.FeePercentage(source, destination)
	feeRatio := decimal.NewFromFloat(feePct).Div(decimal.NewFromInt(100))

	idGenerator, err := nanoid.Standard(21)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	quote := &domain.FXQuote{
		ID:                  "q_" + idGenerator(),
		SourceCurrency:      source,
		DestinationCurrency: destination,
		Rate:                rate.InexactFloat64(),
		InverseRate:         inverse.InexactFloat64(),
		FeePercentage:       feePct,
		Corridor:            domain.Corridor(source, destination),
		Provider:            s.rates.Provider(),
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.cfg.QuoteTTL),
	}

	switch {
	case req.SourceAmount != nil:
		src := decimal.NewFromFloat(*req.SourceAmount)
		fee := src.Mul(feeRatio).Round(amountPlaces)
		dst := src.Sub(fee).Mul(rate).Round(amountPlaces)
		quote.SourceAmount = floatPtr(src.Round(amountPlaces))
		quote.DestinationAmount = floatPtr(dst)
		quote.TotalFee = fee.InexactFloat64()
	case req.DestinationAmount != nil:
		if !feeRatio.LessThan(decimal.NewFromInt(1)) {
			return nil, domain.Validationf("corridor %s fee of %.2f%% leaves nothing to convert", quote.Corridor, feePct)
		}
		dst := decimal.NewFromFloat(*req.DestinationAmount)
		src := dst.Div(rate).Div(decimal.NewFromInt(1).Sub(feeRatio)).Round(amountPlaces)
		fee := src.Mul(feeRatio).Round(amountPlaces)
		quote.SourceAmount = floatPtr(src)
		quote.DestinationAmount = floatPtr(dst.Round(amountPlaces))
		quote.TotalFee = fee.InexactFloat64()
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.SaveQuote(storeCtx, quote); err != nil {
		return nil, fmt.Errorf("save quote: %w", err)
	}

	s.Metrics.RecordQuote(quote.Corridor, quote.Provider, source, quote.TotalFee)
	return quote, nil
}

// LockQuote guarantees a stored quote's rate and fee for the lock window.
// Locking the same quote again returns the existing lock while it is valid;
// once that lock is consumed the quote cannot be locked again.
func (s *QuoteService) LockQuote(ctx context.Context, quoteID string) (*domain.LockedQuote, error) {
	if quoteID == "" {
		return nil, domain.Validationf("quote id is required")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	quote, err := s.store.GetQuote(storeCtx, quoteID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if quote.Expired(now) {
		s.Metrics.RecordLock(quote.Corridor, "expired")
		return nil, fmt.Errorf("%w: quote %s expired at %s", domain.ErrQuoteExpired, quoteID, quote.ExpiresAt.Format(time.RFC3339))
	}

	lock := &domain.LockedQuote{
		FXQuote:       *quote,
		LockID:        lockPrefix + quote.ID,
		LockedAt:      now,
		LockExpiresAt: now.Add(s.cfg.LockTTL),
	}
	stored, err := s.store.SaveLock(storeCtx, lock)
	if err != nil {
		return nil, fmt.Errorf("save lock: %w", err)
	}
	if stored.Consumed() {
		s.Metrics.RecordLock(quote.Corridor, "already_consumed")
		return nil, fmt.Errorf("%w: quote %s was already settled under %s", domain.ErrLockConsumed, quoteID, stored.LockID)
	}
	if stored.Expired(now) {
		s.Metrics.RecordLock(quote.Corridor, "expired")
		return nil, fmt.Errorf("%w: lock %s already used its window", domain.ErrQuoteExpired, stored.LockID)
	}

	outcome := "locked"
	if !stored.LockedAt.Equal(lock.LockedAt) {
		outcome = "reused"
	}
	s.Metrics.RecordLock(quote.Corridor, outcome)
	return stored, nil
}

// GetLock returns a lock that is still inside its window.
func (s *QuoteService) GetLock(ctx context.Context, lockID string) (*domain.LockedQuote, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	lock, err := s.store.GetLock(storeCtx, lockID)
	if err != nil {
		return nil, err
	}
	if lock.Consumed() {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockConsumed, lockID)
	}
	if lock.Expired(s.now()) {
		return nil, fmt.Errorf("%w: lock %s expired", domain.ErrQuoteExpired, lockID)
	}
	return lock, nil
}

// ConsumeLock hands out a valid lock exactly once.
func (s *QuoteService) ConsumeLock(ctx context.Context, lockID string) (*domain.LockedQuote, error) {
	lock, err := s.GetLock(ctx, lockID)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	consumed, err := s.store.ConsumeLock(storeCtx, lockID, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLockConsumed, lockID)
		}
		return nil, err
	}
	s.Metrics.RecordLock(lock.Corridor, "consumed")
	return consumed, nil
}

// ToUSD converts into the base currency without fees or jitter.
func (s *QuoteService) ToUSD(amount float64, currency string) (float64, error) {
	rate, err := s.rates.Rate(normalize(currency), s.rates.Base())
	if err != nil {
		return 0, err
	}
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Round(amountPlaces).InexactFloat64(), nil
}

// CalculateConversion is the fee-inclusive projection of GetQuote, without
// jitter and without storing anything.
func (s *QuoteService) CalculateConversion(amount float64, source, destination string) (*domain.Conversion, error) {
	source, destination = normalize(source), normalize(destination)
	if err := validatePair(source, destination); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.Validationf("amount must be positive")
	}
	resolved, err := s.rates.Rate(source, destination)
	if err != nil {
		return nil, err
	}

	rate := decimal.NewFromFloat(resolved).Round(ratePlaces)
	feePct := s.FeePercentage(source, destination)
	src := decimal.NewFromFloat(amount)
	fee := src.Mul(decimal.NewFromFloat(feePct)).Div(decimal.NewFromInt(100)).Round(amountPlaces)

	return &domain.Conversion{
		SourceCurrency:      source,
		DestinationCurrency: destination,
		SourceAmount:        src.Round(amountPlaces).InexactFloat64(),
		Rate:                rate.InexactFloat64(),
		FeePercentage:       feePct,
		Fee:                 fee.InexactFloat64(),
		ConvertedAmount:     src.Sub(fee).Mul(rate).Round(amountPlaces).InexactFloat64(),
	}, nil
}

func (s *QuoteService) jitter(rate float64) float64 {
	if s.cfg.JitterPct == 0 {
		return rate
	}
	spread := (s.random()*2 - 1) * s.cfg.JitterPct / 100
	return rate * (1 + spread)
}

func validatePair(source, destination string) error {
	if !domain.ValidCurrency(source) {
		return domain.Validationf("source currency %q is invalid", source)
	}
	if !domain.ValidCurrency(destination) {
		return domain.Validationf("destination currency %q is invalid", destination)
	}
	return nil
}

func floatPtr(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}
