package exchangeproviders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 5 * time.Second
	maxResponseBytes   = 1 << 20
	defaultRequestsMin = 30
)

// HTTPRateProvider fetches base-quoted rates from an open exchange-rate API
// of the form GET {base_url}/{BASE} -> {"result":"success","rates":{...}}.
type HTTPRateProvider struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

type HTTPRateProviderConfig struct {
	Name           string
	BaseURL        string
	Timeout        time.Duration
	RequestsPerMin int
}

type rateResponse struct {
	Result    string             `json:"result"`
	BaseCode  string             `json:"base_code"`
	Rates     map[string]float64 `json:"rates"`
	ErrorType string             `json:"error-type"`
}

func NewHTTPRateProvider(cfg HTTPRateProviderConfig, logger *slog.Logger) *HTTPRateProvider {
	if cfg.Name == "" {
		cfg.Name = "open-er-api"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = defaultRequestsMin
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &HTTPRateProvider{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMin)), 1),
		logger:  logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rates-" + cfg.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn("rate provider circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	return p
}

func (p *HTTPRateProvider) GetName() string {
	return p.name
}

// FetchRates returns the rates quoted against base. Calls are rate limited
// and short-circuited while the breaker is open.
func (p *HTTPRateProvider) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx, base)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s is currently unavailable (circuit breaker open): %w", p.name, err)
		}
		return nil, err
	}
	return result.(map[string]float64), nil
}

func (p *HTTPRateProvider) fetch(ctx context.Context, base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s", p.baseURL, strings.ToUpper(base))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get rates from %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API returned status: %d", p.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed rateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", p.name, err)
	}
	if parsed.Result != "success" {
		return nil, fmt.Errorf("%s returned result %q: %s", p.name, parsed.Result, parsed.ErrorType)
	}
	if !strings.EqualFold(parsed.BaseCode, base) {
		return nil, fmt.Errorf("%s answered for base %q, asked %q", p.name, parsed.BaseCode, base)
	}
	if len(parsed.Rates) == 0 {
		return nil, fmt.Errorf("%s returned no rates", p.name)
	}
	return parsed.Rates, nil
}
