package setup

import (
	"github.com/LavaJover/shvark-settlement-service/internal/client"
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	exchangeproviders "github.com/LavaJover/shvark-settlement-service/internal/infrastructure/exchange_providers"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/redis"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/destination"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/execution"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/fx"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/trigger"
)

type UseCases struct {
	Rates        *fx.RateResolver
	Quotes       *fx.QuoteService
	MemoryQuotes *fx.MemoryQuoteStore // nil when quotes live in redis
	Evaluator    *trigger.Evaluator
	Orchestrator *execution.Orchestrator
	Rules        usecase.RuleUsecase
	Balances     domain.BalanceReader
}

func InitializeUseCases(deps *Dependencies) *UseCases {
	cfg := deps.Config
	logger := deps.Logger

	var source domain.LiveRateSource
	if cfg.FX.LiveSourceURL != "" {
		source = exchangeproviders.NewHTTPRateProvider(exchangeproviders.HTTPRateProviderConfig{
			BaseURL:        cfg.FX.LiveSourceURL,
			Timeout:        cfg.FX.FetchTimeout,
			RequestsPerMin: cfg.FX.RequestsPerMin,
		}, logger)
	}
	rates := fx.NewRateResolver(source, fx.ResolverConfig{
		CacheTTL:     cfg.FX.CacheTTL,
		FetchTimeout: cfg.FX.FetchTimeout,
	}, logger)
	rates.Metrics = deps.Metrics

	var (
		store        domain.QuoteStore
		memoryQuotes *fx.MemoryQuoteStore
	)
	if deps.Redis != nil {
		store = redis.NewQuoteStore(deps.Redis)
	} else {
		memoryQuotes = fx.NewMemoryQuoteStore()
		store = memoryQuotes
	}
	quotes := fx.NewQuoteService(rates, store, fx.QuoteConfig{
		QuoteTTL:      cfg.FX.QuoteTTL,
		LockTTL:       cfg.FX.LockTTL,
		JitterPct:     cfg.FX.JitterPct,
		DefaultFeePct: cfg.FX.DefaultFeePct,
		CorridorFees:  cfg.FX.CorridorFees,
	}, logger)
	quotes.Metrics = deps.Metrics

	evaluator := trigger.NewEvaluator(deps.Repositories.Rules, cfg.Execution.StoreTimeout, logger)
	evaluator.Metrics = deps.Metrics

	execDeps := execution.Dependencies{
		Rules:      deps.Repositories.Rules,
		Executions: deps.Repositories.Executions,
		Dispatcher: client.NewHTTPRailsClient(cfg.Rails.BaseURL, cfg.Rails.APIKey, cfg.Rails.Timeout),
		Evaluator:  evaluator,
		Quotes:     quotes,
	}
	if deps.Publisher != nil {
		execDeps.Events = deps.Publisher
	}
	orchestrator := execution.NewOrchestrator(execDeps, execution.Config{
		StoreTimeout:    cfg.Execution.StoreTimeout,
		DispatchTimeout: cfg.Execution.DispatchTimeout,
	}, logger)
	orchestrator.Metrics = deps.Metrics

	var balances domain.BalanceReader
	if cfg.WalletService.BaseURL != "" {
		balances = client.NewHTTPWalletClient(cfg.WalletService.BaseURL, cfg.WalletService.Timeout)
	}

	return &UseCases{
		Rates:        rates,
		Quotes:       quotes,
		MemoryQuotes: memoryQuotes,
		Evaluator:    evaluator,
		Orchestrator: orchestrator,
		Rules: usecase.NewDefaultRuleUsecase(
			deps.Repositories.Rules,
			deps.Repositories.Executions,
			destination.NewRegistry(),
			cfg.Execution.StoreTimeout,
			logger,
		),
		Balances: balances,
	}
}
