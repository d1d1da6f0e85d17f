package background

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/robfig/cron/v3"
)

// RuleExecutor runs a single settlement rule.
type RuleExecutor interface {
	Execute(ctx context.Context, req domain.ExecuteRequest) (*domain.ExecuteResult, error)
}

type scheduledRule struct {
	entryID   cron.EntryID
	signature string
}

const defaultStoreTimeout = 3 * time.Second

// ScheduleRunner fires enabled schedule rules on their cron expressions. The
// rule set is reloaded periodically so edits take effect without a restart.
type ScheduleRunner struct {
	// StoreTimeout bounds each reload query.
	StoreTimeout time.Duration

	rules          domain.SettlementRuleRepository
	executor       RuleExecutor
	balances       domain.BalanceReader
	reloadInterval time.Duration
	logger         *slog.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]scheduledRule
}

func NewScheduleRunner(
	rules domain.SettlementRuleRepository,
	executor RuleExecutor,
	balances domain.BalanceReader,
	reloadInterval time.Duration,
	logger *slog.Logger,
) *ScheduleRunner {
	if reloadInterval <= 0 {
		reloadInterval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleRunner{
		StoreTimeout:   defaultStoreTimeout,
		rules:          rules,
		executor:       executor,
		balances:       balances,
		reloadInterval: reloadInterval,
		logger:         logger.With("component", "schedule_runner"),
		cron:           cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		entries:        make(map[string]scheduledRule),
	}
}

// Start blocks until ctx is done, then waits for running jobs to finish.
func (r *ScheduleRunner) Start(ctx context.Context) {
	if err := r.Reload(ctx); err != nil {
		r.logger.Error("initial schedule load failed", "error", err)
	}
	r.cron.Start()

	ticker := time.NewTicker(r.reloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-r.cron.Stop().Done()
			return
		case <-ticker.C:
			if err := r.Reload(ctx); err != nil {
				r.logger.Warn("schedule reload failed", "error", err)
			}
		}
	}
}

// Reload syncs cron entries with the enabled schedule rules in the store.
func (r *ScheduleRunner) Reload(ctx context.Context) error {
	timeout := r.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	storeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	rules, err := r.rules.ListEnabledByTrigger(storeCtx, domain.TriggerSchedule)
	if err != nil {
		return fmt.Errorf("%w: list schedule rules: %w", domain.ErrStoreError, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		cfg, ok := rule.TriggerConfig.(domain.ScheduleConfig)
		if !ok {
			continue
		}
		seen[rule.ID] = struct{}{}

		sig := signature(rule, cfg)
		if current, ok := r.entries[rule.ID]; ok {
			if current.signature == sig {
				continue
			}
			r.cron.Remove(current.entryID)
			delete(r.entries, rule.ID)
		}

		schedule, err := scheduleFor(cfg)
		if err != nil {
			r.logger.Warn("skipping rule with unusable schedule", "rule_id", rule.ID, "error", err)
			continue
		}
		rule := rule
		id := r.cron.Schedule(schedule, cron.FuncJob(func() { r.fire(ctx, rule) }))
		r.entries[rule.ID] = scheduledRule{entryID: id, signature: sig}
	}

	for ruleID, entry := range r.entries {
		if _, ok := seen[ruleID]; !ok {
			r.cron.Remove(entry.entryID)
			delete(r.entries, ruleID)
		}
	}
	return nil
}

// Scheduled returns the number of rules with a live cron entry.
func (r *ScheduleRunner) Scheduled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *ScheduleRunner) fire(ctx context.Context, rule *domain.SettlementRule) {
	logger := r.logger.With("tenant_id", rule.TenantID, "rule_id", rule.ID)
	if rule.WalletID == nil {
		logger.Warn("schedule rule has no wallet scope, skipping")
		return
	}
	if r.balances == nil {
		logger.Warn("no wallet service configured, skipping scheduled settlement")
		return
	}

	balance, currency, err := r.balances.GetWalletBalance(ctx, rule.TenantID, *rule.WalletID)
	if err != nil {
		logger.Error("failed to read wallet balance", "wallet_id", *rule.WalletID, "error", err)
		return
	}
	if balance <= 0 {
		logger.Info("wallet balance is empty, nothing to settle", "wallet_id", *rule.WalletID)
		return
	}

	result, err := r.executor.Execute(ctx, domain.ExecuteRequest{
		TenantID:      rule.TenantID,
		RuleID:        rule.ID,
		TriggerReason: domain.TriggerReasonScheduled,
		TriggerContext: map[string]any{
			"wallet_id":       *rule.WalletID,
			"current_balance": balance,
			"currency":        currency,
		},
		Amount:   &balance,
		Currency: currency,
	})
	if err != nil {
		logger.Warn("scheduled settlement rejected", "error", err)
		return
	}
	logger.Info("scheduled settlement finished",
		"execution_id", result.ExecutionID,
		"status", result.Status,
		"error_code", result.ErrorCode)
}

func scheduleFor(cfg domain.ScheduleConfig) (cron.Schedule, error) {
	schedule, err := domain.ParseCron(cfg.Cron)
	if err != nil {
		return nil, err
	}
	if cfg.Timezone == "" {
		return schedule, nil
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	if spec, ok := schedule.(*cron.SpecSchedule); ok {
		spec.Location = loc
	}
	return schedule, nil
}

func signature(rule *domain.SettlementRule, cfg domain.ScheduleConfig) string {
	wallet := ""
	if rule.WalletID != nil {
		wallet = *rule.WalletID
	}
	return strings.Join([]string{strings.TrimSpace(cfg.Cron), cfg.Timezone, wallet, rule.UpdatedAt.UTC().Format(time.RFC3339Nano)}, "|")
}
