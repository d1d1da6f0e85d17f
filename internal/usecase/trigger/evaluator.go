package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
)

const defaultStoreTimeout = 3 * time.Second

// Evaluator decides which enabled rules fire for a runtime context. It keeps
// no state between calls.
type Evaluator struct {
	rules        domain.SettlementRuleRepository
	storeTimeout time.Duration
	logger       *slog.Logger

	Metrics *metrics.SettlementMetrics
}

func NewEvaluator(rules domain.SettlementRuleRepository, storeTimeout time.Duration, logger *slog.Logger) *Evaluator {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		rules:        rules,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Evaluate returns every matching rule in ascending priority. A store failure
// yields a non-triggering result carrying the error text, never an error.
func (e *Evaluator) Evaluate(ctx context.Context, tc domain.TriggerContext) domain.EvaluationResult {
	if tc.TenantID == "" {
		return domain.EvaluationResult{Reason: "tenant_id is required"}
	}

	storeCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	enabled := true
	rules, err := e.rules.ListRules(storeCtx, tc.TenantID, domain.RuleFilter{
		Enabled:  &enabled,
		WalletID: tc.WalletID,
	})
	if err != nil {
		e.logger.Error("failed to load settlement rules",
			"tenant_id", tc.TenantID,
			"wallet_id", tc.WalletID,
			"error", err)
		e.Metrics.RecordError("evaluator", string(domain.CodeStoreError))
		return domain.EvaluationResult{Reason: fmt.Sprintf("failed to load rules: %v", err)}
	}
	if len(rules) == 0 {
		e.Metrics.RecordEvaluation(tc.TenantID, false, nil)
		return domain.EvaluationResult{Reason: "no enabled rules for tenant"}
	}

	var (
		matched []*domain.SettlementRule
		types   []string
		gated   int
	)
	for _, rule := range rules {
		if !rule.Enabled || !rule.AppliesToWallet(tc.WalletID) {
			continue
		}
		if !Matches(rule, tc) {
			continue
		}
		if !PassesMinimum(rule, tc) {
			gated++
			continue
		}
		matched = append(matched, rule)
		types = append(types, string(rule.TriggerType))
	}

	e.Metrics.RecordEvaluation(tc.TenantID, len(matched) > 0, types)

	if len(matched) == 0 {
		reason := fmt.Sprintf("no rule matched out of %d enabled", len(rules))
		if gated > 0 {
			reason = fmt.Sprintf("%s; %d below minimum amount", reason, gated)
		}
		return domain.EvaluationResult{Reason: reason}
	}

	e.logger.Debug("settlement rules triggered",
		"tenant_id", tc.TenantID,
		"wallet_id", tc.WalletID,
		"rules", len(matched))
	return domain.EvaluationResult{
		ShouldTrigger: true,
		Rules:         matched,
		Reason:        fmt.Sprintf("%d rule(s) matched", len(matched)),
	}
}

// Matches applies the trigger-type specific check. Manual and schedule rules
// never fire from a runtime context.
func Matches(rule *domain.SettlementRule, tc domain.TriggerContext) bool {
	switch cfg := rule.TriggerConfig.(type) {
	case domain.ThresholdConfig:
		return tc.CurrentBalance != nil &&
			tc.Currency != "" &&
			cfg.Currency == tc.Currency &&
			*tc.CurrentBalance >= cfg.Amount
	case domain.ImmediateConfig:
		return tc.TransferType != "" && slices.Contains(cfg.TransferTypes, tc.TransferType)
	case domain.ManualConfig, domain.ScheduleConfig:
		return false
	default:
		return false
	}
}

// PassesMinimum skips dust: a rule with a minimum amount only fires when the
// context balance reaches it. A minimum in another currency does not gate.
func PassesMinimum(rule *domain.SettlementRule, tc domain.TriggerContext) bool {
	if rule.MinimumAmount == nil || tc.CurrentBalance == nil {
		return true
	}
	if tc.Currency != "" && rule.MinimumAmount.Currency != tc.Currency {
		return true
	}
	return *tc.CurrentBalance >= rule.MinimumAmount.Amount
}
