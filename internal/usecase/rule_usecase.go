package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/destination"
	"github.com/google/uuid"
)

const (
	maxPageSize         = 500
	defaultStoreTimeout = 3 * time.Second
)

type RuleUsecase interface {
	CreateRule(ctx context.Context, rule *domain.SettlementRule) (*domain.SettlementRule, error)
	UpdateRule(ctx context.Context, tenantID, ruleID string, patch domain.RuleUpdate) (*domain.SettlementRule, error)
	DeleteRule(ctx context.Context, tenantID, ruleID string) error
	GetRule(ctx context.Context, tenantID, ruleID string) (*domain.SettlementRule, error)
	ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]*domain.SettlementRule, error)

	GetExecution(ctx context.Context, tenantID, executionID string) (*domain.RuleExecution, error)
	ListExecutions(ctx context.Context, tenantID string, filter domain.ExecutionFilter) ([]*domain.RuleExecution, error)
}

type DefaultRuleUsecase struct {
	rules        domain.SettlementRuleRepository
	executions   domain.RuleExecutionRepository
	destinations *destination.Registry
	storeTimeout time.Duration
	logger       *slog.Logger
}

func NewDefaultRuleUsecase(
	rules domain.SettlementRuleRepository,
	executions domain.RuleExecutionRepository,
	destinations *destination.Registry,
	storeTimeout time.Duration,
	logger *slog.Logger,
) *DefaultRuleUsecase {
	if destinations == nil {
		destinations = destination.NewRegistry()
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultRuleUsecase{
		rules:        rules,
		executions:   executions,
		destinations: destinations,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

func (uc *DefaultRuleUsecase) CreateRule(ctx context.Context, rule *domain.SettlementRule) (*domain.SettlementRule, error) {
	if rule == nil {
		return nil, domain.Validationf("rule is required")
	}

	created := *rule
	created.ID = uuid.New().String()
	created.Name = strings.TrimSpace(created.Name)
	if created.TriggerType == domain.TriggerManual && created.TriggerConfig == nil {
		created.TriggerConfig = domain.ManualConfig{}
	}
	if created.PriorityClass == "" {
		created.PriorityClass = domain.PriorityStandard
	}
	if created.Rail == "" {
		created.Rail = domain.RailAuto
	}
	if err := uc.validateRule(&created); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	if err := uc.rules.CreateRule(storeCtx, &created); err != nil {
		return nil, storeError("create rule", err)
	}

	uc.logger.Info("settlement rule created",
		"tenant_id", created.TenantID,
		"rule_id", created.ID,
		"trigger_type", created.TriggerType,
		"rail", created.Rail,
		"priority", created.Priority)
	return &created, nil
}

// UpdateRule applies a partial patch. The whole rule is re-validated, which
// covers trigger config and destination changes.
func (uc *DefaultRuleUsecase) UpdateRule(ctx context.Context, tenantID, ruleID string, patch domain.RuleUpdate) (*domain.SettlementRule, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	rule, err := uc.rules.GetRule(storeCtx, tenantID, ruleID)
	if err != nil {
		return nil, storeError("get rule", err)
	}

	applyRuleUpdate(rule, patch)
	if err := uc.validateRule(rule); err != nil {
		return nil, err
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := uc.rules.UpdateRule(storeCtx, rule); err != nil {
		return nil, storeError("update rule", err)
	}

	uc.logger.Info("settlement rule updated",
		"tenant_id", tenantID,
		"rule_id", ruleID,
		"trigger_changed", patch.TouchesTrigger(),
		"enabled", rule.Enabled)
	return rule, nil
}

func (uc *DefaultRuleUsecase) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	if tenantID == "" || ruleID == "" {
		return domain.Validationf("tenant_id and rule_id are required")
	}
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	if err := uc.rules.DeleteRule(storeCtx, tenantID, ruleID); err != nil {
		return storeError("delete rule", err)
	}
	uc.logger.Info("settlement rule deleted", "tenant_id", tenantID, "rule_id", ruleID)
	return nil
}

func (uc *DefaultRuleUsecase) GetRule(ctx context.Context, tenantID, ruleID string) (*domain.SettlementRule, error) {
	if tenantID == "" || ruleID == "" {
		return nil, domain.Validationf("tenant_id and rule_id are required")
	}
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	rule, err := uc.rules.GetRule(storeCtx, tenantID, ruleID)
	if err != nil {
		return nil, storeError("get rule", err)
	}
	return rule, nil
}

func (uc *DefaultRuleUsecase) ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]*domain.SettlementRule, error) {
	if tenantID == "" {
		return nil, domain.Validationf("tenant_id is required")
	}
	if filter.TriggerType != "" && !filter.TriggerType.Valid() {
		return nil, domain.Validationf("unknown trigger type %q", filter.TriggerType)
	}
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	rules, err := uc.rules.ListRules(storeCtx, tenantID, filter)
	if err != nil {
		return nil, storeError("list rules", err)
	}
	return rules, nil
}

func (uc *DefaultRuleUsecase) GetExecution(ctx context.Context, tenantID, executionID string) (*domain.RuleExecution, error) {
	if tenantID == "" || executionID == "" {
		return nil, domain.Validationf("tenant_id and execution_id are required")
	}
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	execution, err := uc.executions.GetExecution(storeCtx, tenantID, executionID)
	if err != nil {
		return nil, storeError("get execution", err)
	}
	return execution, nil
}

func (uc *DefaultRuleUsecase) ListExecutions(ctx context.Context, tenantID string, filter domain.ExecutionFilter) ([]*domain.RuleExecution, error) {
	if tenantID == "" {
		return nil, domain.Validationf("tenant_id is required")
	}
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	executions, err := uc.executions.ListExecutions(storeCtx, tenantID, filter)
	if err != nil {
		return nil, storeError("list executions", err)
	}
	return executions, nil
}

func (uc *DefaultRuleUsecase) validateRule(rule *domain.SettlementRule) error {
	if rule.TenantID == "" {
		return domain.Validationf("tenant_id is required")
	}
	if strings.TrimSpace(rule.Name) == "" {
		return domain.Validationf("rule name is required")
	}
	if rule.WalletID != nil && strings.TrimSpace(*rule.WalletID) == "" {
		return domain.Validationf("wallet_id must not be blank when set")
	}
	if err := domain.ValidateTrigger(rule.TriggerType, rule.TriggerConfig); err != nil {
		return err
	}
	if !rule.Rail.Valid() {
		return domain.Validationf("unknown rail %q", rule.Rail)
	}
	if !rule.PriorityClass.Valid() {
		return domain.Validationf("unknown priority class %q", rule.PriorityClass)
	}
	if err := validateBound("minimum_amount", rule.MinimumAmount); err != nil {
		return err
	}
	if err := validateBound("maximum_amount", rule.MaximumAmount); err != nil {
		return err
	}
	if rule.MinimumAmount != nil && rule.MaximumAmount != nil &&
		rule.MinimumAmount.Currency == rule.MaximumAmount.Currency &&
		rule.MinimumAmount.Amount > rule.MaximumAmount.Amount {
		return domain.Validationf("minimum_amount exceeds maximum_amount")
	}
	if rule.DestinationCurrency != "" && !domain.ValidCurrency(rule.DestinationCurrency) {
		return domain.Validationf("destination currency %q is invalid", rule.DestinationCurrency)
	}

	if rule.Destination != nil {
		if rule.Destination.Rail == "" {
			rule.Destination.Rail = rule.Rail
		}
		if rule.Rail != domain.RailAuto && rule.Destination.Rail != rule.Rail {
			return domain.Validationf("destination rail %s does not match rule rail %s", rule.Destination.Rail, rule.Rail)
		}
		if err := uc.destinations.Validate(rule.Destination); err != nil {
			return err
		}
	}
	return nil
}

func validateBound(field string, m *domain.Money) error {
	if m == nil {
		return nil
	}
	if m.Amount <= 0 {
		return domain.Validationf("%s must be positive", field)
	}
	if !domain.ValidCurrency(m.Currency) {
		return domain.Validationf("%s currency %q is invalid", field, m.Currency)
	}
	return nil
}

func applyRuleUpdate(rule *domain.SettlementRule, patch domain.RuleUpdate) {
	if patch.Name != nil {
		rule.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		rule.Description = *patch.Description
	}
	if patch.WalletID != nil {
		rule.WalletID = *patch.WalletID
	}
	if patch.TriggerType != nil {
		rule.TriggerType = *patch.TriggerType
		if patch.TriggerConfig == nil && *patch.TriggerType == domain.TriggerManual {
			rule.TriggerConfig = domain.ManualConfig{}
		}
	}
	if patch.TriggerConfig != nil {
		rule.TriggerConfig = patch.TriggerConfig
	}
	if patch.Rail != nil {
		rule.Rail = *patch.Rail
	}
	if patch.PriorityClass != nil {
		rule.PriorityClass = *patch.PriorityClass
	}
	if patch.MinimumAmount != nil {
		rule.MinimumAmount = *patch.MinimumAmount
	}
	if patch.MaximumAmount != nil {
		rule.MaximumAmount = *patch.MaximumAmount
	}
	if patch.DestinationCurrency != nil {
		rule.DestinationCurrency = *patch.DestinationCurrency
	}
	if patch.Destination != nil {
		rule.Destination = *patch.Destination
	}
	if patch.Enabled != nil {
		rule.Enabled = *patch.Enabled
	}
	if patch.Priority != nil {
		rule.Priority = *patch.Priority
	}
	if patch.Metadata != nil {
		rule.Metadata = patch.Metadata
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// storeError keeps domain errors as they are and tags anything else from the
// store, deadlines included, as a store error.
func storeError(op string, err error) error {
	if domain.Code(err) != domain.CodeInternal {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreError, op, err)
}
