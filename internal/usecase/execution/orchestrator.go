package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/destination"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/trigger"
	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

const (
	defaultStoreTimeout    = 3 * time.Second
	defaultDispatchTimeout = 30 * time.Second
)

// QuoteLocker is the part of the FX quote service the orchestrator needs.
type QuoteLocker interface {
	GetQuote(ctx context.Context, req domain.QuoteRequest) (*domain.FXQuote, error)
	LockQuote(ctx context.Context, quoteID string) (*domain.LockedQuote, error)
	ConsumeLock(ctx context.Context, lockID string) (*domain.LockedQuote, error)
}

type Config struct {
	StoreTimeout    time.Duration
	DispatchTimeout time.Duration
}

// Orchestrator drives a RuleExecution through
// pending -> executing -> completed|failed, or pending -> skipped.
type Orchestrator struct {
	rules      domain.SettlementRuleRepository
	executions domain.RuleExecutionRepository
	dispatcher domain.SettlementDispatcher
	evaluator  *trigger.Evaluator
	quotes     QuoteLocker
	events     domain.ExecutionEventPublisher
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time

	Metrics *metrics.SettlementMetrics
}

type Dependencies struct {
	Rules      domain.SettlementRuleRepository
	Executions domain.RuleExecutionRepository
	Dispatcher domain.SettlementDispatcher
	Evaluator  *trigger.Evaluator
	// Quotes and Events are optional.
	Quotes QuoteLocker
	Events domain.ExecutionEventPublisher
}

func NewOrchestrator(deps Dependencies, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = trigger.NewEvaluator(deps.Rules, cfg.StoreTimeout, logger)
	}
	return &Orchestrator{
		rules:      deps.Rules,
		executions: deps.Executions,
		dispatcher: deps.Dispatcher,
		evaluator:  evaluator,
		quotes:     deps.Quotes,
		events:     deps.Events,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute carries out one rule. A non-nil error means no execution record
// exists; anything that goes wrong after creation is reported in the result.
func (o *Orchestrator) Execute(ctx context.Context, req domain.ExecuteRequest) (*domain.ExecuteResult, error) {
	if req.TenantID == "" || req.RuleID == "" {
		return nil, domain.Validationf("tenant_id and rule_id are required")
	}

	rule, err := o.getRule(ctx, req.TenantID, req.RuleID)
	if err != nil {
		return nil, err
	}
	return o.executeRule(ctx, rule, req)
}

// ExecuteManual runs the tenant's first enabled manual rule by priority.
func (o *Orchestrator) ExecuteManual(ctx context.Context, req domain.ExecuteRequest) (*domain.ExecuteResult, error) {
	if req.TenantID == "" {
		return nil, domain.Validationf("tenant_id is required")
	}

	storeCtx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
	enabled := true
	rules, err := o.rules.ListRules(storeCtx, req.TenantID, domain.RuleFilter{
		Enabled:     &enabled,
		TriggerType: domain.TriggerManual,
		Limit:       1,
	})
	cancel()
	if err != nil {
		return nil, storeError("list manual rules", err)
	}
	if len(rules) == 0 {
		return nil, domain.Validationf("no enabled manual settlement rule is configured for tenant %s", req.TenantID)
	}

	req.RuleID = rules[0].ID
	req.TriggerReason = domain.TriggerReasonManual
	return o.executeRule(ctx, rules[0], req)
}

// ProcessTrigger evaluates tc and executes every selected rule in priority
// order. Per-rule failures are reported in the results and do not stop the loop.
func (o *Orchestrator) ProcessTrigger(ctx context.Context, tc domain.TriggerContext) (domain.EvaluationResult, []*domain.ExecuteResult) {
	evaluation := o.evaluator.Evaluate(ctx, tc)
	if !evaluation.ShouldTrigger {
		return evaluation, nil
	}

	snapshot := contextSnapshot(tc)
	results := make([]*domain.ExecuteResult, 0, len(evaluation.Rules))
	for _, rule := range evaluation.Rules {
		result, err := o.executeRule(ctx, rule, domain.ExecuteRequest{
			TenantID:       tc.TenantID,
			RuleID:         rule.ID,
			TriggerReason:  reasonFor(rule.TriggerType),
			TriggerContext: snapshot,
			Amount:         tc.CurrentBalance,
			Currency:       tc.Currency,
		})
		if err != nil {
			o.logger.Warn("triggered rule was not executed",
				"tenant_id", tc.TenantID,
				"rule_id", rule.ID,
				"error", err)
			result = &domain.ExecuteResult{Error: err.Error(), ErrorCode: domain.Code(err)}
		}
		results = append(results, result)
	}
	return evaluation, results
}

func (o *Orchestrator) executeRule(ctx context.Context, rule *domain.SettlementRule, req domain.ExecuteRequest) (*domain.ExecuteResult, error) {
	if !rule.Enabled {
		return nil, domain.Validationf("rule %s is disabled", rule.ID)
	}

	amount, currency, err := resolveAmount(rule, req)
	if err != nil {
		return nil, err
	}

	var lock *domain.LockedQuote
	if rule.DestinationCurrency != "" && rule.DestinationCurrency != currency {
		lock, err = o.lockConversion(ctx, currency, rule.DestinationCurrency, amount, req.DryRun)
		if err != nil {
			return nil, err
		}
		if lock.DestinationAmount != nil {
			amount = *lock.DestinationAmount
		}
		currency = rule.DestinationCurrency
	}

	reason := req.TriggerReason
	if reason == "" {
		reason = reasonFor(rule.TriggerType)
	}

	execution := &domain.RuleExecution{
		ID:             uuid.New().String(),
		TenantID:       rule.TenantID,
		RuleID:         rule.ID,
		Status:         domain.ExecutionPending,
		TriggerReason:  reason,
		TriggerContext: req.TriggerContext,
		Amount:         &amount,
		Currency:       currency,
		Rail:           destination.ResolveRail(rule.Rail, currency, rule.Destination),
		StartedAt:      o.now().UTC(),
	}
	if lock != nil && !req.DryRun {
		execution.LockID = lock.LockID
	}

	storeCtx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
	err = o.executions.CreateExecution(storeCtx, execution)
	cancel()
	if err != nil {
		o.Metrics.RecordError("orchestrator", string(domain.CodeStoreError))
		return nil, storeError("create execution", err)
	}
	o.emit(ctx, execution)

	logger := o.logger.With(
		"tenant_id", execution.TenantID,
		"rule_id", execution.RuleID,
		"execution_id", execution.ID,
		"rail", execution.Rail)

	if req.DryRun {
		if err := o.transition(ctx, execution, domain.ExecutionPatch{Status: domain.ExecutionSkipped, CompletedAt: o.stamp()}); err != nil {
			return o.stuck(logger, execution, err), nil
		}
		logger.Info("dry run execution skipped", "amount", amount, "currency", currency)
		return &domain.ExecuteResult{Success: true, ExecutionID: execution.ID, Status: execution.Status}, nil
	}

	if err := o.transition(ctx, execution, domain.ExecutionPatch{Status: domain.ExecutionExecuting}); err != nil {
		return o.stuck(logger, execution, err), nil
	}

	settlementID, dispatchErr := o.dispatch(ctx, rule, execution)
	if dispatchErr != nil {
		message := dispatchErr.Error()
		code := string(domain.Code(dispatchErr))
		patch := domain.ExecutionPatch{
			Status:       domain.ExecutionFailed,
			ErrorMessage: &message,
			ErrorCode:    &code,
			CompletedAt:  o.stamp(),
		}
		if err := o.transition(ctx, execution, patch); err != nil {
			return o.stuck(logger, execution, err), nil
		}
		logger.Warn("settlement dispatch failed", "error", dispatchErr)
		o.Metrics.RecordError("dispatcher", code)
		return &domain.ExecuteResult{
			ExecutionID: execution.ID,
			Status:      execution.Status,
			Error:       message,
			ErrorCode:   domain.ErrorCode(code),
		}, nil
	}

	patch := domain.ExecutionPatch{
		Status:       domain.ExecutionCompleted,
		SettlementID: &settlementID,
		CompletedAt:  o.stamp(),
	}
	if err := o.transition(ctx, execution, patch); err != nil {
		logger.Error("settlement dispatched but completion was not recorded",
			"settlement_id", settlementID,
			"error", err)
		result := o.stuck(logger, execution, err)
		result.SettlementID = settlementID
		return result, nil
	}

	o.Metrics.RecordSettledAmount(execution.TenantID, string(execution.Rail), execution.Currency, amount)
	logger.Info("settlement completed",
		"settlement_id", settlementID,
		"amount", amount,
		"currency", currency)
	return &domain.ExecuteResult{
		Success:      true,
		ExecutionID:  execution.ID,
		SettlementID: settlementID,
		Status:       execution.Status,
	}, nil
}

// dispatch consumes the FX lock, if any, and calls the rail with a bounded
// timeout. Every error it returns ends the execution in failed.
func (o *Orchestrator) dispatch(ctx context.Context, rule *domain.SettlementRule, execution *domain.RuleExecution) (string, error) {
	var locked *domain.LockedQuote
	if execution.LockID != "" {
		if o.quotes == nil {
			return "", fmt.Errorf("%w: quote service unavailable for lock %s", domain.ErrRateUnavailable, execution.LockID)
		}
		lock, err := o.quotes.ConsumeLock(ctx, execution.LockID)
		if err != nil {
			return "", fmt.Errorf("consume rate lock: %w", err)
		}
		locked = lock
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, o.cfg.DispatchTimeout)
	defer cancel()

	started := o.now()
	settlementID, err := o.dispatcher.Dispatch(dispatchCtx, domain.DispatchRequest{
		IdempotencyKey: execution.ID,
		Rail:           execution.Rail,
		PriorityClass:  rule.PriorityClass,
		Amount:         *execution.Amount,
		Currency:       execution.Currency,
		Destination:    rule.Destination,
		LockedQuote:    locked,
		Metadata:       rule.Metadata,
	})
	o.Metrics.RecordDispatchDuration(string(execution.Rail), o.now().Sub(started).Seconds(), err == nil)
	if err != nil {
		if errors.Is(err, domain.ErrDispatchFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}

	if settlementID == "" {
		idGenerator, err := nanoid.Standard(21)
		if err != nil {
			return "", fmt.Errorf("%w: generate settlement id: %v", domain.ErrDispatchFailed, err)
		}
		settlementID = "stl_" + idGenerator()
	}
	return settlementID, nil
}

func (o *Orchestrator) lockConversion(ctx context.Context, source, destinationCurrency string, amount float64, dryRun bool) (*domain.LockedQuote, error) {
	if o.quotes == nil {
		return nil, fmt.Errorf("%w: no quote service for %s", domain.ErrRateUnavailable, domain.Corridor(source, destinationCurrency))
	}

	quote, err := o.quotes.GetQuote(ctx, domain.QuoteRequest{
		SourceCurrency:      source,
		DestinationCurrency: destinationCurrency,
		SourceAmount:        &amount,
	})
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", domain.Corridor(source, destinationCurrency), err)
	}
	if dryRun {
		return &domain.LockedQuote{FXQuote: *quote}, nil
	}

	lock, err := o.quotes.LockQuote(ctx, quote.ID)
	if err != nil {
		return nil, fmt.Errorf("lock quote %s: %w", quote.ID, err)
	}
	return lock, nil
}

// transition persists patch and mirrors it onto execution.
func (o *Orchestrator) transition(ctx context.Context, execution *domain.RuleExecution, patch domain.ExecutionPatch) error {
	if !execution.Status.CanTransition(patch.Status) {
		return domain.Validationf("execution %s cannot move from %s to %s", execution.ID, execution.Status, patch.Status)
	}

	storeCtx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
	defer cancel()
	if err := o.executions.UpdateExecution(storeCtx, execution.TenantID, execution.ID, patch); err != nil {
		o.Metrics.RecordError("orchestrator", string(domain.CodeStoreError))
		return storeError("update execution", err)
	}

	execution.Status = patch.Status
	if patch.SettlementID != nil {
		execution.SettlementID = *patch.SettlementID
	}
	if patch.ErrorMessage != nil {
		execution.ErrorMessage = *patch.ErrorMessage
	}
	if patch.ErrorCode != nil {
		execution.ErrorCode = *patch.ErrorCode
	}
	if patch.CompletedAt != nil {
		execution.CompletedAt = patch.CompletedAt
	}
	o.emit(ctx, execution)
	return nil
}

// stuck reports an execution left in a non-terminal state for reconciliation.
func (o *Orchestrator) stuck(logger *slog.Logger, execution *domain.RuleExecution, err error) *domain.ExecuteResult {
	logger.Error("execution left for reconciliation", "status", execution.Status, "error", err)
	return &domain.ExecuteResult{
		ExecutionID: execution.ID,
		Status:      execution.Status,
		Error:       err.Error(),
		ErrorCode:   domain.CodeStoreError,
	}
}

func (o *Orchestrator) emit(ctx context.Context, execution *domain.RuleExecution) {
	o.Metrics.RecordTransition(execution.TenantID, string(execution.Rail), string(execution.Status))
	if o.events == nil {
		return
	}
	event := domain.ExecutionEvent{
		ExecutionID:   execution.ID,
		TenantID:      execution.TenantID,
		RuleID:        execution.RuleID,
		Status:        execution.Status,
		Rail:          execution.Rail,
		Amount:        execution.Amount,
		Currency:      execution.Currency,
		SettlementID:  execution.SettlementID,
		ErrorMessage:  execution.ErrorMessage,
		TriggerReason: execution.TriggerReason,
		OccurredAt:    o.now().UTC(),
	}
	if err := o.events.PublishExecution(ctx, event); err != nil {
		o.logger.Warn("failed to publish execution event",
			"execution_id", execution.ID,
			"status", execution.Status,
			"error", err)
	}
}

func (o *Orchestrator) getRule(ctx context.Context, tenantID, ruleID string) (*domain.SettlementRule, error) {
	storeCtx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
	defer cancel()

	rule, err := o.rules.GetRule(storeCtx, tenantID, ruleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("rule %s", ruleID)
		}
		return nil, storeError("get rule", err)
	}
	return rule, nil
}

func (o *Orchestrator) stamp() *time.Time {
	now := o.now().UTC()
	return &now
}

// storeError keeps an already classified error and marks the rest as STORE_ERROR.
func storeError(op string, err error) error {
	if domain.Code(err) != domain.CodeInternal {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreError, op, err)
}
