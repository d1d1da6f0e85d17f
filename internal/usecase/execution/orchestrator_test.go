package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/fx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu           sync.Mutex
	requests     []domain.DispatchRequest
	settlementID string
	err          error
	hook         func(ctx context.Context) error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, req domain.DispatchRequest) (string, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()
	if d.hook != nil {
		if err := d.hook(ctx); err != nil {
			return "", err
		}
	}
	if d.err != nil {
		return "", d.err
	}
	return d.settlementID, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ExecutionEvent
}

func (p *recordingPublisher) PublishExecution(_ context.Context, event domain.ExecutionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) statuses(executionID string) []domain.ExecutionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.ExecutionStatus
	for _, e := range p.events {
		if e.ExecutionID == executionID {
			out = append(out, e.Status)
		}
	}
	return out
}

type failingUpdates struct {
	*memory.ExecutionRepository
}

func (failingUpdates) UpdateExecution(context.Context, string, string, domain.ExecutionPatch) error {
	return errors.New("connection reset by peer")
}

type harness struct {
	rules      *memory.RuleRepository
	executions *memory.ExecutionRepository
	dispatcher *fakeDispatcher
	events     *recordingPublisher
	quotes     *fx.QuoteService
	orch       *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		rules:      memory.NewRuleRepository(),
		executions: memory.NewExecutionRepository(),
		dispatcher: &fakeDispatcher{settlementID: "stl_123"},
		events:     &recordingPublisher{},
	}
	h.quotes = fx.NewQuoteService(fx.NewRateResolver(nil, fx.ResolverConfig{}, nil), fx.NewMemoryQuoteStore(), fx.QuoteConfig{}, nil)
	h.orch = NewOrchestrator(Dependencies{
		Rules:      h.rules,
		Executions: h.executions,
		Dispatcher: h.dispatcher,
		Quotes:     h.quotes,
		Events:     h.events,
	}, Config{DispatchTimeout: 200 * time.Millisecond}, nil)
	return h
}

func (h *harness) addRule(t *testing.T, rule *domain.SettlementRule) *domain.SettlementRule {
	t.Helper()
	if rule.TenantID == "" {
		rule.TenantID = "t1"
	}
	if rule.Name == "" {
		rule.Name = rule.ID
	}
	if rule.PriorityClass == "" {
		rule.PriorityClass = domain.PriorityStandard
	}
	rule.CreatedAt = time.Now()
	require.NoError(t, h.rules.CreateRule(context.Background(), rule))
	return rule
}

func manualRule(id string, priority int) *domain.SettlementRule {
	return &domain.SettlementRule{
		ID:            id,
		TriggerType:   domain.TriggerManual,
		TriggerConfig: domain.ManualConfig{},
		Rail:          domain.RailAuto,
		Enabled:       true,
		Priority:      priority,
	}
}

func amountOf(v float64) *float64 { return &v }

func TestExecute_Completed(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, manualRule("r1", 1))

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{
		TenantID:      "t1",
		RuleID:        "r1",
		TriggerReason: "ops ticket 42",
		Amount:        amountOf(250),
		Currency:      "BRL",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "stl_123", result.SettlementID)
	assert.Equal(t, domain.ExecutionCompleted, result.Status)

	stored, err := h.executions.GetExecution(context.Background(), "t1", result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionCompleted, stored.Status)
	assert.Equal(t, "stl_123", stored.SettlementID)
	assert.Equal(t, domain.RailPix, stored.Rail)
	assert.Equal(t, "ops ticket 42", stored.TriggerReason)
	assert.Equal(t, 250.0, *stored.Amount)
	require.NotNil(t, stored.CompletedAt)

	assert.Equal(t, []domain.ExecutionStatus{
		domain.ExecutionPending, domain.ExecutionExecuting, domain.ExecutionCompleted,
	}, h.events.statuses(result.ExecutionID))

	require.Len(t, h.dispatcher.requests, 1)
	assert.Equal(t, result.ExecutionID, h.dispatcher.requests[0].IdempotencyKey)
}

func TestExecute_GeneratesSettlementIDWhenRailReturnsNone(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.settlementID = ""
	h.addRule(t, manualRule("r1", 1))

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(10), Currency: "USD"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Regexp(t, `^stl_`, result.SettlementID)
}

func TestExecute_DispatchFailure(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.err = errors.New("rail rejected: insufficient funds")
	h.addRule(t, manualRule("r1", 1))

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(10), Currency: "USD"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ExecutionID)
	assert.Equal(t, domain.CodeDispatchFailed, result.ErrorCode)
	assert.Contains(t, result.Error, "insufficient funds")

	stored, err := h.executions.GetExecution(context.Background(), "t1", result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionFailed, stored.Status)
	assert.Equal(t, "DISPATCH_FAILED", stored.ErrorCode)
	assert.Contains(t, stored.ErrorMessage, "insufficient funds")
	require.NotNil(t, stored.CompletedAt)

	assert.Equal(t, []domain.ExecutionStatus{
		domain.ExecutionPending, domain.ExecutionExecuting, domain.ExecutionFailed,
	}, h.events.statuses(result.ExecutionID))
}

func TestExecute_DispatchTimeout(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.hook = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	h.addRule(t, manualRule("r1", 1))

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(10), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionFailed, result.Status)
	assert.Equal(t, domain.CodeDispatchFailed, result.ErrorCode)
}

func TestExecute_RuleNotFound(t *testing.T) {
	h := newHarness(t)

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "missing", Amount: amountOf(10), Currency: "USD"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, domain.CodeNotFound, domain.Code(err))

	list, err := h.executions.ListExecutions(context.Background(), "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExecute_ValidationCreatesNoRecord(t *testing.T) {
	h := newHarness(t)
	disabled := manualRule("off", 1)
	disabled.Enabled = false
	h.addRule(t, disabled)
	h.addRule(t, manualRule("r1", 2))

	_, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "off", Amount: amountOf(10), Currency: "USD"})
	assert.Equal(t, domain.CodeValidation, domain.Code(err))

	_, err = h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Currency: "USD"})
	assert.Equal(t, domain.CodeValidation, domain.Code(err))

	_, err = h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(10)})
	assert.Equal(t, domain.CodeValidation, domain.Code(err))

	list, err := h.executions.ListExecutions(context.Background(), "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExecute_AmountCappedAndGated(t *testing.T) {
	h := newHarness(t)
	rule := manualRule("r1", 1)
	rule.MinimumAmount = &domain.Money{Amount: 50, Currency: "USD"}
	rule.MaximumAmount = &domain.Money{Amount: 1000, Currency: "USD"}
	h.addRule(t, rule)

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{
		TenantID:       "t1",
		RuleID:         "r1",
		TriggerContext: map[string]any{"current_balance": 5000.0, "currency": "USD"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, h.dispatcher.requests[0].Amount)
	assert.Equal(t, domain.RailACH, h.dispatcher.requests[0].Rail)
	assert.True(t, result.Success)

	_, err = h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(10), Currency: "USD"})
	assert.Equal(t, domain.CodeValidation, domain.Code(err))
}

func TestExecute_DryRunSkips(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, manualRule("r1", 1))

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(10), Currency: "MXN", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionSkipped, result.Status)
	assert.Empty(t, h.dispatcher.requests)
	assert.Equal(t, []domain.ExecutionStatus{domain.ExecutionPending, domain.ExecutionSkipped}, h.events.statuses(result.ExecutionID))

	stored, err := h.executions.GetExecution(context.Background(), "t1", result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.RailSPEI, stored.Rail)
	require.NotNil(t, stored.CompletedAt)
}

func TestExecute_StoreErrorAfterCreation(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, manualRule("r1", 1))
	h.orch.executions = failingUpdates{h.executions}

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(10), Currency: "USD"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ExecutionID)
	assert.Equal(t, domain.CodeStoreError, result.ErrorCode)
	assert.Equal(t, domain.ExecutionPending, result.Status)
	assert.Empty(t, h.dispatcher.requests)

	stored, err := h.executions.GetExecution(context.Background(), "t1", result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionPending, stored.Status)
}

func TestExecute_RailFixedAtCreation(t *testing.T) {
	h := newHarness(t)
	rule := manualRule("r1", 1)
	rule.Rail = domain.RailWire
	h.addRule(t, rule)

	h.dispatcher.hook = func(context.Context) error {
		stored, err := h.rules.GetRule(context.Background(), "t1", "r1")
		require.NoError(t, err)
		stored.Rail = domain.RailACH
		return h.rules.UpdateRule(context.Background(), stored)
	}

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(10), Currency: "USD"})
	require.NoError(t, err)

	stored, err := h.executions.GetExecution(context.Background(), "t1", result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.RailWire, stored.Rail)
}

func TestExecute_ConvertsWithLockedQuote(t *testing.T) {
	h := newHarness(t)
	rule := manualRule("r1", 1)
	rule.DestinationCurrency = "BRL"
	h.addRule(t, rule)

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(100), Currency: "USD"})
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Len(t, h.dispatcher.requests, 1)
	req := h.dispatcher.requests[0]
	assert.Equal(t, "BRL", req.Currency)
	assert.Equal(t, domain.RailPix, req.Rail)
	assert.InDelta(t, (100-0.5)*5.85, req.Amount, 0.01)
	require.NotNil(t, req.LockedQuote)
	assert.Equal(t, 5.85, req.LockedQuote.Rate)

	stored, err := h.executions.GetExecution(context.Background(), "t1", result.ExecutionID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.LockID)

	_, err = h.quotes.GetLock(context.Background(), stored.LockID)
	assert.ErrorIs(t, err, domain.ErrLockConsumed)
}

func TestExecute_ConversionWithoutRate(t *testing.T) {
	h := newHarness(t)
	rule := manualRule("r1", 1)
	rule.DestinationCurrency = "JPY"
	h.addRule(t, rule)

	result, err := h.orch.Execute(context.Background(), domain.ExecuteRequest{TenantID: "t1", RuleID: "r1", Amount: amountOf(100), Currency: "USD"})
	assert.Nil(t, result)
	assert.Equal(t, domain.CodeRateUnavailable, domain.Code(err))

	list, err := h.executions.ListExecutions(context.Background(), "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExecuteManual_SelectsLowestPriority(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, manualRule("p50", 50))
	h.addRule(t, manualRule("p5", 5))
	disabled := manualRule("p1-off", 1)
	disabled.Enabled = false
	h.addRule(t, disabled)

	result, err := h.orch.ExecuteManual(context.Background(), domain.ExecuteRequest{
		TenantID: "t1",
		Amount:   amountOf(75),
		Currency: "USD",
		RuleID:   "p50",
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	stored, err := h.executions.GetExecution(context.Background(), "t1", result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "p5", stored.RuleID)
	assert.Equal(t, domain.TriggerReasonManual, stored.TriggerReason)
}

func TestExecuteManual_NoManualRule(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, &domain.SettlementRule{
		ID:            "thr",
		TriggerType:   domain.TriggerThreshold,
		TriggerConfig: domain.ThresholdConfig{Amount: 1, Currency: "USD"},
		Rail:          domain.RailACH,
		Enabled:       true,
	})

	_, err := h.orch.ExecuteManual(context.Background(), domain.ExecuteRequest{TenantID: "t1", Amount: amountOf(1), Currency: "USD"})
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.Code(err))
	assert.Contains(t, err.Error(), "no enabled manual settlement rule")
}

func TestProcessTrigger_ExecutesInPriorityOrder(t *testing.T) {
	h := newHarness(t)
	for _, r := range []struct {
		id       string
		priority int
	}{{"second", 20}, {"first", 10}} {
		h.addRule(t, &domain.SettlementRule{
			ID:            r.id,
			TriggerType:   domain.TriggerThreshold,
			TriggerConfig: domain.ThresholdConfig{Amount: 100, Currency: "USD"},
			Rail:          domain.RailACH,
			Enabled:       true,
			Priority:      r.priority,
		})
	}

	balance := 150.0
	evaluation, results := h.orch.ProcessTrigger(context.Background(), domain.TriggerContext{
		TenantID:       "t1",
		WalletID:       "w1",
		CurrentBalance: &balance,
		Currency:       "USD",
	})
	require.True(t, evaluation.ShouldTrigger)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)

	first, err := h.executions.GetExecution(context.Background(), "t1", results[0].ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "first", first.RuleID)
	assert.Equal(t, domain.TriggerReasonThreshold, first.TriggerReason)
	assert.Equal(t, "w1", first.TriggerContext["wallet_id"])
}

func TestProcessTrigger_NothingMatches(t *testing.T) {
	h := newHarness(t)

	evaluation, results := h.orch.ProcessTrigger(context.Background(), domain.TriggerContext{TenantID: "t1"})
	assert.False(t, evaluation.ShouldTrigger)
	assert.Nil(t, results)
}
