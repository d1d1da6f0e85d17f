package memory

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRule(id, tenant, name string, priority int, enabled bool) *domain.SettlementRule {
	return &domain.SettlementRule{
		ID:            id,
		TenantID:      tenant,
		Name:          name,
		TriggerType:   domain.TriggerManual,
		TriggerConfig: domain.ManualConfig{},
		Rail:          domain.RailPix,
		PriorityClass: domain.PriorityStandard,
		Enabled:       enabled,
		Priority:      priority,
		CreatedAt:     time.Now(),
	}
}

func TestRuleRepository_ListOrderAndFilters(t *testing.T) {
	repo := NewRuleRepository()
	ctx := context.Background()

	wallet := "w1"
	scoped := newRule("r3", "t1", "scoped", 5, true)
	scoped.WalletID = &wallet

	require.NoError(t, repo.CreateRule(ctx, newRule("r1", "t1", "low", 20, true)))
	require.NoError(t, repo.CreateRule(ctx, newRule("r2", "t1", "high", 10, true)))
	require.NoError(t, repo.CreateRule(ctx, scoped))
	require.NoError(t, repo.CreateRule(ctx, newRule("r4", "t1", "off", 1, false)))
	require.NoError(t, repo.CreateRule(ctx, newRule("r5", "t2", "other tenant", 1, true)))

	enabled := true
	rules, err := repo.ListRules(ctx, "t1", domain.RuleFilter{Enabled: &enabled})
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{rules[0].ID, rules[1].ID, rules[2].ID})

	rules, err = repo.ListRules(ctx, "t1", domain.RuleFilter{Enabled: &enabled, WalletID: "w2"})
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	rules, err = repo.ListRules(ctx, "t1", domain.RuleFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r3", rules[0].ID)

	all, err := repo.ListEnabledByTrigger(ctx, domain.TriggerManual)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRuleRepository_DuplicateAndTenantScope(t *testing.T) {
	repo := NewRuleRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateRule(ctx, newRule("r1", "t1", "payout", 1, true)))
	assert.ErrorIs(t, repo.CreateRule(ctx, newRule("r2", "t1", "payout", 1, true)), domain.ErrDuplicate)
	assert.NoError(t, repo.CreateRule(ctx, newRule("r3", "t2", "payout", 1, true)))

	_, err := repo.GetRule(ctx, "t2", "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteRule(ctx, "t2", "r1"), domain.ErrNotFound)
	assert.NoError(t, repo.DeleteRule(ctx, "t1", "r1"))
}

func TestExecutionRepository_ForwardOnly(t *testing.T) {
	repo := NewExecutionRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateExecution(ctx, &domain.RuleExecution{
		ID: "e1", TenantID: "t1", RuleID: "r1", Status: domain.ExecutionPending, StartedAt: time.Now(),
	}))

	require.NoError(t, repo.UpdateExecution(ctx, "t1", "e1", domain.ExecutionPatch{Status: domain.ExecutionExecuting}))
	assert.ErrorIs(t, repo.UpdateExecution(ctx, "t1", "e1", domain.ExecutionPatch{Status: domain.ExecutionPending}), domain.ErrValidation)

	settlementID := "stl_1"
	now := time.Now()
	require.NoError(t, repo.UpdateExecution(ctx, "t1", "e1", domain.ExecutionPatch{
		Status: domain.ExecutionCompleted, SettlementID: &settlementID, CompletedAt: &now,
	}))
	assert.ErrorIs(t, repo.UpdateExecution(ctx, "t1", "e1", domain.ExecutionPatch{Status: domain.ExecutionFailed}), domain.ErrValidation)

	execution, err := repo.GetExecution(ctx, "t1", "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionCompleted, execution.Status)
	assert.Equal(t, "stl_1", execution.SettlementID)
	require.NotNil(t, execution.CompletedAt)

	list, err := repo.ListExecutions(ctx, "t1", domain.ExecutionFilter{Status: domain.ExecutionCompleted})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = repo.GetExecution(ctx, "t2", "e1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
