package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// ExecutionRepository serializes writes per execution row behind one mutex.
type ExecutionRepository struct {
	mu         sync.RWMutex
	executions map[string]*domain.RuleExecution
}

func NewExecutionRepository() *ExecutionRepository {
	return &ExecutionRepository{
		executions: make(map[string]*domain.RuleExecution),
	}
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *domain.RuleExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executions[execution.ID]; exists {
		return fmt.Errorf("%w: execution %s", domain.ErrDuplicate, execution.ID)
	}
	stored := *execution
	r.executions[execution.ID] = &stored
	return nil
}

func (r *ExecutionRepository) UpdateExecution(ctx context.Context, tenantID, executionID string, patch domain.ExecutionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, exists := r.executions[executionID]
	if !exists || execution.TenantID != tenantID {
		return fmt.Errorf("%w: execution %s", domain.ErrNotFound, executionID)
	}
	if !execution.Status.CanTransition(patch.Status) {
		return domain.Validationf("execution %s cannot move from %s to %s", executionID, execution.Status, patch.Status)
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
		completedAt := *patch.CompletedAt
		execution.CompletedAt = &completedAt
	}
	return nil
}

func (r *ExecutionRepository) GetExecution(ctx context.Context, tenantID, executionID string) (*domain.RuleExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, exists := r.executions[executionID]
	if !exists || execution.TenantID != tenantID {
		return nil, fmt.Errorf("%w: execution %s", domain.ErrNotFound, executionID)
	}
	copied := *execution
	return &copied, nil
}

// ListExecutions returns newest first.
func (r *ExecutionRepository) ListExecutions(ctx context.Context, tenantID string, filter domain.ExecutionFilter) ([]*domain.RuleExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.RuleExecution
	for _, execution := range r.executions {
		if execution.TenantID != tenantID {
			continue
		}
		if filter.RuleID != "" && execution.RuleID != filter.RuleID {
			continue
		}
		if filter.Status != "" && execution.Status != filter.Status {
			continue
		}
		copied := *execution
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].ID > result[j].ID
	})
	return paginate(result, filter.Offset, filter.Limit), nil
}
