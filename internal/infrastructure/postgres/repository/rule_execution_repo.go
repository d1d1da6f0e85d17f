package repository

import (
	"context"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

var executionStatuses = []domain.ExecutionStatus{
	domain.ExecutionPending,
	domain.ExecutionExecuting,
	domain.ExecutionCompleted,
	domain.ExecutionFailed,
	domain.ExecutionSkipped,
}

type DefaultRuleExecutionRepository struct {
	db *gorm.DB
}

func NewDefaultRuleExecutionRepository(db *gorm.DB) *DefaultRuleExecutionRepository {
	return &DefaultRuleExecutionRepository{db: db}
}

func (r *DefaultRuleExecutionRepository) CreateExecution(ctx context.Context, execution *domain.RuleExecution) error {
	model, err := mappers.ToGORMExecution(execution)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err, "create execution %s", execution.ID)
	}
	return nil
}

// UpdateExecution is a single conditional UPDATE: the row only changes when
// its current status may move to patch.Status.
func (r *DefaultRuleExecutionRepository) UpdateExecution(ctx context.Context, tenantID, executionID string, patch domain.ExecutionPatch) error {
	var from []string
	for _, status := range executionStatuses {
		if status.CanTransition(patch.Status) {
			from = append(from, string(status))
		}
	}
	if len(from) == 0 {
		return domain.Validationf("no execution can move to status %q", patch.Status)
	}

	updates := map[string]any{"status": string(patch.Status)}
	if patch.SettlementID != nil {
		updates["settlement_id"] = *patch.SettlementID
	}
	if patch.ErrorMessage != nil {
		updates["error_message"] = *patch.ErrorMessage
	}
	if patch.ErrorCode != nil {
		updates["error_code"] = *patch.ErrorCode
	}
	if patch.CompletedAt != nil {
		updates["completed_at"] = *patch.CompletedAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.RuleExecutionModel{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", executionID, tenantID, from).
		Updates(updates)
	if result.Error != nil {
		return translate(result.Error, "update execution %s", executionID)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := r.GetExecution(ctx, tenantID, executionID)
	if err != nil {
		return err
	}
	return domain.Validationf("execution %s cannot move from %s to %s", executionID, current.Status, patch.Status)
}

func (r *DefaultRuleExecutionRepository) GetExecution(ctx context.Context, tenantID, executionID string) (*domain.RuleExecution, error) {
	var model models.RuleExecutionModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", executionID, tenantID).
		First(&model).Error; err != nil {
		return nil, translate(err, "execution %s", executionID)
	}
	return mappers.ToDomainExecution(&model)
}

func (r *DefaultRuleExecutionRepository) ListExecutions(ctx context.Context, tenantID string, filter domain.ExecutionFilter) ([]*domain.RuleExecution, error) {
	query := r.db.WithContext(ctx).
		Model(&models.RuleExecutionModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.RuleID != "" {
		query = query.Where("rule_id = ?", filter.RuleID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var executionModels []models.RuleExecutionModel
	if err := query.Order("started_at DESC, id DESC").Find(&executionModels).Error; err != nil {
		return nil, translate(err, "list executions for tenant %s", tenantID)
	}

	executions := make([]*domain.RuleExecution, 0, len(executionModels))
	for i := range executionModels {
		execution, err := mappers.ToDomainExecution(&executionModels[i])
		if err != nil {
			return nil, translate(err, "decode execution")
		}
		executions = append(executions, execution)
	}
	return executions, nil
}
