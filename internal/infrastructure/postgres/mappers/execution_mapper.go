package mappers

import (
	"fmt"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
)

func ToGORMExecution(execution *domain.RuleExecution) (*models.RuleExecutionModel, error) {
	triggerContext, err := marshalOptional(execution.TriggerContext)
	if err != nil {
		return nil, fmt.Errorf("encode trigger context: %w", err)
	}
	return &models.RuleExecutionModel{
		ID:             execution.ID,
		TenantID:       execution.TenantID,
		RuleID:         execution.RuleID,
		Status:         string(execution.Status),
		TriggerReason:  execution.TriggerReason,
		TriggerContext: triggerContext,
		Amount:         execution.Amount,
		Currency:       execution.Currency,
		Rail:           string(execution.Rail),
		LockID:         execution.LockID,
		SettlementID:   execution.SettlementID,
		ErrorMessage:   execution.ErrorMessage,
		ErrorCode:      execution.ErrorCode,
		StartedAt:      execution.StartedAt,
		CompletedAt:    execution.CompletedAt,
	}, nil
}

func ToDomainExecution(model *models.RuleExecutionModel) (*domain.RuleExecution, error) {
	execution := &domain.RuleExecution{
		ID:            model.ID,
		TenantID:      model.TenantID,
		RuleID:        model.RuleID,
		Status:        domain.ExecutionStatus(model.Status),
		TriggerReason: model.TriggerReason,
		Amount:        model.Amount,
		Currency:      model.Currency,
		Rail:          domain.Rail(model.Rail),
		LockID:        model.LockID,
		SettlementID:  model.SettlementID,
		ErrorMessage:  model.ErrorMessage,
		ErrorCode:     model.ErrorCode,
		StartedAt:     model.StartedAt,
		CompletedAt:   model.CompletedAt,
	}
	if err := unmarshalOptional(model.TriggerContext, &execution.TriggerContext); err != nil {
		return nil, fmt.Errorf("execution %s: decode trigger context: %w", model.ID, err)
	}
	return execution, nil
}
