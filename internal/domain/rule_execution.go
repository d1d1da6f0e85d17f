package domain

import (
	"context"
	"time"
)

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionExecuting ExecutionStatus = "executing"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionSkipped   ExecutionStatus = "skipped"
)

var executionTransitions = map[ExecutionStatus][]ExecutionStatus{
	ExecutionPending:   {ExecutionExecuting, ExecutionSkipped},
	ExecutionExecuting: {ExecutionCompleted, ExecutionFailed},
}

func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionSkipped
}

// CanTransition reports whether from -> to moves forward in the lifecycle.
func (s ExecutionStatus) CanTransition(to ExecutionStatus) bool {
	for _, next := range executionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	TriggerReasonManual    = "manual_request"
	TriggerReasonScheduled = "scheduled"
	TriggerReasonThreshold = "threshold_reached"
	TriggerReasonImmediate = "immediate_transfer"
)

// RuleExecution is one attempt to carry out a rule.
type RuleExecution struct {
	ID             string
	TenantID       string
	RuleID         string
	Status         ExecutionStatus
	TriggerReason  string
	TriggerContext map[string]any

	Amount       *float64
	Currency     string
	Rail         Rail
	LockID       string
	SettlementID string
	ErrorMessage string
	ErrorCode    string

	StartedAt   time.Time
	CompletedAt *time.Time
}

// ExecutionPatch is applied atomically by the store to a single row.
type ExecutionPatch struct {
	Status       ExecutionStatus
	SettlementID *string
	ErrorMessage *string
	ErrorCode    *string
	CompletedAt  *time.Time
}

type ExecutionFilter struct {
	RuleID string
	Status ExecutionStatus
	Limit  int
	Offset int
}

type RuleExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *RuleExecution) error
	// UpdateExecution must reject patches that do not move the status forward.
	UpdateExecution(ctx context.Context, tenantID, executionID string, patch ExecutionPatch) error
	GetExecution(ctx context.Context, tenantID, executionID string) (*RuleExecution, error)
	ListExecutions(ctx context.Context, tenantID string, filter ExecutionFilter) ([]*RuleExecution, error)
}

type ExecuteRequest struct {
	TenantID       string
	RuleID         string
	TriggerReason  string
	TriggerContext map[string]any
	Amount         *float64
	Currency       string
	DryRun         bool
}

// ExecuteResult is returned instead of an error for anything that happened
// after the rule was resolved, so failed executions stay traceable.
type ExecuteResult struct {
	Success      bool
	ExecutionID  string
	SettlementID string
	Status       ExecutionStatus
	Error        string
	ErrorCode    ErrorCode
}
