package dto

import (
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

type RuleResponse struct {
	ID                  string              `json:"id"`
	TenantID            string              `json:"tenant_id"`
	WalletID            *string             `json:"wallet_id,omitempty"`
	Name                string              `json:"name"`
	Description         string              `json:"description,omitempty"`
	TriggerType         string              `json:"trigger_type"`
	TriggerConfig       any                 `json:"trigger_config"`
	Rail                string              `json:"rail"`
	PriorityClass       string              `json:"priority_class"`
	MinimumAmount       *domain.Money       `json:"minimum_amount,omitempty"`
	MaximumAmount       *domain.Money       `json:"maximum_amount,omitempty"`
	DestinationCurrency string              `json:"destination_currency,omitempty"`
	Destination         *domain.Destination `json:"destination,omitempty"`
	Enabled             bool                `json:"enabled"`
	Priority            int                 `json:"priority"`
	Metadata            map[string]any      `json:"metadata,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

type ExecutionResponse struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	RuleID         string         `json:"rule_id"`
	Status         string         `json:"status"`
	TriggerReason  string         `json:"trigger_reason"`
	TriggerContext map[string]any `json:"trigger_context,omitempty"`
	Amount         *float64       `json:"amount,omitempty"`
	Currency       string         `json:"currency,omitempty"`
	Rail           string         `json:"rail,omitempty"`
	LockID         string         `json:"lock_id,omitempty"`
	SettlementID   string         `json:"settlement_id,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	ErrorCode      string         `json:"error_code,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

type ExecuteResponse struct {
	Success      bool   `json:"success"`
	ExecutionID  string `json:"execution_id,omitempty"`
	SettlementID string `json:"settlement_id,omitempty"`
	Status       string `json:"status,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
}

type EvaluateResponse struct {
	ShouldTrigger bool           `json:"should_trigger"`
	Reason        string         `json:"reason"`
	Rules         []RuleResponse `json:"rules"`
}

type ListRulesResponse struct {
	Rules []RuleResponse `json:"rules"`
}

type ListExecutionsResponse struct {
	Executions []ExecutionResponse `json:"executions"`
}

type DeleteRuleResponse struct {
	Deleted bool `json:"deleted"`
}
