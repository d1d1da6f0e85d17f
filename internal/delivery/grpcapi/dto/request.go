package dto

import (
	"encoding/json"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// Optional tells an absent field apart from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type EvaluateRequest struct {
	TenantID       string   `json:"tenant_id"`
	WalletID       string   `json:"wallet_id"`
	TransferType   string   `json:"transfer_type"`
	CurrentBalance *float64 `json:"current_balance"`
	Currency       string   `json:"currency"`
	TransferID     string   `json:"transfer_id"`
}

type ExecuteRequest struct {
	TenantID       string         `json:"tenant_id"`
	RuleID         string         `json:"rule_id"`
	TriggerReason  string         `json:"trigger_reason"`
	TriggerContext map[string]any `json:"trigger_context"`
	Amount         *float64       `json:"amount"`
	Currency       string         `json:"currency"`
	DryRun         bool           `json:"dry_run"`
}

type QuoteRequest struct {
	SourceCurrency      string   `json:"source_currency"`
	DestinationCurrency string   `json:"destination_currency"`
	SourceAmount        *float64 `json:"source_amount"`
	DestinationAmount   *float64 `json:"destination_amount"`
}

type LockQuoteRequest struct {
	QuoteID string `json:"quote_id"`
}

type CreateRuleRequest struct {
	TenantID            string              `json:"tenant_id"`
	WalletID            *string             `json:"wallet_id"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	TriggerType         string              `json:"trigger_type"`
	TriggerConfig       json.RawMessage     `json:"trigger_config"`
	Rail                string              `json:"rail"`
	PriorityClass       string              `json:"priority_class"`
	MinimumAmount       *domain.Money       `json:"minimum_amount"`
	MaximumAmount       *domain.Money       `json:"maximum_amount"`
	DestinationCurrency string              `json:"destination_currency"`
	Destination         *domain.Destination `json:"destination"`
	Enabled             *bool               `json:"enabled"`
	Priority            int                 `json:"priority"`
	Metadata            map[string]any      `json:"metadata"`
}

type UpdateRuleRequest struct {
	TenantID            string                       `json:"tenant_id"`
	RuleID              string                       `json:"rule_id"`
	Name                *string                      `json:"name"`
	Description         *string                      `json:"description"`
	WalletID            Optional[string]             `json:"wallet_id"`
	TriggerType         *string                      `json:"trigger_type"`
	TriggerConfig       json.RawMessage              `json:"trigger_config"`
	Rail                *string                      `json:"rail"`
	PriorityClass       *string                      `json:"priority_class"`
	MinimumAmount       Optional[domain.Money]       `json:"minimum_amount"`
	MaximumAmount       Optional[domain.Money]       `json:"maximum_amount"`
	DestinationCurrency *string                      `json:"destination_currency"`
	Destination         Optional[domain.Destination] `json:"destination"`
	Enabled             *bool                        `json:"enabled"`
	Priority            *int                         `json:"priority"`
	Metadata            map[string]any               `json:"metadata"`
}

type RuleRef struct {
	TenantID string `json:"tenant_id"`
	RuleID   string `json:"rule_id"`
}

type ExecutionRef struct {
	TenantID    string `json:"tenant_id"`
	ExecutionID string `json:"execution_id"`
}

type ListRulesRequest struct {
	TenantID    string `json:"tenant_id"`
	Enabled     *bool  `json:"enabled"`
	TriggerType string `json:"trigger_type"`
	WalletID    string `json:"wallet_id"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
}

type ListExecutionsRequest struct {
	TenantID string `json:"tenant_id"`
	RuleID   string `json:"rule_id"`
	Status   string `json:"status"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}
