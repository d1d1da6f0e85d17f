package domain

import (
	"context"
	"time"
)

type Message struct {
	Key   []byte
	Value []byte
}

type PublisherPort interface {
	Publish(ctx context.Context, msgs ...Message) error
}

type SubscriberPort interface {
	Subscribe(ctx context.Context, topic, groupID string) (<-chan Message, error)
}

// ExecutionEvent is emitted on every execution status transition.
type ExecutionEvent struct {
	ExecutionID   string          `json:"execution_id"`
	TenantID      string          `json:"tenant_id"`
	RuleID        string          `json:"rule_id"`
	Status        ExecutionStatus `json:"status"`
	Rail          Rail            `json:"rail"`
	Amount        *float64        `json:"amount,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	SettlementID  string          `json:"settlement_id,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	TriggerReason string          `json:"trigger_reason"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type ExecutionEventPublisher interface {
	PublishExecution(ctx context.Context, event ExecutionEvent) error
}

// BalanceEvent is consumed from the wallet service when a balance changes.
type BalanceEvent struct {
	TenantID     string  `json:"tenant_id"`
	WalletID     string  `json:"wallet_id"`
	Balance      float64 `json:"balance"`
	Currency     string  `json:"currency"`
	TransferType string  `json:"transfer_type,omitempty"`
	TransferID   string  `json:"transfer_id,omitempty"`
}

func (e BalanceEvent) TriggerContext() TriggerContext {
	balance := e.Balance
	return TriggerContext{
		TenantID:       e.TenantID,
		WalletID:       e.WalletID,
		TransferType:   e.TransferType,
		CurrentBalance: &balance,
		Currency:       e.Currency,
		TransferID:     e.TransferID,
	}
}
