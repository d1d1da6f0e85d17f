package domain

import (
	"context"
	"time"
)

type Rail string

const (
	RailAuto Rail = "auto"
	RailACH  Rail = "ach"
	RailPix  Rail = "pix"
	RailSPEI Rail = "spei"
	RailWire Rail = "wire"
	RailUSDC Rail = "usdc"
)

func (r Rail) Valid() bool {
	switch r {
	case RailAuto, RailACH, RailPix, RailSPEI, RailWire, RailUSDC:
		return true
	}
	return false
}

type PriorityClass string

const (
	PriorityStandard  PriorityClass = "standard"
	PriorityExpedited PriorityClass = "expedited"
)

func (p PriorityClass) Valid() bool {
	return p == PriorityStandard || p == PriorityExpedited
}

// Money is an amount bound in a given currency.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// SettlementRule is a tenant-scoped policy describing when and how to settle.
type SettlementRule struct {
	ID          string
	TenantID    string
	WalletID    *string // nil applies to every wallet of the tenant
	Name        string
	Description string

	TriggerType   TriggerType
	TriggerConfig TriggerConfig

	Rail                Rail
	PriorityClass       PriorityClass
	MinimumAmount       *Money
	MaximumAmount       *Money
	DestinationCurrency string
	Destination         *Destination

	Enabled  bool
	Priority int // lower fires first
	Metadata map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppliesToWallet reports whether the rule's wallet scope covers walletID.
func (r *SettlementRule) AppliesToWallet(walletID string) bool {
	return r.WalletID == nil || walletID == "" || *r.WalletID == walletID
}

type RuleFilter struct {
	Enabled     *bool
	TriggerType TriggerType
	// WalletID narrows to rules with no wallet scope or this wallet.
	WalletID string
	Limit    int
	Offset   int
}

// RuleUpdate is a partial patch; nil fields are left untouched.
type RuleUpdate struct {
	Name                *string
	Description         *string
	WalletID            **string
	TriggerType         *TriggerType
	TriggerConfig       TriggerConfig
	Rail                *Rail
	PriorityClass       *PriorityClass
	MinimumAmount       **Money
	MaximumAmount       **Money
	DestinationCurrency *string
	Destination         **Destination
	Enabled             *bool
	Priority            *int
	Metadata            map[string]any
}

// TouchesTrigger reports whether the patch needs the trigger config re-validated.
func (u *RuleUpdate) TouchesTrigger() bool {
	return u.TriggerType != nil || u.TriggerConfig != nil
}

// TriggerContext is the runtime snapshot handed to the evaluator.
type TriggerContext struct {
	TenantID       string   `json:"tenant_id"`
	WalletID       string   `json:"wallet_id,omitempty"`
	TransferType   string   `json:"transfer_type,omitempty"`
	CurrentBalance *float64 `json:"current_balance,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	TransferID     string   `json:"transfer_id,omitempty"`
}

type EvaluationResult struct {
	ShouldTrigger bool
	Rules         []*SettlementRule
	Reason        string
}

type SettlementRuleRepository interface {
	CreateRule(ctx context.Context, rule *SettlementRule) error
	UpdateRule(ctx context.Context, rule *SettlementRule) error
	DeleteRule(ctx context.Context, tenantID, ruleID string) error
	GetRule(ctx context.Context, tenantID, ruleID string) (*SettlementRule, error)
	// ListRules returns rules ordered by ascending priority.
	ListRules(ctx context.Context, tenantID string, filter RuleFilter) ([]*SettlementRule, error)
	// ListEnabledByTrigger crosses tenants; used by the schedule runner only.
	ListEnabledByTrigger(ctx context.Context, triggerType TriggerType) ([]*SettlementRule, error)
}
