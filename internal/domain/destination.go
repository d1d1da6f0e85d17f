package domain

import "context"

// Destination is a payout target keyed by rail; Details holds the
// rail-specific fields (pix_key, clabe, routing_number, ...).
type Destination struct {
	Rail    Rail              `json:"rail"`
	Name    string            `json:"name,omitempty"`
	Details map[string]string `json:"details"`
}

// DispatchRequest is what the orchestrator hands to a settlement rail.
type DispatchRequest struct {
	IdempotencyKey string
	Rail           Rail
	PriorityClass  PriorityClass
	Amount         float64
	Currency       string
	Destination    *Destination
	LockedQuote    *LockedQuote
	Metadata       map[string]any
}

type SettlementDispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) (settlementID string, err error)
}

type BalanceReader interface {
	GetWalletBalance(ctx context.Context, tenantID, walletID string) (balance float64, currency string, err error)
}
