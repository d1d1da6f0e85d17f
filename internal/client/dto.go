package client

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type balanceResponse struct {
	TenantID string  `json:"tenant_id"`
	WalletID string  `json:"wallet_id"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	Frozen   float64 `json:"frozen"`
}

type settlementRequest struct {
	Rail          string            `json:"rail"`
	PriorityClass string            `json:"priority_class"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Beneficiary   string            `json:"beneficiary,omitempty"`
	Destination   map[string]string `json:"destination,omitempty"`
	LockID        string            `json:"lock_id,omitempty"`
	Rate          float64           `json:"rate,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
}

type settlementResponse struct {
	SettlementID string `json:"settlement_id"`
	Status       string `json:"status"`
}
