package execution

import (
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// resolveAmount picks the amount to settle: the explicit request amount,
// otherwise the balance captured in the trigger context. A maximum in the
// same currency caps it; a minimum in the same currency rejects it.
func resolveAmount(rule *domain.SettlementRule, req domain.ExecuteRequest) (float64, string, error) {
	currency := req.Currency
	if currency == "" {
		currency, _ = req.TriggerContext["currency"].(string)
	}
	if currency == "" {
		if cfg, ok := rule.TriggerConfig.(domain.ThresholdConfig); ok {
			currency = cfg.Currency
		}
	}
	if !domain.ValidCurrency(currency) {
		return 0, "", domain.Validationf("settlement currency %q is missing or invalid", currency)
	}

	var amount float64
	switch {
	case req.Amount != nil:
		amount = *req.Amount
	default:
		balance, ok := numeric(req.TriggerContext["current_balance"])
		if !ok {
			return 0, "", domain.Validationf("no amount given and the trigger context carries no balance")
		}
		amount = balance
	}
	if amount <= 0 {
		return 0, "", domain.Validationf("settlement amount must be positive")
	}

	if upper := rule.MaximumAmount; upper != nil && upper.Currency == currency && amount > upper.Amount {
		amount = upper.Amount
	}
	if lower := rule.MinimumAmount; lower != nil && lower.Currency == currency && amount < lower.Amount {
		return 0, "", domain.Validationf("amount %.2f %s is below the rule minimum of %.2f", amount, currency, lower.Amount)
	}
	return amount, currency, nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func reasonFor(t domain.TriggerType) string {
	switch t {
	case domain.TriggerThreshold:
		return domain.TriggerReasonThreshold
	case domain.TriggerImmediate:
		return domain.TriggerReasonImmediate
	case domain.TriggerSchedule:
		return domain.TriggerReasonScheduled
	default:
		return domain.TriggerReasonManual
	}
}

func contextSnapshot(tc domain.TriggerContext) map[string]any {
	snapshot := map[string]any{"tenant_id": tc.TenantID}
	if tc.WalletID != "" {
		snapshot["wallet_id"] = tc.WalletID
	}
	if tc.TransferType != "" {
		snapshot["transfer_type"] = tc.TransferType
	}
	if tc.CurrentBalance != nil {
		snapshot["current_balance"] = *tc.CurrentBalance
	}
	if tc.Currency != "" {
		snapshot["currency"] = tc.Currency
	}
	if tc.TransferID != "" {
		snapshot["transfer_id"] = tc.TransferID
	}
	return snapshot
}
