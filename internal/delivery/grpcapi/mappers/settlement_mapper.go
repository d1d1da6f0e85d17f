package mappers

import (
	"encoding/json"
	"strings"

	"github.com/LavaJover/shvark-settlement-service/internal/delivery/grpcapi/dto"
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

func ToRuleResponse(rule *domain.SettlementRule) dto.RuleResponse {
	var cfg any = map[string]any{}
	if rule.TriggerConfig != nil {
		cfg = rule.TriggerConfig
	}
	return dto.RuleResponse{
		ID:                  rule.ID,
		TenantID:            rule.TenantID,
		WalletID:            rule.WalletID,
		Name:                rule.Name,
		Description:         rule.Description,
		TriggerType:         string(rule.TriggerType),
		TriggerConfig:       cfg,
		Rail:                string(rule.Rail),
		PriorityClass:       string(rule.PriorityClass),
		MinimumAmount:       rule.MinimumAmount,
		MaximumAmount:       rule.MaximumAmount,
		DestinationCurrency: rule.DestinationCurrency,
		Destination:         rule.Destination,
		Enabled:             rule.Enabled,
		Priority:            rule.Priority,
		Metadata:            rule.Metadata,
		CreatedAt:           rule.CreatedAt,
		UpdatedAt:           rule.UpdatedAt,
	}
}

func ToRuleResponses(rules []*domain.SettlementRule) []dto.RuleResponse {
	out := make([]dto.RuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ToRuleResponse(rule))
	}
	return out
}

func ToExecutionResponse(execution *domain.RuleExecution) dto.ExecutionResponse {
	return dto.ExecutionResponse{
		ID:             execution.ID,
		TenantID:       execution.TenantID,
		RuleID:         execution.RuleID,
		Status:         string(execution.Status),
		TriggerReason:  execution.TriggerReason,
		TriggerContext: execution.TriggerContext,
		Amount:         execution.Amount,
		Currency:       execution.Currency,
		Rail:           string(execution.Rail),
		LockID:         execution.LockID,
		SettlementID:   execution.SettlementID,
		ErrorMessage:   execution.ErrorMessage,
		ErrorCode:      execution.ErrorCode,
		StartedAt:      execution.StartedAt,
		CompletedAt:    execution.CompletedAt,
	}
}

func ToExecuteResponse(result *domain.ExecuteResult) dto.ExecuteResponse {
	return dto.ExecuteResponse{
		Success:      result.Success,
		ExecutionID:  result.ExecutionID,
		SettlementID: result.SettlementID,
		Status:       string(result.Status),
		Error:        result.Error,
		ErrorCode:    string(result.ErrorCode),
	}
}

func ToDomainRule(req dto.CreateRuleRequest) (*domain.SettlementRule, error) {
	triggerType := domain.TriggerType(strings.ToLower(strings.TrimSpace(req.TriggerType)))
	cfg, err := decodeTrigger(triggerType, req.TriggerConfig)
	if err != nil {
		return nil, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return &domain.SettlementRule{
		TenantID:            req.TenantID,
		WalletID:            req.WalletID,
		Name:                req.Name,
		Description:         req.Description,
		TriggerType:         triggerType,
		TriggerConfig:       cfg,
		Rail:                domain.Rail(strings.ToLower(req.Rail)),
		PriorityClass:       domain.PriorityClass(strings.ToLower(req.PriorityClass)),
		MinimumAmount:       req.MinimumAmount,
		MaximumAmount:       req.MaximumAmount,
		DestinationCurrency: strings.ToUpper(req.DestinationCurrency),
		Destination:         req.Destination,
		Enabled:             enabled,
		Priority:            req.Priority,
		Metadata:            req.Metadata,
	}, nil
}

// ToRuleUpdate builds the patch; currentType is used to decode a trigger
// config sent without a trigger type.
func ToRuleUpdate(req dto.UpdateRuleRequest, currentType domain.TriggerType) (domain.RuleUpdate, error) {
	patch := domain.RuleUpdate{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
	}

	triggerType := currentType
	if req.TriggerType != nil {
		triggerType = domain.TriggerType(strings.ToLower(strings.TrimSpace(*req.TriggerType)))
		patch.TriggerType = &triggerType
	}
	if hasValue(req.TriggerConfig) {
		cfg, err := decodeTrigger(triggerType, req.TriggerConfig)
		if err != nil {
			return domain.RuleUpdate{}, err
		}
		patch.TriggerConfig = cfg
	}

	if req.Rail != nil {
		rail := domain.Rail(strings.ToLower(*req.Rail))
		patch.Rail = &rail
	}
	if req.PriorityClass != nil {
		class := domain.PriorityClass(strings.ToLower(*req.PriorityClass))
		patch.PriorityClass = &class
	}
	if req.DestinationCurrency != nil {
		currency := strings.ToUpper(*req.DestinationCurrency)
		patch.DestinationCurrency = &currency
	}
	if req.WalletID.Set {
		walletID := req.WalletID.Value
		patch.WalletID = &walletID
	}
	if req.MinimumAmount.Set {
		minimum := req.MinimumAmount.Value
		patch.MinimumAmount = &minimum
	}
	if req.MaximumAmount.Set {
		maximum := req.MaximumAmount.Value
		patch.MaximumAmount = &maximum
	}
	if req.Destination.Set {
		destination := req.Destination.Value
		patch.Destination = &destination
	}
	return patch, nil
}

func ToTriggerContext(req dto.EvaluateRequest) domain.TriggerContext {
	return domain.TriggerContext{
		TenantID:       req.TenantID,
		WalletID:       req.WalletID,
		TransferType:   req.TransferType,
		CurrentBalance: req.CurrentBalance,
		Currency:       strings.ToUpper(req.Currency),
		TransferID:     req.TransferID,
	}
}

func ToExecuteRequest(req dto.ExecuteRequest) domain.ExecuteRequest {
	return domain.ExecuteRequest{
		TenantID:       req.TenantID,
		RuleID:         req.RuleID,
		TriggerReason:  req.TriggerReason,
		TriggerContext: req.TriggerContext,
		Amount:         req.Amount,
		Currency:       strings.ToUpper(req.Currency),
		DryRun:         req.DryRun,
	}
}

func ToQuoteRequest(req dto.QuoteRequest) domain.QuoteRequest {
	return domain.QuoteRequest{
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		SourceAmount:        req.SourceAmount,
		DestinationAmount:   req.DestinationAmount,
	}
}

func decodeTrigger(triggerType domain.TriggerType, raw json.RawMessage) (domain.TriggerConfig, error) {
	if !hasValue(raw) {
		if triggerType == domain.TriggerManual {
			return domain.ManualConfig{}, nil
		}
		return nil, nil
	}
	return domain.DecodeTriggerConfig(triggerType, raw)
}

func hasValue(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
