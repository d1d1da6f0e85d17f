package mappers

import (
	"encoding/json"
	"fmt"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
	"gorm.io/datatypes"
)

func ToGORMRule(rule *domain.SettlementRule) (*models.SettlementRuleModel, error) {
	triggerConfig, err := domain.EncodeTriggerConfig(rule.TriggerConfig)
	if err != nil {
		return nil, err
	}
	destination, err := marshalOptional(rule.Destination)
	if err != nil {
		return nil, fmt.Errorf("encode destination: %w", err)
	}
	metadata, err := marshalOptional(rule.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	model := &models.SettlementRuleModel{
		ID:                  rule.ID,
		TenantID:            rule.TenantID,
		WalletID:            rule.WalletID,
		Name:                rule.Name,
		Description:         rule.Description,
		TriggerType:         string(rule.TriggerType),
		TriggerConfig:       datatypes.JSON(triggerConfig),
		Rail:                string(rule.Rail),
		PriorityClass:       string(rule.PriorityClass),
		DestinationCurrency: rule.DestinationCurrency,
		Destination:         destination,
		Enabled:             rule.Enabled,
		Priority:            rule.Priority,
		Metadata:            metadata,
		CreatedAt:           rule.CreatedAt,
		UpdatedAt:           rule.UpdatedAt,
	}
	if rule.MinimumAmount != nil {
		model.MinimumAmount = &rule.MinimumAmount.Amount
		model.MinimumCurrency = &rule.MinimumAmount.Currency
	}
	if rule.MaximumAmount != nil {
		model.MaximumAmount = &rule.MaximumAmount.Amount
		model.MaximumCurrency = &rule.MaximumAmount.Currency
	}
	return model, nil
}

func ToDomainRule(model *models.SettlementRuleModel) (*domain.SettlementRule, error) {
	triggerType := domain.TriggerType(model.TriggerType)
	triggerConfig, err := domain.DecodeTriggerConfig(triggerType, model.TriggerConfig)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", model.ID, err)
	}

	rule := &domain.SettlementRule{
		ID:                  model.ID,
		TenantID:            model.TenantID,
		WalletID:            model.WalletID,
		Name:                model.Name,
		Description:         model.Description,
		TriggerType:         triggerType,
		TriggerConfig:       triggerConfig,
		Rail:                domain.Rail(model.Rail),
		PriorityClass:       domain.PriorityClass(model.PriorityClass),
		DestinationCurrency: model.DestinationCurrency,
		Enabled:             model.Enabled,
		Priority:            model.Priority,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
	rule.MinimumAmount = toMoney(model.MinimumAmount, model.MinimumCurrency)
	rule.MaximumAmount = toMoney(model.MaximumAmount, model.MaximumCurrency)

	if len(model.Destination) > 0 && string(model.Destination) != "null" {
		var dest domain.Destination
		if err := json.Unmarshal(model.Destination, &dest); err != nil {
			return nil, fmt.Errorf("rule %s: decode destination: %w", model.ID, err)
		}
		rule.Destination = &dest
	}
	if err := unmarshalOptional(model.Metadata, &rule.Metadata); err != nil {
		return nil, fmt.Errorf("rule %s: decode metadata: %w", model.ID, err)
	}
	return rule, nil
}

func toMoney(amount *float64, currency *string) *domain.Money {
	if amount == nil || currency == nil {
		return nil
	}
	return &domain.Money{Amount: *amount, Currency: *currency}
}

func marshalOptional[T any](v T) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return datatypes.JSON(b), nil
}

func unmarshalOptional(raw datatypes.JSON, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
