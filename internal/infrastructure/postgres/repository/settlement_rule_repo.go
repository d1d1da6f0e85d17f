package repository

import (
	"context"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultSettlementRuleRepository struct {
	db *gorm.DB
}

func NewDefaultSettlementRuleRepository(db *gorm.DB) *DefaultSettlementRuleRepository {
	return &DefaultSettlementRuleRepository{db: db}
}

func (r *DefaultSettlementRuleRepository) CreateRule(ctx context.Context, rule *domain.SettlementRule) error {
	model, err := mappers.ToGORMRule(rule)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err, "create rule %q", rule.Name)
	}
	return nil
}

func (r *DefaultSettlementRuleRepository) UpdateRule(ctx context.Context, rule *domain.SettlementRule) error {
	model, err := mappers.ToGORMRule(rule)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.SettlementRuleModel{}).
		Where("id = ? AND tenant_id = ?", rule.ID, rule.TenantID).
		Select("*").
		Omit("id", "tenant_id", "created_at").
		Updates(model)
	if result.Error != nil {
		return translate(result.Error, "update rule %s", rule.ID)
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "rule %s", rule.ID)
	}
	return nil
}

func (r *DefaultSettlementRuleRepository) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", ruleID, tenantID).
		Delete(&models.SettlementRuleModel{})
	if result.Error != nil {
		return translate(result.Error, "delete rule %s", ruleID)
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "rule %s", ruleID)
	}
	return nil
}

func (r *DefaultSettlementRuleRepository) GetRule(ctx context.Context, tenantID, ruleID string) (*domain.SettlementRule, error) {
	var model models.SettlementRuleModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", ruleID, tenantID).
		First(&model).Error; err != nil {
		return nil, translate(err, "rule %s", ruleID)
	}
	return mappers.ToDomainRule(&model)
}

func (r *DefaultSettlementRuleRepository) ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]*domain.SettlementRule, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SettlementRuleModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}
	if filter.TriggerType != "" {
		query = query.Where("trigger_type = ?", string(filter.TriggerType))
	}
	if filter.WalletID != "" {
		query = query.Where("(wallet_id IS NULL OR wallet_id = ?)", filter.WalletID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var ruleModels []models.SettlementRuleModel
	if err := query.Order("priority ASC, created_at ASC, id ASC").Find(&ruleModels).Error; err != nil {
		return nil, translate(err, "list rules for tenant %s", tenantID)
	}
	return toDomainRules(ruleModels)
}

func (r *DefaultSettlementRuleRepository) ListEnabledByTrigger(ctx context.Context, triggerType domain.TriggerType) ([]*domain.SettlementRule, error) {
	var ruleModels []models.SettlementRuleModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND trigger_type = ?", true, string(triggerType)).
		Order("priority ASC, created_at ASC, id ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, translate(err, "list %s rules", triggerType)
	}
	return toDomainRules(ruleModels)
}

func toDomainRules(ruleModels []models.SettlementRuleModel) ([]*domain.SettlementRule, error) {
	rules := make([]*domain.SettlementRule, 0, len(ruleModels))
	for i := range ruleModels {
		rule, err := mappers.ToDomainRule(&ruleModels[i])
		if err != nil {
			return nil, translate(err, "decode rule")
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
