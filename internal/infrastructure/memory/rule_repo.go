package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// RuleRepository is a process-local SettlementRuleRepository.
type RuleRepository struct {
	mu    sync.RWMutex
	rules map[string]*domain.SettlementRule
}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{
		rules: make(map[string]*domain.SettlementRule),
	}
}

func (r *RuleRepository) CreateRule(ctx context.Context, rule *domain.SettlementRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.ID]; exists {
		return fmt.Errorf("%w: rule %s", domain.ErrDuplicate, rule.ID)
	}
	if r.nameTaken(rule.TenantID, rule.Name, rule.ID) {
		return fmt.Errorf("%w: rule name %q", domain.ErrDuplicate, rule.Name)
	}

	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

func (r *RuleRepository) UpdateRule(ctx context.Context, rule *domain.SettlementRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.rules[rule.ID]
	if !exists || existing.TenantID != rule.TenantID {
		return fmt.Errorf("%w: rule %s", domain.ErrNotFound, rule.ID)
	}
	if r.nameTaken(rule.TenantID, rule.Name, rule.ID) {
		return fmt.Errorf("%w: rule name %q", domain.ErrDuplicate, rule.Name)
	}

	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

func (r *RuleRepository) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.rules[ruleID]
	if !exists || existing.TenantID != tenantID {
		return fmt.Errorf("%w: rule %s", domain.ErrNotFound, ruleID)
	}
	delete(r.rules, ruleID)
	return nil
}

func (r *RuleRepository) GetRule(ctx context.Context, tenantID, ruleID string) (*domain.SettlementRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[ruleID]
	if !exists || rule.TenantID != tenantID {
		return nil, fmt.Errorf("%w: rule %s", domain.ErrNotFound, ruleID)
	}
	copied := *rule
	return &copied, nil
}

func (r *RuleRepository) ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]*domain.SettlementRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.SettlementRule
	for _, rule := range r.rules {
		if rule.TenantID != tenantID {
			continue
		}
		if filter.Enabled != nil && rule.Enabled != *filter.Enabled {
			continue
		}
		if filter.TriggerType != "" && rule.TriggerType != filter.TriggerType {
			continue
		}
		if filter.WalletID != "" && !rule.AppliesToWallet(filter.WalletID) {
			continue
		}
		copied := *rule
		result = append(result, &copied)
	}
	sortByPriority(result)
	return paginate(result, filter.Offset, filter.Limit), nil
}

func (r *RuleRepository) ListEnabledByTrigger(ctx context.Context, triggerType domain.TriggerType) ([]*domain.SettlementRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.SettlementRule
	for _, rule := range r.rules {
		if rule.Enabled && rule.TriggerType == triggerType {
			copied := *rule
			result = append(result, &copied)
		}
	}
	sortByPriority(result)
	return result, nil
}

// Caller holds r.mu.
func (r *RuleRepository) nameTaken(tenantID, name, exceptID string) bool {
	for id, rule := range r.rules {
		if id != exceptID && rule.TenantID == tenantID && rule.Name == name {
			return true
		}
	}
	return false
}

func sortByPriority(rules []*domain.SettlementRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
