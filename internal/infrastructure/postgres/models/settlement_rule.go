package models

import (
	"time"

	"gorm.io/datatypes"
)

type SettlementRuleModel struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)"`
	TenantID    string  `gorm:"not null;uniqueIndex:idx_settlement_rules_tenant_name;index:idx_settlement_rules_tenant_priority,priority:1"`
	WalletID    *string `gorm:"index"`
	Name        string  `gorm:"not null;uniqueIndex:idx_settlement_rules_tenant_name"`
	Description string

	TriggerType   string         `gorm:"not null;index"`
	TriggerConfig datatypes.JSON `gorm:"not null"`

	Rail                string `gorm:"not null"`
	PriorityClass       string `gorm:"not null"`
	MinimumAmount       *float64
	MinimumCurrency     *string
	MaximumAmount       *float64
	MaximumCurrency     *string
	DestinationCurrency string
	Destination         datatypes.JSON

	Enabled  bool `gorm:"not null"`
	Priority int  `gorm:"not null;index:idx_settlement_rules_tenant_priority,priority:2"`
	Metadata datatypes.JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SettlementRuleModel) TableName() string {
	return "settlement_rules"
}
