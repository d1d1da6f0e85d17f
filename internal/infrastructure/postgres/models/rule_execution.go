package models

import (
	"time"

	"gorm.io/datatypes"
)

type RuleExecutionModel struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	TenantID       string `gorm:"not null;index"`
	RuleID         string `gorm:"not null;index"`
	Status         string `gorm:"not null;index"`
	TriggerReason  string
	TriggerContext datatypes.JSON

	Amount       *float64
	Currency     string
	Rail         string
	LockID       string
	SettlementID string
	ErrorMessage string
	ErrorCode    string

	StartedAt   time.Time `gorm:"not null;index"`
	CompletedAt *time.Time
}

func (RuleExecutionModel) TableName() string {
	return "rule_executions"
}
