package postgres

import (
	"log"

	"github.com/LavaJover/shvark-settlement-service/internal/config"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func MustInitDB(cfg *config.SettlementConfig) *gorm.DB {
	dsn := cfg.SettlementDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}
	return db
}

// AutoMigrate creates the settlement tables from the gorm models. Production
// uses the SQL migrations; this serves tests and local runs without them.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.SettlementRuleModel{}, &models.RuleExecutionModel{})
}
