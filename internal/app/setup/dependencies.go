package setup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/config"
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/repository"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config       *config.SettlementConfig
	Logger       *slog.Logger
	DB           *gorm.DB
	Redis        *goredis.Client
	Publisher    *kafka.DefaultKafkaPublisher
	Subscriber   *kafka.DefaultKafkaSubscriber
	Metrics      *metrics.SettlementMetrics
	Repositories *Repositories
}

type Repositories struct {
	Rules      domain.SettlementRuleRepository
	Executions domain.RuleExecutionRepository
}

func InitializeDependencies(cfg *config.SettlementConfig, logger *slog.Logger) (*Dependencies, error) {
	db := postgres.MustInitDB(cfg)
	if err := migrate.RunMigrations(db, cfg.SettlementDB.MigrationsPath); err != nil {
		logger.Warn("sql migrations failed, falling back to gorm automigrate", "error", err)
		if err := postgres.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Metrics: metrics.NewSettlementMetrics(nil),
		Repositories: &Repositories{
			Rules:      repository.NewDefaultSettlementRuleRepository(db),
			Executions: repository.NewDefaultRuleExecutionRepository(db),
		},
	}

	if cfg.Redis.Enabled {
		client, err := initRedis(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		deps.Redis = client
	}

	if cfg.Kafka.Enabled() {
		deps.Publisher = kafka.NewDefaultKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ExecutionTopic)
		deps.Subscriber = kafka.NewDefaultKafkaSubscriber(cfg.Kafka.Brokers, logger)
	} else {
		logger.Warn("kafka brokers not configured, execution events and balance triggers are disabled")
	}
	return deps, nil
}

func initRedis(cfg config.Redis) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Close releases connections opened by InitializeDependencies.
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Warn("failed to close kafka publisher", "error", err)
		}
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
