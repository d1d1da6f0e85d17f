package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const configPathEnv = "SETTLEMENT_CONFIG_PATH"

type SettlementConfig struct {
	Env           string `yaml:"env" env:"SETTLEMENT_ENV" env-default:"local"`
	GRPCServer    `yaml:"grpc_server"`
	MetricsServer `yaml:"metrics_server"`
	SettlementDB  `yaml:"settlement_db"`
	LogConfig     `yaml:"log_config"`
	Kafka         `yaml:"kafka"`
	Redis         `yaml:"redis"`
	Rails         `yaml:"rails"`
	WalletService `yaml:"wallet_service"`
	FX            `yaml:"fx"`
	Execution     `yaml:"execution"`
	Scheduler     `yaml:"scheduler"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50061"`
}

type MetricsServer struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"9101"`
}

type SettlementDB struct {
	Dsn            string `yaml:"dsn" env:"SETTLEMENT_DB_DSN" env-required:"true"`
	MigrationsPath string `yaml:"migrations_path" env:"SETTLEMENT_MIGRATIONS_PATH" env-default:"migrations"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
}

type Kafka struct {
	Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	ExecutionTopic string   `yaml:"execution_topic" env-default:"settlement-execution-events"`
	BalanceTopic   string   `yaml:"balance_topic" env-default:"wallet-balance-events"`
	GroupID        string   `yaml:"group_id" env-default:"settlement-service"`
}

func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

type Redis struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Rails struct {
	BaseURL string        `yaml:"base_url" env:"RAILS_BASE_URL" env-required:"true"`
	APIKey  string        `yaml:"api_key" env:"RAILS_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"20s"`
}

type WalletService struct {
	BaseURL string        `yaml:"base_url" env:"WALLET_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type FX struct {
	QuoteTTL        time.Duration      `yaml:"quote_ttl" env-default:"60s"`
	LockTTL         time.Duration      `yaml:"lock_ttl" env-default:"30s"`
	JitterPct       float64            `yaml:"jitter_pct" env-default:"0.1"`
	DefaultFeePct   float64            `yaml:"default_fee_pct" env-default:"0.75"`
	CorridorFees    map[string]float64 `yaml:"corridor_fees"`
	LiveSourceURL   string             `yaml:"live_source_url" env:"FX_LIVE_SOURCE_URL"`
	RefreshInterval time.Duration      `yaml:"refresh_interval" env-default:"1m"`
	CacheTTL        time.Duration      `yaml:"cache_ttl" env-default:"5m"`
	FetchTimeout    time.Duration      `yaml:"fetch_timeout" env-default:"5s"`
	RequestsPerMin  int                `yaml:"requests_per_min" env-default:"30"`
	SweepInterval   time.Duration      `yaml:"sweep_interval" env-default:"30s"`
}

type Execution struct {
	StoreTimeout    time.Duration `yaml:"store_timeout" env-default:"3s"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout" env-default:"30s"`
}

type Scheduler struct {
	Enabled        bool          `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	ReloadInterval time.Duration `yaml:"reload_interval" env-default:"1m"`
}

// Load reads the YAML file at path and applies env overrides and defaults.
func Load(path string) (*SettlementConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	var cfg SettlementConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *SettlementConfig {
	configPath := os.Getenv(configPathEnv)
	if configPath == "" {
		log.Fatalf("%s was not found\n", configPathEnv)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}
