package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
env: prod
settlement_db:
  dsn: postgres://settlement:secret@db:5432/settlement?sslmode=disable
rails:
  base_url: http://rails:8080
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
fx:
  lock_ttl: 15s
  corridor_fees:
    USD-BRL: 0.45
`)
	t.Setenv("GRPC_PORT", "6000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "6000", cfg.GRPCServer.Port)
	assert.Equal(t, "migrations", cfg.SettlementDB.MigrationsPath)
	assert.Equal(t, "info", cfg.LogConfig.LogLevel)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "settlement-execution-events", cfg.Kafka.ExecutionTopic)
	assert.Equal(t, "wallet-balance-events", cfg.Kafka.BalanceTopic)
	assert.Equal(t, 60*time.Second, cfg.FX.QuoteTTL)
	assert.Equal(t, 15*time.Second, cfg.FX.LockTTL)
	assert.Equal(t, 0.1, cfg.FX.JitterPct)
	assert.Equal(t, 0.45, cfg.FX.CorridorFees["USD-BRL"])
	assert.Equal(t, 30*time.Second, cfg.Execution.DispatchTimeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
