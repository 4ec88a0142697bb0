package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	require.NoError(t, os.Mkdir(tempConfigsSubDir, 0755))

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_EVENTS_TOPIC=%s\nSCHEDULER_MATERIALIZER_SCHEDULE=%s\n",
		"LedgerTest", 9090, "debug", "ledger-events-test", "30 1 * * *",
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_overrides.env")
	require.NoError(t, os.WriteFile(envFilePath, []byte(envContent), 0644))

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()
	require.NoError(t, os.Chdir(tempDir))

	cfg, err := LoadConfig("test_overrides")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "LedgerTest", cfg.Application.Name)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "ledger-events-test", cfg.Kafka.EventsTopic)
	assert.Equal(t, "30 1 * * *", cfg.Scheduler.MaterializerSchedule)

	// Untouched keys keep their defaults
	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, 10, cfg.Outbox.WorkerPoolSize)
	assert.Equal(t, "0 7 * * *", cfg.Scheduler.BudgetAlertSchedule)
}

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()
	require.NoError(t, os.Chdir(tempDir))

	cfg, err := LoadConfig("does_not_exist")
	require.NoError(t, err, "missing config file falls back to defaults")

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ledger-events", cfg.Kafka.EventsTopic)
	assert.Equal(t, "migrations/postgres", cfg.Postgres.MigrationsPath)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollingInterval)
}

func TestConfig_Validate(t *testing.T) {
	newValid := func() *Config {
		cfg, err := LoadConfig("does_not_exist")
		require.NoError(t, err)
		return cfg
	}

	t.Run("missing postgres URL", func(t *testing.T) {
		cfg := newValid()
		cfg.Postgres.URL = ""
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "POSTGRES_URL")
	})

	t.Run("zero worker pool", func(t *testing.T) {
		cfg := newValid()
		cfg.Outbox.WorkerPoolSize = 0
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OUTBOX_WORKER_POOL_SIZE")
	})

	t.Run("missing schedule", func(t *testing.T) {
		cfg := newValid()
		cfg.Scheduler.MaterializerSchedule = ""
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SCHEDULER_MATERIALIZER_SCHEDULE")
	})
}
