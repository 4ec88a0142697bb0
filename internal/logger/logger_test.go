package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/finbook-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	testCases := []struct {
		name          string
		logLevel      string
		enabledLevel  slog.Level
		disabledLevel slog.Level
	}{
		{"DebugLevel", "debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"InfoLevel", "info", slog.LevelInfo, slog.LevelDebug},
		{"WarnLevel", "warn", slog.LevelWarn, slog.LevelInfo},
		{"ErrorLevel", "error", slog.LevelError, slog.LevelWarn},
		{"DefaultToInfo", "unknown", slog.LevelInfo, slog.LevelDebug},
		{"EmptyToInfo", "", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{
				Application: config.ApplicationConfig{Name: "test"},
				Logging:     config.LoggingConfig{Level: tc.logLevel},
			}

			logger := NewLogger(cfg)
			require.NotNil(t, logger)

			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tc.enabledLevel))
			assert.False(t, logger.Enabled(ctx, tc.disabledLevel))
		})
	}
}

func TestNewLogger_ProductionUsesJSON(t *testing.T) {
	cfg := &config.Config{
		Application: config.ApplicationConfig{Name: "test", Env: "production"},
		Logging:     config.LoggingConfig{Level: "info"},
	}
	logger := NewLogger(cfg)
	require.NotNil(t, logger)

	_, ok := logger.Handler().(*slog.JSONHandler)
	assert.True(t, ok)
}
