package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{name: "debug level", input: "debug", expected: slog.LevelDebug},
		{name: "info level", input: "info", expected: slog.LevelInfo},
		{name: "warn level", input: "warn", expected: slog.LevelWarn},
		{name: "warning alias", input: "warning", expected: slog.LevelWarn},
		{name: "error level", input: "error", expected: slog.LevelError},
		{name: "uppercase", input: "DEBUG", expected: slog.LevelDebug},
		{name: "padded", input: "  warn ", expected: slog.LevelWarn},
		{name: "empty defaults to info", input: "", expected: slog.LevelInfo},
		{name: "unknown defaults to info", input: "verbose", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestInitLogger(t *testing.T) {
	t.Run("json format carries service attribute", func(t *testing.T) {
		var buf bytes.Buffer
		logger := InitLogger(LogConfig{Level: "info", Format: "json", Service: "riskd", Output: &buf})
		require.NotNil(t, logger)

		logger.Info("prediction served", "user_id", "u-1")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "prediction served", record["msg"])
		assert.Equal(t, "riskd", record["service"])
		assert.Equal(t, "u-1", record["user_id"])
	})

	t.Run("level filters lower records", func(t *testing.T) {
		var buf bytes.Buffer
		logger := InitLogger(LogConfig{Level: "warn", Format: "text", Output: &buf})

		logger.Info("dropped")
		assert.Empty(t, buf.String())

		logger.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("installs default logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := InitLogger(LogConfig{Format: "text", Output: &buf})
		assert.Same(t, logger.Handler(), slog.Default().Handler())
	})
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
