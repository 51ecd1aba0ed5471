package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/watchrun/internal/config"
)

func TestSetupWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	cfg := config.Default()
	logger := SetupWithWriter(cfg, &buf)

	logger.Info("hello", slog.String("key", "value"))

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "key=value")
}

func TestSetupWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	cfg := config.Default()
	cfg.LogFormat = config.LogFormatJSON

	logger := SetupWithWriter(cfg, &buf)
	logger.Info("hello", slog.String("key", "value"))

	var entry map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestSetupWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	cfg := config.Default()
	cfg.LogLevel = config.LogLevelWarn

	logger := SetupWithWriter(cfg, &buf)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestSetupWithWriter_QuietOverridesLevel(t *testing.T) {
	var buf bytes.Buffer

	cfg := config.Default()
	cfg.LogLevel = config.LogLevelDebug
	cfg.Quiet = true

	logger := SetupWithWriter(cfg, &buf)

	logger.Warn("dropped")
	logger.Error("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{config.LogLevelDebug, slog.LevelDebug},
		{config.LogLevelInfo, slog.LevelInfo},
		{config.LogLevelWarn, slog.LevelWarn},
		{config.LogLevelError, slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}
