package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"pptgen/internal/requestid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected slog.Level
	}{
		{name: "default log level (info)", logLevel: "", expected: slog.LevelInfo},
		{name: "debug log level", logLevel: "debug", expected: slog.LevelDebug},
		{name: "upper case", logLevel: "WARN", expected: slog.LevelWarn},
		{name: "error log level", logLevel: "error", expected: slog.LevelError},
		{name: "invalid log level defaults to info", logLevel: "invalid", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)
			assert.Equal(t, tt.expected, Level())
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	logger := New(&buf, "json")

	logger.Info("health check failed", slog.Int("attempt", 2))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "health check failed", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.EqualValues(t, 2, entry["attempt"])
}

func TestNew_TextOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	logger := New(&buf, "text")

	logger.Warn("retrying", slog.String("path", "/outlines"))

	out := buf.String()
	assert.True(t, strings.Contains(out, "level=WARN"))
	assert.True(t, strings.Contains(out, "path=/outlines"))
}

func TestNew_DebugSuppressedAtInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	var buf bytes.Buffer
	logger := New(&buf, "json")

	logger.Debug("noise")
	assert.Zero(t, buf.Len())
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := requestid.WithRequestID(context.Background(), "req-42")
	WithRequestID(ctx, base).Info("call")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])

	assert.Same(t, base, WithRequestID(context.Background(), base))
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
