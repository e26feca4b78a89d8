package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	r := LoadEnvString("TEST_STRING", "default", nil)
	assert.Equal(t, "value", r.Value)
	assert.False(t, r.FallbackApplied)

	t.Setenv("TEST_STRING", "")
	r = LoadEnvString("TEST_STRING", "default", nil)
	assert.Equal(t, "default", r.Value)
	assert.False(t, r.FallbackApplied)
	assert.Empty(t, r.Warnings)
}

func TestLoadEnvString_ValidationFallback(t *testing.T) {
	t.Setenv("TEST_URL", "ftp://backend")
	r := LoadEnvString("TEST_URL", "http://localhost:8000", ValidateHTTPURL)

	assert.Equal(t, "http://localhost:8000", r.Value)
	assert.True(t, r.FallbackApplied)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "Invalid TEST_URL='ftp://backend'")
	assert.Contains(t, r.Warnings[0], "falling back to default 'http://localhost:8000'")
}

func TestLoadEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
		fallback bool
	}{
		{name: "valid", value: "45s", expected: 45 * time.Second},
		{name: "compound", value: "1h30m", expected: 90 * time.Minute},
		{name: "unset", value: "", expected: time.Minute},
		{name: "invalid format", value: "soon", expected: time.Minute, fallback: true},
		{name: "negative", value: "-5s", expected: time.Minute, fallback: true},
		{name: "zero", value: "0s", expected: time.Minute, fallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			r := LoadEnvDuration("TEST_DURATION", time.Minute, ValidatePositiveDuration)
			assert.Equal(t, tt.expected, r.Value)
			assert.Equal(t, tt.fallback, r.FallbackApplied)
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
		fallback bool
	}{
		{name: "valid", value: "5", expected: 5},
		{name: "zero allowed", value: "0", expected: 0},
		{name: "unset", value: "", expected: 3},
		{name: "decimal", value: "2.5", expected: 3, fallback: true},
		{name: "spaces", value: " 4 ", expected: 3, fallback: true},
		{name: "above maximum", value: "11", expected: 3, fallback: true},
		{name: "negative", value: "-1", expected: 3, fallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			r := LoadEnvInt("TEST_INT", 3, func(v int) error { return ValidateIntRange(v, 0, 10) })
			assert.Equal(t, tt.expected, r.Value)
			assert.Equal(t, tt.fallback, r.FallbackApplied)
		})
	}
}

func TestLoadEnvBool(t *testing.T) {
	for _, v := range []string{"1", "t", "true", "TRUE", "True"} {
		t.Setenv("TEST_BOOL", v)
		assert.True(t, LoadEnvBool("TEST_BOOL", false).Value, v)
	}
	for _, v := range []string{"0", "f", "false", "FALSE"} {
		t.Setenv("TEST_BOOL", v)
		assert.False(t, LoadEnvBool("TEST_BOOL", true).Value, v)
	}

	t.Setenv("TEST_BOOL", "maybe")
	r := LoadEnvBool("TEST_BOOL", true)
	assert.True(t, r.Value)
	assert.True(t, r.FallbackApplied)
}

func TestLoader_RecordsFallbacks(t *testing.T) {
	t.Setenv("TEST_LOADER_TIMEOUT", "bogus")
	t.Setenv("TEST_LOADER_RETRIES", "7")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	metrics := NewConfigMetrics("loader_test", prometheus.NewRegistry())

	l := NewLoader(logger, metrics)
	timeout := l.Duration("timeout", "TEST_LOADER_TIMEOUT", 5*time.Minute, ValidatePositiveDuration)
	retries := l.Int("retries", "TEST_LOADER_RETRIES", 3, nil)
	l.Finish()

	assert.Equal(t, 5*time.Minute, timeout)
	assert.Equal(t, 7, retries)
	assert.True(t, l.FallbackApplied())
	assert.Contains(t, buf.String(), "Configuration fallback applied")
	assert.Contains(t, buf.String(), `"field":"timeout"`)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("retries")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), 0.0)
}

func TestLoader_NoFallbacks(t *testing.T) {
	t.Setenv("TEST_LOADER_PATH", "/health")

	metrics := NewConfigMetrics("loader_clean", prometheus.NewRegistry())
	l := NewLoader(nil, metrics)
	path := l.String("health_path", "TEST_LOADER_PATH", "/", ValidatePath)
	l.Finish()

	assert.Equal(t, "/health", path)
	assert.False(t, l.FallbackApplied())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbackActive))
}

func TestLoader_NilMetrics(t *testing.T) {
	t.Setenv("TEST_LOADER_FLAG", "nope")

	l := NewLoader(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil)
	assert.True(t, l.Bool("flag", "TEST_LOADER_FLAG", true))
	assert.NotPanics(t, l.Finish)
}
