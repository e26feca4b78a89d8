package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult represents the result of loading a configuration value.
// It contains the loaded value, any warnings generated during loading,
// and a flag indicating whether a fallback value was used.
//
// Fields:
//   - Value: The loaded configuration value (the default if parsing or validation failed)
//   - Warnings: List of warning messages (one per fallback applied)
//   - FallbackApplied: True if the default value was used due to a bad value
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// LoadEnv loads a value from an environment variable with parsing, validation
// and automatic fallback to the default.
//
// Loading behavior:
//  1. Read environment variable
//  2. If not set or empty: Use default value (no warning)
//  3. If set: Parse, then validate using the provided validator
//  4. If parsing or validation fails: Use default value and generate warning
//
// This function never returns an error. Failures result in warnings.
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnv[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	fallback := func(err error) LoadResult[T] {
		return LoadResult[T]{
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, raw, err, defaultValue,
			)},
			FallbackApplied: true,
		}
	}

	value, err := parse(raw)
	if err != nil {
		return fallback(err)
	}
	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(err)
		}
	}

	return LoadResult[T]{Value: value}
}

// LoadEnvString loads a string value, validated when validator is non-nil.
func LoadEnvString(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return LoadEnv(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a Go duration string ("30s", "5m", "1h30m").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return LoadEnv(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer. Surrounding whitespace is rejected.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return LoadEnv(envKey, defaultValue, strconv.Atoi, validator)
}

// LoadEnvBool loads a boolean accepted by strconv.ParseBool.
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	return LoadEnv(envKey, defaultValue, func(s string) (bool, error) {
		return strconv.ParseBool(strings.TrimSpace(s))
	}, nil)
}

// Loader applies the fail-open strategy over many fields and keeps the
// bookkeeping in one place: every fallback is logged and counted.
//
// Example:
//
//	l := config.NewLoader(logger, metrics)
//	cfg.Timeout = l.Duration("timeout", "PPT_API_TIMEOUT", cfg.Timeout, config.ValidatePositiveDuration)
//	cfg.Retries = l.Int("retries", "PPT_API_RETRIES", cfg.Retries, nil)
//	l.Finish()
type Loader struct {
	logger   *slog.Logger
	metrics  *ConfigMetrics
	fallback bool
}

// NewLoader creates a Loader. metrics may be nil.
func NewLoader(logger *slog.Logger, metrics *ConfigMetrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, metrics: metrics}
}

// String loads a string field.
func (l *Loader) String(field, envKey, defaultValue string, validator func(string) error) string {
	r := LoadEnvString(envKey, defaultValue, validator)
	l.record(field, r.FallbackApplied, r.Warnings)
	return r.Value
}

// Duration loads a duration field.
func (l *Loader) Duration(field, envKey string, defaultValue time.Duration, validator func(time.Duration) error) time.Duration {
	r := LoadEnvDuration(envKey, defaultValue, validator)
	l.record(field, r.FallbackApplied, r.Warnings)
	return r.Value
}

// Int loads an integer field.
func (l *Loader) Int(field, envKey string, defaultValue int, validator func(int) error) int {
	r := LoadEnvInt(envKey, defaultValue, validator)
	l.record(field, r.FallbackApplied, r.Warnings)
	return r.Value
}

// Bool loads a boolean field.
func (l *Loader) Bool(field, envKey string, defaultValue bool) bool {
	r := LoadEnvBool(envKey, defaultValue)
	l.record(field, r.FallbackApplied, r.Warnings)
	return r.Value
}

// FallbackApplied reports whether any field fell back to its default.
func (l *Loader) FallbackApplied() bool {
	return l.fallback
}

// Finish updates the fallback-active gauge and the load timestamp.
func (l *Loader) Finish() {
	if l.metrics == nil {
		return
	}
	l.metrics.SetFallbackActive(l.fallback)
	l.metrics.RecordLoadTimestamp()
}

func (l *Loader) record(field string, fallbackApplied bool, warnings []string) {
	if !fallbackApplied {
		return
	}
	l.fallback = true
	if l.metrics != nil {
		l.metrics.RecordValidationError(field)
		l.metrics.RecordFallback(field)
	}
	for _, warning := range warnings {
		l.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
}
