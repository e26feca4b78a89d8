// Package config provides reusable configuration loading and validation helpers.
// Loading is fail-open: a bad environment value never stops the process, it is
// replaced by the default and reported through logs and metrics.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidateDuration validates that a duration is within [min, max].
//
// Example:
//
//	// Validate timeout is between 1s and 1h
//	err := ValidateDuration(30*time.Minute, 1*time.Second, 1*time.Hour)
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}

	if duration < min {
		return fmt.Errorf("duration %v is below minimum %v", duration, min)
	}

	if duration > max {
		return fmt.Errorf("duration %v exceeds maximum %v", duration, max)
	}

	return nil
}

// ValidateIntRange validates that an integer value is within [min, max].
//
// Use cases:
//   - Retry count validation (e.g., 0-10 retries)
//   - Port number validation (e.g., 1024-65535)
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}

	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}

	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}

	return nil
}

// ValidatePositiveDuration validates that a duration is strictly positive.
// Timeouts and probe intervals use it; zero would mean "disabled", which
// these settings do not support.
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}

	return nil
}

// ValidateNonNegativeDuration validates that a duration is >= 0.
// A zero retry delay is allowed and means "retry immediately".
func ValidateNonNegativeDuration(duration time.Duration) error {
	if duration < 0 {
		return fmt.Errorf("duration must be non-negative, got %v", duration)
	}

	return nil
}

// ValidateHTTPURL validates that s is an absolute http or https URL with a host.
func ValidateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host: %q", s)
	}
	return nil
}

// ValidatePath validates that s is empty or starts with a slash.
func ValidatePath(s string) error {
	if s != "" && s[0] != '/' {
		return fmt.Errorf("path must start with '/', got %q", s)
	}
	return nil
}
