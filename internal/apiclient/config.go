package apiclient

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultBasePath is the path prefix of the presentation API on the backend.
const DefaultBasePath = "/api/v1/ppt"

// Config holds the per-client request policy.
// It is copied into the client at construction and never modified afterwards.
type Config struct {
	// BaseURL is prepended verbatim to every request path,
	// e.g. "http://localhost:8000/api/v1/ppt".
	BaseURL string

	// Timeout bounds a whole call, retries and backoff waits included.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryDelay is the wait before the first retry; it doubles on each further retry.
	RetryDelay time.Duration
}

// DefaultConfig returns the policy used when nothing else is specified:
// 5 minute timeout, 3 retries, 1 second base delay.
func DefaultConfig() Config {
	return Config{
		Timeout:    5 * time.Minute,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// DefaultProfile returns the policy for regular backend calls:
// 5 minute timeout, 3 retries, 2 second base delay.
func DefaultProfile(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Timeout:    5 * time.Minute,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// LongRunningProfile returns the policy for generation and export calls:
// 10 minute timeout, 5 retries, 3 second base delay.
func LongRunningProfile(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Timeout:    10 * time.Minute,
		MaxRetries: 5,
		RetryDelay: 3 * time.Second,
	}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be >= 0, got %v", c.RetryDelay)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	return nil
}

// CallOption overrides part of the client's Config for a single call.
type CallOption func(*Config)

// WithTimeout overrides the call deadline.
func WithTimeout(d time.Duration) CallOption {
	return func(c *Config) { c.Timeout = d }
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) CallOption {
	return func(c *Config) { c.MaxRetries = n }
}

// WithRetryDelay overrides the base backoff delay.
func WithRetryDelay(d time.Duration) CallOption {
	return func(c *Config) { c.RetryDelay = d }
}

// merge returns a copy of c with opts applied; c itself is untouched.
func (c Config) merge(opts []CallOption) Config {
	merged := c
	for _, opt := range opts {
		if opt != nil {
			opt(&merged)
		}
	}
	return merged
}
