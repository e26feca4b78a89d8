package connectivity

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultInterval is the time between two health probes.
	DefaultInterval = 30 * time.Second

	// DefaultMaxOfflineTime is how long the backend may go without a successful
	// probe before it is reported unhealthy.
	DefaultMaxOfflineTime = 5 * time.Minute

	// DefaultProbeTimeout bounds a single health probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultHealthPath is appended to the backend base URL.
	DefaultHealthPath = "/health"

	// minInterval is the scheduler's resolution.
	minInterval = time.Second
)

// Config holds the monitor's parameters.
type Config struct {
	// HealthURL is the absolute URL probed on every tick,
	// e.g. "http://localhost:8000/api/v1/ppt/health".
	HealthURL string

	// Interval is the time between probes. Must be at least one second.
	Interval time.Duration

	// MaxOfflineTime is the staleness threshold for IsHealthy and notifications.
	MaxOfflineTime time.Duration

	// ProbeTimeout bounds each probe; it should be well below Interval.
	ProbeTimeout time.Duration
}

// DefaultConfig returns the default parameters for the backend at baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		HealthURL:      HealthURL(baseURL, DefaultHealthPath),
		Interval:       DefaultInterval,
		MaxOfflineTime: DefaultMaxOfflineTime,
		ProbeTimeout:   DefaultProbeTimeout,
	}
}

// HealthURL joins a base URL and a health path without doubling slashes.
func HealthURL(baseURL, path string) string {
	if path == "" {
		path = DefaultHealthPath
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Validate checks the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.HealthURL)
	if err != nil {
		return fmt.Errorf("invalid health URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("health URL must use http or https, got %q", c.HealthURL)
	}
	if c.Interval < minInterval {
		return fmt.Errorf("interval must be at least %v, got %v", minInterval, c.Interval)
	}
	if c.MaxOfflineTime <= 0 {
		return fmt.Errorf("max offline time must be positive, got %v", c.MaxOfflineTime)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %v", c.ProbeTimeout)
	}
	return nil
}
