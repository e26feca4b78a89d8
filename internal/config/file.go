package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pkgconfig "pptgen/internal/pkg/config"
)

// File is the YAML configuration overlay. Unset keys keep their defaults.
//
//	api:
//	  base_url: http://backend:8000/api/v1/ppt
//	  default:
//	    timeout: 5m
//	    retries: 3
//	    retry_delay: 2s
//	  long_running:
//	    timeout: 10m
//	monitor:
//	  health_path: /health
//	  interval: 30s
//	  max_offline_time: 5m
type File struct {
	API struct {
		BaseURL     string      `yaml:"base_url"`
		Default     profileFile `yaml:"default"`
		LongRunning profileFile `yaml:"long_running"`
	} `yaml:"api"`

	Monitor struct {
		HealthPath     string   `yaml:"health_path"`
		Interval       Duration `yaml:"interval"`
		ProbeTimeout   Duration `yaml:"probe_timeout"`
		MaxOfflineTime Duration `yaml:"max_offline_time"`
		HealthPort     int      `yaml:"health_port"`
		MetricsPort    int      `yaml:"metrics_port"`
	} `yaml:"monitor"`

	Notify struct {
		Timeout Duration    `yaml:"timeout"`
		Discord webhookFile `yaml:"discord"`
		Slack   webhookFile `yaml:"slack"`
	} `yaml:"notify"`
}

type profileFile struct {
	Timeout    Duration `yaml:"timeout"`
	Retries    *int     `yaml:"retries"`
	RetryDelay Duration `yaml:"retry_delay"`
}

type webhookFile struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// Duration is a time.Duration written as a Go duration string ("30s", "5m").
type Duration struct {
	time.Duration
	set bool
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Duration = parsed
	d.set = true
	return nil
}

// ReadFile reads and parses a YAML configuration file.
// The path comes from the operator's environment, not from user input.
func ReadFile(path string) (*File, error) {
	// #nosec G304 -- path is provided by trusted source (environment), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &f, nil
}

// apply overlays the file's values on b, validating each one.
func (f *File) apply(b *layer) error {
	if f.API.BaseURL != "" {
		if err := pkgconfig.ValidateHTTPURL(f.API.BaseURL); err != nil {
			return fmt.Errorf("api.base_url: %w", err)
		}
		b.baseURL = f.API.BaseURL
	}
	if err := f.API.Default.apply("api.default", &b.timeout, &b.retries, &b.retryDelay); err != nil {
		return err
	}
	if err := f.API.LongRunning.apply("api.long_running", &b.longTimeout, &b.longRetries, &b.longRetryDelay); err != nil {
		return err
	}

	m := f.Monitor
	if m.HealthPath != "" {
		if err := pkgconfig.ValidatePath(m.HealthPath); err != nil {
			return fmt.Errorf("monitor.health_path: %w", err)
		}
		b.healthPath = m.HealthPath
	}
	if err := setDuration("monitor.interval", m.Interval, &b.interval, validateInterval); err != nil {
		return err
	}
	if err := setDuration("monitor.probe_timeout", m.ProbeTimeout, &b.probeTimeout, pkgconfig.ValidatePositiveDuration); err != nil {
		return err
	}
	if err := setDuration("monitor.max_offline_time", m.MaxOfflineTime, &b.maxOfflineTime, pkgconfig.ValidatePositiveDuration); err != nil {
		return err
	}
	if m.HealthPort != 0 {
		if err := validatePort(m.HealthPort); err != nil {
			return fmt.Errorf("monitor.health_port: %w", err)
		}
		b.healthPort = m.HealthPort
	}
	if m.MetricsPort != 0 {
		if err := validatePort(m.MetricsPort); err != nil {
			return fmt.Errorf("monitor.metrics_port: %w", err)
		}
		b.metricsPort = m.MetricsPort
	}

	n := f.Notify
	if err := setDuration("notify.timeout", n.Timeout, &b.notifyTimeout, pkgconfig.ValidatePositiveDuration); err != nil {
		return err
	}
	if n.Discord.Enabled || n.Discord.WebhookURL != "" {
		b.discordEnabled = n.Discord.Enabled
		b.discordURL = n.Discord.WebhookURL
	}
	if n.Slack.Enabled || n.Slack.WebhookURL != "" {
		b.slackEnabled = n.Slack.Enabled
		b.slackURL = n.Slack.WebhookURL
	}
	return nil
}

func (p profileFile) apply(prefix string, timeout *time.Duration, retries *int, delay *time.Duration) error {
	if err := setDuration(prefix+".timeout", p.Timeout, timeout, validateClientTimeout); err != nil {
		return err
	}
	if p.Retries != nil {
		if err := validateRetries(*p.Retries); err != nil {
			return fmt.Errorf("%s.retries: %w", prefix, err)
		}
		*retries = *p.Retries
	}
	return setDuration(prefix+".retry_delay", p.RetryDelay, delay, pkgconfig.ValidateNonNegativeDuration)
}

func setDuration(key string, d Duration, dst *time.Duration, validate func(time.Duration) error) error {
	if !d.set {
		return nil
	}
	if err := validate(d.Duration); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d.Duration
	return nil
}
