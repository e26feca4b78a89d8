// Package config assembles the runtime configuration of the pptgen binaries:
// the backend client profiles, the connectivity monitor and its notifiers.
//
// Values are resolved in three layers: built-in defaults, an optional YAML file
// named by PPTGEN_CONFIG_FILE, then environment variables. Environment loading is
// fail-open: an invalid value is logged, counted and replaced by the value from
// the lower layers. A YAML file that cannot be read or holds invalid values is an
// error, since it was asked for explicitly.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"pptgen/internal/apiclient"
	"pptgen/internal/connectivity"
	"pptgen/internal/infra/notifier"
	pkgconfig "pptgen/internal/pkg/config"
)

// DefaultBaseURL is the local presentation backend.
const DefaultBaseURL = "http://localhost:8000" + apiclient.DefaultBasePath

// Environment variable names.
const (
	EnvConfigFile = "PPTGEN_CONFIG_FILE"

	EnvBaseURL            = "PPT_API_BASE_URL"
	EnvTimeout            = "PPT_API_TIMEOUT"
	EnvRetries            = "PPT_API_RETRIES"
	EnvRetryDelay         = "PPT_API_RETRY_DELAY"
	EnvLongTimeout        = "PPT_LONG_API_TIMEOUT"
	EnvLongRetries        = "PPT_LONG_API_RETRIES"
	EnvLongRetryDelay     = "PPT_LONG_API_RETRY_DELAY"
	EnvHealthCheckPath    = "HEALTH_CHECK_PATH"
	EnvHealthInterval     = "HEALTH_CHECK_INTERVAL"
	EnvHealthCheckTimeout = "HEALTH_CHECK_TIMEOUT"
	EnvMaxOfflineTime     = "MAX_OFFLINE_TIME"
	EnvDiscordEnabled     = "DISCORD_ENABLED"
	EnvDiscordWebhookURL  = "DISCORD_WEBHOOK_URL"
	EnvSlackEnabled       = "SLACK_ENABLED"
	EnvSlackWebhookURL    = "SLACK_WEBHOOK_URL"
	EnvNotifyTimeout      = "NOTIFY_TIMEOUT"
	EnvHealthPort         = "MONITOR_HEALTH_PORT"
	EnvMetricsPort        = "METRICS_PORT"
)

const (
	maxRetries        = 10
	maxClientTimeout  = time.Hour
	maxCheckInterval  = 24 * time.Hour
	minCheckInterval  = time.Second
	webhookTimeout    = 30 * time.Second
	defaultHealthPort = 9091
	defaultMetricPort = 9090
)

// ClientProfiles holds the two request policies the backend is called with.
type ClientProfiles struct {
	// Default is used for regular calls.
	Default apiclient.Config
	// LongRunning is used for generation and export calls.
	LongRunning apiclient.Config
}

// MonitorConfig configures the monitor daemon.
type MonitorConfig struct {
	Connectivity connectivity.Config

	Discord notifier.DiscordConfig
	Slack   notifier.SlackConfig

	// NotifyTimeout bounds the delivery of one event to all notifiers.
	NotifyTimeout time.Duration

	// HealthPort serves /health, /health/ready and /health/connectivity.
	HealthPort int
	// MetricsPort serves /metrics. It may equal HealthPort.
	MetricsPort int
}

// Config is the complete runtime configuration.
type Config struct {
	Clients ClientProfiles
	Monitor MonitorConfig
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Clients: ClientProfiles{
			Default:     apiclient.DefaultProfile(DefaultBaseURL),
			LongRunning: apiclient.LongRunningProfile(DefaultBaseURL),
		},
		Monitor: MonitorConfig{
			Connectivity:  connectivity.DefaultConfig(DefaultBaseURL),
			Discord:       notifier.DiscordConfig{Timeout: webhookTimeout},
			Slack:         notifier.SlackConfig{Timeout: webhookTimeout},
			NotifyTimeout: notifier.DefaultDispatchTimeout,
			HealthPort:    defaultHealthPort,
			MetricsPort:   defaultMetricPort,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and the
// environment. metrics may be nil.
//
// Example:
//
//	cfgMetrics := pkgconfig.NewConfigMetrics("pptgen", prometheus.DefaultRegisterer)
//	cfg, err := config.Load(logger, cfgMetrics)
//	if err != nil {
//	    return err
//	}
func Load(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base := defaultLayer()
	if path := os.Getenv(EnvConfigFile); path != "" {
		file, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := file.apply(&base); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		logger.Info("configuration file applied", slog.String("path", path))
	}

	l := pkgconfig.NewLoader(logger, metrics)
	env := loadEnv(l, base)
	l.Finish()

	cfg := env.build(logger)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the assembled configuration.
func (c Config) Validate() error {
	if err := c.Clients.Default.Validate(); err != nil {
		return fmt.Errorf("default profile: %w", err)
	}
	if err := c.Clients.LongRunning.Validate(); err != nil {
		return fmt.Errorf("long-running profile: %w", err)
	}
	if err := c.Monitor.Connectivity.Validate(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if err := validatePort(c.Monitor.HealthPort); err != nil {
		return fmt.Errorf("health port: %w", err)
	}
	if err := validatePort(c.Monitor.MetricsPort); err != nil {
		return fmt.Errorf("metrics port: %w", err)
	}
	return nil
}

// layer is the flat set of tunables before they are assembled into Config.
type layer struct {
	baseURL string

	timeout, retryDelay         time.Duration
	retries                     int
	longTimeout, longRetryDelay time.Duration
	longRetries                 int

	healthPath     string
	interval       time.Duration
	probeTimeout   time.Duration
	maxOfflineTime time.Duration

	discordEnabled bool
	discordURL     string
	slackEnabled   bool
	slackURL       string
	notifyTimeout  time.Duration

	healthPort  int
	metricsPort int
}

func defaultLayer() layer {
	d := Default()
	return layer{
		baseURL:        DefaultBaseURL,
		timeout:        d.Clients.Default.Timeout,
		retries:        d.Clients.Default.MaxRetries,
		retryDelay:     d.Clients.Default.RetryDelay,
		longTimeout:    d.Clients.LongRunning.Timeout,
		longRetries:    d.Clients.LongRunning.MaxRetries,
		longRetryDelay: d.Clients.LongRunning.RetryDelay,
		healthPath:     connectivity.DefaultHealthPath,
		interval:       connectivity.DefaultInterval,
		probeTimeout:   connectivity.DefaultProbeTimeout,
		maxOfflineTime: connectivity.DefaultMaxOfflineTime,
		notifyTimeout:  notifier.DefaultDispatchTimeout,
		healthPort:     defaultHealthPort,
		metricsPort:    defaultMetricPort,
	}
}

func loadEnv(l *pkgconfig.Loader, b layer) layer {
	return layer{
		baseURL:        l.String("base_url", EnvBaseURL, b.baseURL, pkgconfig.ValidateHTTPURL),
		timeout:        l.Duration("timeout", EnvTimeout, b.timeout, validateClientTimeout),
		retries:        l.Int("retries", EnvRetries, b.retries, validateRetries),
		retryDelay:     l.Duration("retry_delay", EnvRetryDelay, b.retryDelay, pkgconfig.ValidateNonNegativeDuration),
		longTimeout:    l.Duration("long_timeout", EnvLongTimeout, b.longTimeout, validateClientTimeout),
		longRetries:    l.Int("long_retries", EnvLongRetries, b.longRetries, validateRetries),
		longRetryDelay: l.Duration("long_retry_delay", EnvLongRetryDelay, b.longRetryDelay, pkgconfig.ValidateNonNegativeDuration),
		healthPath:     l.String("health_check_path", EnvHealthCheckPath, b.healthPath, pkgconfig.ValidatePath),
		interval:       l.Duration("health_check_interval", EnvHealthInterval, b.interval, validateInterval),
		probeTimeout:   l.Duration("health_check_timeout", EnvHealthCheckTimeout, b.probeTimeout, pkgconfig.ValidatePositiveDuration),
		maxOfflineTime: l.Duration("max_offline_time", EnvMaxOfflineTime, b.maxOfflineTime, pkgconfig.ValidatePositiveDuration),
		discordEnabled: l.Bool("discord_enabled", EnvDiscordEnabled, b.discordEnabled),
		discordURL:     l.String("discord_webhook_url", EnvDiscordWebhookURL, b.discordURL, nil),
		slackEnabled:   l.Bool("slack_enabled", EnvSlackEnabled, b.slackEnabled),
		slackURL:       l.String("slack_webhook_url", EnvSlackWebhookURL, b.slackURL, nil),
		notifyTimeout:  l.Duration("notify_timeout", EnvNotifyTimeout, b.notifyTimeout, pkgconfig.ValidatePositiveDuration),
		healthPort:     l.Int("health_port", EnvHealthPort, b.healthPort, validatePort),
		metricsPort:    l.Int("metrics_port", EnvMetricsPort, b.metricsPort, validatePort),
	}
}

func (v layer) build(logger *slog.Logger) Config {
	return Config{
		Clients: ClientProfiles{
			Default: apiclient.Config{
				BaseURL:    v.baseURL,
				Timeout:    v.timeout,
				MaxRetries: v.retries,
				RetryDelay: v.retryDelay,
			},
			LongRunning: apiclient.Config{
				BaseURL:    v.baseURL,
				Timeout:    v.longTimeout,
				MaxRetries: v.longRetries,
				RetryDelay: v.longRetryDelay,
			},
		},
		Monitor: MonitorConfig{
			Connectivity: connectivity.Config{
				HealthURL:      connectivity.HealthURL(v.baseURL, v.healthPath),
				Interval:       v.interval,
				MaxOfflineTime: v.maxOfflineTime,
				ProbeTimeout:   v.probeTimeout,
			},
			Discord: notifier.DiscordConfig{
				Enabled:    webhookEnabled(logger, "Discord", v.discordEnabled, v.discordURL, "discord.com", "/api/webhooks/"),
				WebhookURL: v.discordURL,
				Timeout:    webhookTimeout,
			},
			Slack: notifier.SlackConfig{
				Enabled:    webhookEnabled(logger, "Slack", v.slackEnabled, v.slackURL, "hooks.slack.com", "/services/"),
				WebhookURL: v.slackURL,
				Timeout:    webhookTimeout,
			},
			NotifyTimeout: v.notifyTimeout,
			HealthPort:    v.healthPort,
			MetricsPort:   v.metricsPort,
		},
	}
}

// webhookEnabled reports whether a webhook should be used. A misconfigured
// webhook disables its notifier rather than failing startup.
func webhookEnabled(logger *slog.Logger, service string, enabled bool, rawURL, host, pathPrefix string) bool {
	if !enabled {
		return false
	}
	if rawURL == "" {
		logger.Warn(service + " webhook URL is empty, disabling notifications")
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		logger.Warn("Invalid "+service+" webhook URL format, disabling notifications", slog.Any("error", err))
		return false
	}
	if u.Scheme != "https" {
		logger.Warn(service + " webhook URL must use HTTPS, disabling notifications")
		return false
	}
	if u.Host != host {
		logger.Warn("Invalid "+service+" webhook host, disabling notifications", slog.String("host", u.Host))
		return false
	}
	if !strings.HasPrefix(u.Path, pathPrefix) {
		logger.Warn("Invalid "+service+" webhook path, disabling notifications", slog.String("path", u.Path))
		return false
	}
	return true
}

func validateClientTimeout(d time.Duration) error {
	return pkgconfig.ValidateDuration(d, time.Millisecond, maxClientTimeout)
}

func validateRetries(n int) error {
	return pkgconfig.ValidateIntRange(n, 0, maxRetries)
}

func validateInterval(d time.Duration) error {
	return pkgconfig.ValidateDuration(d, minCheckInterval, maxCheckInterval)
}

func validatePort(p int) error {
	return pkgconfig.ValidateIntRange(p, 1, 65535)
}
