package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pptgen/internal/apiclient"
	"pptgen/internal/config"
	"pptgen/internal/observability/logging"
	"pptgen/internal/resilience/circuitbreaker"
)

// errCallFailed is returned after a failed outcome has been printed, so the
// process exits non-zero without repeating the message.
var errCallFailed = errors.New("request failed")

// options are the flags shared by every request command.
type options struct {
	baseURL    string
	long       bool
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	headers    []string
	breaker    bool
	rateLimit  float64

	logger *slog.Logger
}

// newRootCmd builds the command tree. A nil logger means text logs on stderr.
func newRootCmd(logger *slog.Logger) *cobra.Command {
	opts := &options{logger: logger}

	root := &cobra.Command{
		Use:   "pptctl",
		Short: "Call the presentation backend with retries and timeouts",
		Long: `pptctl sends one request to the presentation backend using the default
or long-running request profile and prints the outcome as JSON:

  {"success":true,"data":{...},"status":200,"attempts":1}

Profiles come from PPT_API_* environment variables or PPTGEN_CONFIG_FILE.
Flags override them for a single call.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.logger == nil {
				opts.logger = logging.NewTextLogger()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", "", "backend base URL (default from PPT_API_BASE_URL)")
	flags.BoolVar(&opts.long, "long", false, "use the long-running profile (generation and export)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "override the call timeout")
	flags.IntVar(&opts.retries, "retries", 0, "override the number of retries")
	flags.DurationVar(&opts.retryDelay, "retry-delay", 0, "override the base retry delay")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "extra request header as 'Key: Value' (repeatable)")
	flags.BoolVar(&opts.breaker, "circuit-breaker", false, "stop retrying once most attempts of the call have failed")
	flags.Float64Var(&opts.rateLimit, "rate-limit", 0, "maximum attempts per second (0 means unlimited)")

	root.AddCommand(
		newGetCmd(opts),
		newBodyCmd(opts, "post"),
		newBodyCmd(opts, "put"),
		newDeleteCmd(opts),
		newUploadCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

// loadConfig resolves the configuration, applying --base-url.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.logger, nil)
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		cfg.Clients.Default.BaseURL = o.baseURL
		cfg.Clients.LongRunning.BaseURL = o.baseURL
	}
	return cfg, nil
}

// client builds a client for the selected profile. pptctl makes one call per
// process, so the client lives only for that call and the breaker is sized to
// trip within its retry budget.
func (o *options) client(cmd *cobra.Command) (*apiclient.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	profile, name := cfg.Clients.Default, "default"
	breakerCfg := circuitbreaker.DefaultConfig(name)
	if o.long {
		profile, name = cfg.Clients.LongRunning, "long-running"
		breakerCfg = circuitbreaker.BackendAPIConfig(name)
	}

	clientOpts := []apiclient.Option{
		apiclient.WithName(name),
		apiclient.WithLogger(o.logger),
	}
	if o.breaker {
		maxRetries := profile.MaxRetries
		if cmd.Flags().Changed("retries") {
			maxRetries = o.retries
		}
		clientOpts = append(clientOpts, apiclient.WithCircuitBreaker(breakerCfg.WithinAttempts(maxRetries)))
	}
	if o.rateLimit > 0 {
		clientOpts = append(clientOpts, apiclient.WithRateLimit(o.rateLimit, 1))
	}
	for _, h := range o.headers {
		key, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Key: Value'", h)
		}
		clientOpts = append(clientOpts, apiclient.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
	}
	return apiclient.New(profile, clientOpts...)
}

// callOptions turns the override flags set on cmd into per-call options.
func (o *options) callOptions(cmd *cobra.Command) []apiclient.CallOption {
	var opts []apiclient.CallOption
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		opts = append(opts, apiclient.WithTimeout(o.timeout))
	}
	if flags.Changed("retries") {
		opts = append(opts, apiclient.WithMaxRetries(o.retries))
	}
	if flags.Changed("retry-delay") {
		opts = append(opts, apiclient.WithRetryDelay(o.retryDelay))
	}
	return opts
}

// printOutcome writes the outcome as indented JSON and maps failure to errCallFailed.
func printOutcome(w io.Writer, out apiclient.Outcome[json.RawMessage]) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if out.Failed() {
		return errCallFailed
	}
	return nil
}
