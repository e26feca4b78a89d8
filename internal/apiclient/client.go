package apiclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"pptgen/internal/observability/tracing"
	"pptgen/internal/resilience/circuitbreaker"
	"pptgen/internal/resilience/retry"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a resilient client bound to one backend base URL and one request policy.
// It is safe for concurrent use; calls share nothing but the immutable configuration
// and the optional breaker and limiter, which synchronize internally.
type Client struct {
	name    string
	cfg     Config
	doer    Doer
	headers http.Header
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	sleep   retry.Sleeper
	breaker *circuitbreaker.CircuitBreaker
	limiter *rate.Limiter
}

// Option configures a Client at construction.
type Option func(*Client)

// WithName labels the client in logs and metrics (default "default").
func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// WithDoer replaces the transport. The default is an *http.Client without its own
// timeout, since every call carries its deadline in the request context.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithLogger sets the logger for retry warnings and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records call metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer replaces the application tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(s retry.Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithHeader adds a static header sent on every request.
// Headers are built by the caller; the client only forwards them.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Add(key, value) }
}

// WithCircuitBreaker guards every attempt with a circuit breaker.
// Unless cfg.IsSuccessful is set, only transport failures and 5xx responses
// count against the backend. A call rejected by an open circuit fails without retrying.
func WithCircuitBreaker(cfg circuitbreaker.Config) Option {
	return func(c *Client) {
		if cfg.IsSuccessful == nil {
			cfg.IsSuccessful = countsAsBackendSuccess
		}
		c.breaker = circuitbreaker.New(cfg)
	}
}

// WithRateLimit caps the rate of attempts sent by this client.
// A burst below 1 is raised to 1.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// New creates a client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("apiclient config: %w", err)
	}

	c := &Client{
		name:    "default",
		cfg:     cfg,
		doer:    &http.Client{},
		headers: make(http.Header),
		logger:  slog.Default(),
		tracer:  tracing.GetTracer(),
		sleep:   retry.SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the client's label.
func (c *Client) Name() string {
	return c.name
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// CircuitOpen reports whether the client's circuit breaker currently rejects calls.
func (c *Client) CircuitOpen() bool {
	return c.breaker != nil && c.breaker.IsOpen()
}

// classify decides whether a failed attempt is worth repeating.
func (c *Client) classify(err error) bool {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, errRateLimitDeadline) {
		return false
	}
	return retry.IsRetryable(err)
}

// countsAsBackendSuccess keeps client-side problems from tripping the breaker:
// 4xx responses and undecodable bodies mean the backend answered.
func countsAsBackendSuccess(err error) bool {
	if err == nil {
		return true
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return true
	}
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode < http.StatusInternalServerError
	}
	return false
}

// errorKind labels a failed attempt for metrics.
func errorKind(err error) string {
	var decodeErr *DecodeError
	var httpErr *retry.HTTPError
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "circuit_open"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &httpErr):
		return "protocol"
	case retry.IsDeadline(err):
		return "deadline"
	default:
		return "transport"
	}
}
