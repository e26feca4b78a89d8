package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pptgen/internal/requestid"
	"pptgen/internal/resilience/retry"
)

// defaultRetryAfter is used when a 429 response carries no usable hint.
const defaultRetryAfter = 5 * time.Second

// maxErrorBody bounds how much of an error response is kept in error messages.
const maxErrorBody = 512

// Option configures a webhook notifier.
type Option func(*webhookSender)

// WithHTTPClient replaces the HTTP client used for webhook calls.
func WithHTTPClient(client *http.Client) Option {
	return func(w *webhookSender) {
		if client != nil {
			w.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *webhookSender) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRetryConfig replaces the retry policy (default retry.WebhookConfig).
func WithRetryConfig(cfg retry.Config) Option {
	return func(w *webhookSender) { w.retryCfg = cfg }
}

// WithSleeper replaces the wait used for backoff and 429 retry-after, mainly for tests.
func WithSleeper(s retry.Sleeper) Option {
	return func(w *webhookSender) {
		if s != nil {
			w.sleep = s
		}
	}
}

// WithRateLimiter replaces the notifier's rate limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(w *webhookSender) {
		if l != nil {
			w.limiter = l
		}
	}
}

// webhookSender posts JSON payloads to one webhook URL with rate limiting and retries.
// Discord and Slack notifiers differ only in payload shape and limits.
type webhookSender struct {
	service    string
	url        string
	httpClient *http.Client
	limiter    *RateLimiter
	retryCfg   retry.Config
	sleep      retry.Sleeper
	logger     *slog.Logger
}

func newWebhookSender(service, url string, timeout time.Duration, limiter *RateLimiter, opts []Option) *webhookSender {
	w := &webhookSender{
		service:    service,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retryCfg:   retry.WebhookConfig(),
		sleep:      retry.SleepContext,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.retryCfg.Classify = isRetryableError
	w.retryCfg.RetryAfter = func(err error) (time.Duration, bool) {
		if rateLimitErr, ok := is429Error(err); ok {
			return rateLimitErr.RetryAfter, true
		}
		return 0, false
	}
	return w
}

// deliver sends payload once it passes the rate limiter, retrying transient failures.
//
// Retry strategy:
//   - 429 errors: wait retry_after from the response instead of the backoff, then retry
//   - Server errors (5xx) and network errors: exponential backoff
//   - Client errors (4xx): no retry, fail immediately
func (w *webhookSender) deliver(ctx context.Context, payload any) error {
	ctx, requestID := requestid.Ensure(ctx)
	logger := w.logger.With(
		slog.String("request_id", requestID),
		slog.String("service", w.service))

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	if err := w.limiter.Allow(ctx); err != nil {
		logger.Error("Rate limiter error", slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	retrier := retry.New(w.retryCfg, retry.WithSleeper(w.sleep), retry.WithLogger(logger))
	attempts := 0
	err = retrier.Run(ctx, func(ctx context.Context, attempt int) error {
		attempts++
		err := w.send(ctx, body)
		if rateLimitErr, ok := is429Error(err); ok {
			logger.Warn(w.service+" rate limit hit, backing off",
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt+1))
		}
		return err
	})
	if err != nil {
		logger.Error(w.service+" notification failed",
			slog.Int("attempts", attempts),
			slog.Any("error", err))
		return fmt.Errorf("%s notification failed after %d attempts: %w", w.service, attempts, err)
	}

	logger.Info(w.service+" notification successful", slog.Int("attempts", attempts))
	return nil
}

// send posts body once.
//
// Error types:
//   - 429: *RateLimitError (retryable, contains retry_after duration)
//   - 4xx (non-429): *ClientError (non-retryable)
//   - 5xx: *ServerError (retryable)
//   - Network error: wrapped transport error (retryable)
func (w *webhookSender) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	requestid.Apply(req)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    w.service + " rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, respBody),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error: %s", w.service, truncate(string(respBody), maxErrorBody, "...")),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error: %s", w.service, truncate(string(respBody), maxErrorBody, "...")),
		}
	default:
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(string(respBody), maxErrorBody, "..."))
	}
}

// webhookErrorResponse is the rate limit body returned by Discord.
type webhookErrorResponse struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"` // In seconds
}

// extractRetryAfter reads retry_after from a JSON body first, then the Retry-After header.
// Defaults to 5s if neither is usable.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var errResp webhookErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.RetryAfter > 0 {
		return time.Duration(errResp.RetryAfter * float64(time.Second))
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return defaultRetryAfter
}
