// Package retry provides a bounded retry loop with exponential backoff.
// It helps handle transient failures gracefully by automatically retrying failed operations
// while honoring a single deadline carried by the caller's context.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// A value of 3 allows up to 4 attempts in total.
	MaxRetries int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries. Zero means uncapped.
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff (defaults to 2 when <= 0)
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0)
	JitterFraction float64

	// Classify decides whether an error is worth another attempt.
	// Defaults to IsRetryable when nil.
	Classify func(error) bool

	// RetryAfter extracts a server-requested wait from an error. When it reports
	// ok, that wait replaces the backoff for the next retry.
	RetryAfter func(error) (wait time.Duration, ok bool)
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
	}
}

// WebhookConfig returns configuration for outbound webhook notifications.
// Small budget with jitter; a notification is not worth blocking on.
func WebhookConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial delay must be >= 0, got %v", c.InitialDelay)
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		return fmt.Errorf("jitter fraction must be within [0, 1], got %v", c.JitterFraction)
	}
	return nil
}

// Backoff returns the delay to wait after the given 0-based attempt failed.
// Without jitter it equals InitialDelay * Multiplier^attempt, capped by MaxDelay.
func (c Config) Backoff(attempt int) time.Duration {
	multiplier := c.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	delay := float64(c.InitialDelay) * math.Pow(multiplier, float64(attempt))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}

	return addJitter(time.Duration(delay), c.JitterFraction)
}

// Sleeper waits for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when the wait was cut short.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper backed by a real timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retrier runs operations under a retry Config.
type Retrier struct {
	cfg    Config
	sleep  Sleeper
	logger *slog.Logger
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleeper replaces the backoff wait. Tests use it to record delays without waiting.
func WithSleeper(s Sleeper) Option {
	return func(r *Retrier) {
		if s != nil {
			r.sleep = s
		}
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Retrier for the given configuration.
func New(cfg Config, opts ...Option) *Retrier {
	r := &Retrier{
		cfg:    cfg,
		sleep:  SleepContext,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the configuration the Retrier was built with.
func (r *Retrier) Config() Config {
	return r.cfg
}

// Run executes fn until it succeeds, the attempt budget is spent,
// a non-retryable error occurs, or ctx is done.
//
// fn receives the 0-based attempt index. The context passed to fn is ctx itself,
// so a deadline on ctx bounds the whole sequence including backoff waits.
// Once ctx is done no new attempt is started.
//
// Returns:
//   - nil on success
//   - the last error observed otherwise; when ctx ended the sequence the
//     returned error wraps ctx.Err() so errors.Is(err, context.DeadlineExceeded) holds
func (r *Retrier) Run(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	classify := r.cfg.Classify
	if classify == nil {
		classify = IsRetryable
	}
	total := r.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < total; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return joinContextErr(ctxErr, lastErr)
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			if attempt > 0 {
				r.logger.Info("operation succeeded after retry",
					slog.Int("attempt", attempt+1))
			}
			return nil
		}

		// Don't wait after last attempt
		if attempt == total-1 {
			break
		}

		// A fired deadline is terminal regardless of classification
		if ctxErr := ctx.Err(); ctxErr != nil {
			return joinContextErr(ctxErr, lastErr)
		}

		if !classify(lastErr) {
			r.logger.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt+1),
				slog.Any("error", lastErr))
			return lastErr
		}

		delay := r.cfg.Backoff(attempt)
		if r.cfg.RetryAfter != nil {
			if wait, ok := r.cfg.RetryAfter(lastErr); ok {
				delay = wait
			}
		}
		r.logger.Warn("operation failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", total),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))

		if err := r.sleep(ctx, delay); err != nil {
			return joinContextErr(err, lastErr)
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return joinContextErr(ctxErr, lastErr)
	}
	return lastErr
}

// joinContextErr keeps the context error first in the chain so callers can detect
// deadline exhaustion, while still reporting the last attempt's failure.
func joinContextErr(ctxErr, lastErr error) error {
	if lastErr == nil || errors.Is(lastErr, ctxErr) {
		if lastErr != nil {
			return lastErr
		}
		return ctxErr
	}
	return fmt.Errorf("%w: %w", ctxErr, lastErr)
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- Using math/rand is acceptable for jitter calculation.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
