// Package resilience groups the fault tolerance building blocks used for
// backend and webhook calls.
//
// Subpackages:
//   - retry: bounded retry loop with exponential backoff, error classification
//     and context-aware waits
//   - circuitbreaker: gobreaker wrapper that fails fast while the backend keeps failing
//
// Usage Example:
//
//	r := retry.New(retry.Config{MaxRetries: 3, InitialDelay: time.Second, Multiplier: 2})
//	err := r.Run(ctx, func(ctx context.Context, attempt int) error {
//	    return callBackend(ctx)
//	})
//
//	cb := circuitbreaker.New(circuitbreaker.BackendAPIConfig("ppt-backend"))
//	err = cb.Execute(func() error {
//	    return callBackend(ctx)
//	})
package resilience
