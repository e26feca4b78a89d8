package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// transportSignatures are message fragments identifying transport-level failures.
// The upper-case codes match errors relayed from Node-style services and proxies;
// the rest are the texts Go's net package produces for the same conditions.
var transportSignatures = []string{
	"socket hang up",
	"ECONNRESET",
	"ETIMEDOUT",
	"ENOTFOUND",
	"ECONNREFUSED",
	"AbortError",
	"connection reset by peer",
	"connection refused",
	"no such host",
	"i/o timeout",
	"broken pipe",
	"unexpected EOF",
}

// IsRetryable determines if an error is worth retrying.
//
// Retryable:
//   - connection reset / refused, DNS resolution failures, timeouts
//   - abrupt socket termination (EOF, broken pipe)
//   - cancellation or deadline expiry (the loop itself stops once its own deadline fired)
//   - protocol failures (*HTTPError), whatever the status code
//
// Everything else, including decoding errors, is not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return matchesSignature(err.Error())
}

// IsDeadline reports whether err ended because a context was cancelled or its deadline passed.
func IsDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func matchesSignature(msg string) bool {
	for _, sig := range transportSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// HTTPError represents a non-2xx HTTP response.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
