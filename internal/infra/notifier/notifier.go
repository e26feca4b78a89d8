// Package notifier forwards connectivity issue events to chat webhooks.
// It defines the Notifier interface which allows different notification mechanisms
// (Discord, Slack, etc.) to be used interchangeably through dependency injection.
//
// The package includes implementations for Discord and Slack webhooks, a no-op notifier
// for when notifications are disabled, and a Dispatcher that subscribes to a
// connectivity monitor and fans events out without blocking it.
package notifier

import (
	"context"

	"pptgen/internal/connectivity"
)

// Notifier is an interface for sending connectivity issue notifications.
// Implementations should handle rate limiting, retries, and error logging internally.
type Notifier interface {
	// Name identifies the notifier in logs, e.g. "discord".
	Name() string

	// NotifyConnectivityIssue reports that the backend has been unreachable
	// for longer than the monitor's offline threshold.
	//
	// Implementations should:
	//   - Generate a unique request ID for tracing
	//   - Apply rate limiting to prevent API abuse
	//   - Retry transient failures with exponential backoff
	//   - Respect context cancellation
	NotifyConnectivityIssue(ctx context.Context, ev connectivity.Event) error
}
