package notifier

import (
	"context"

	"pptgen/internal/connectivity"
)

// NoOpNotifier is a no-operation implementation of the Notifier interface.
// It is used when notifications are disabled to avoid null checks in the code.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Name returns "noop".
func (n *NoOpNotifier) Name() string {
	return "noop"
}

// NotifyConnectivityIssue does nothing and returns nil immediately.
func (n *NoOpNotifier) NotifyConnectivityIssue(ctx context.Context, ev connectivity.Event) error {
	return nil
}
