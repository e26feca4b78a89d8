package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pptgen/internal/connectivity"
)

// DefaultDispatchTimeout bounds one event's delivery to all notifiers, retries included.
const DefaultDispatchTimeout = 30 * time.Second

// Dispatcher forwards connectivity events to notifiers in the background.
// Its Handle method is a connectivity.Subscriber, so the monitor never waits on webhooks.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher for notifiers. A non-positive timeout
// means DefaultDispatchTimeout.
func NewDispatcher(notifiers []Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifiers: notifiers,
		timeout:   timeout,
		logger:    logger,
	}
}

// Len returns the number of notifiers.
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Handle starts delivering ev to every notifier and returns immediately.
// Events received after Close are dropped.
func (d *Dispatcher) Handle(ev connectivity.Event) {
	if len(d.notifiers) == 0 {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher closed, dropping connectivity event")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.Dispatch(ctx, ev); err != nil {
			d.logger.Error("connectivity notification delivery failed", slog.Any("error", err))
		}
	}()
}

// Dispatch delivers ev to every notifier concurrently and waits for all of them.
// A failing notifier does not stop the others; the first failure is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, ev connectivity.Event) error {
	var g errgroup.Group
	for _, n := range d.notifiers {
		g.Go(func() error {
			if err := n.NotifyConnectivityIssue(ctx, ev); err != nil {
				return fmt.Errorf("%s: %w", n.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close stops accepting events and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
