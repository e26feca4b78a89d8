package notifier

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"pptgen/internal/connectivity"
)

func testEvent() connectivity.Event {
	return connectivity.Event{
		Message:         connectivity.DefaultMessage,
		Severity:        connectivity.SeverityError,
		Duration:        5*time.Minute + 30*time.Second,
		LastHealthCheck: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSleeper captures waits without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
