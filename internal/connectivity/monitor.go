package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrRunning is returned by Start when the monitor is already running.
var ErrRunning = errors.New("connectivity monitor already running")

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Subscriber receives connectivity issue events. It is called on the monitor's
// tick goroutine and must not block.
type Subscriber func(Event)

// Monitor periodically probes the backend health endpoint and tracks whether it is reachable.
// Probes are single bare GET requests without retries; their errors never leave the monitor.
type Monitor struct {
	cfg      Config
	doer     Doer
	presence PresenceSource
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time

	mu              sync.RWMutex
	online          bool
	lastHealthCheck time.Time

	subMu  sync.RWMutex
	subs   map[uint64]Subscriber
	nextID uint64

	lifeMu  sync.Mutex
	sched   *cron.Cron
	cancel  context.CancelFunc
	watchWG sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithHTTPClient replaces the probe transport (default: an *http.Client with no timeout
// of its own; each probe carries ProbeTimeout in its context).
func WithHTTPClient(d Doer) Option {
	return func(m *Monitor) {
		if d != nil {
			m.doer = d
		}
	}
}

// WithPresence sets the network presence source (default NoPresence).
func WithPresence(p PresenceSource) Option {
	return func(m *Monitor) {
		if p != nil {
			m.presence = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records probe metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a stopped monitor. The backend is assumed healthy and the host online
// until a probe or the presence source says otherwise.
func New(cfg Config, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("connectivity config: %w", err)
	}

	m := &Monitor{
		cfg:      cfg,
		doer:     &http.Client{},
		presence: NoPresence{},
		logger:   slog.Default(),
		now:      time.Now,
		online:   true,
		subs:     make(map[uint64]Subscriber),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastHealthCheck = m.now()
	m.metrics.setStatus(m.Status())
	return m, nil
}

// Start resets the monitor state and begins probing every Interval.
// The first probe runs one Interval after Start.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.sched != nil {
		return ErrRunning
	}

	m.mu.Lock()
	m.online = true
	m.lastHealthCheck = m.now()
	m.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	cronLogger := cronLogger{logger: m.logger}
	sched := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	sched.Schedule(cron.Every(m.cfg.Interval), cron.FuncJob(func() {
		m.Check(runCtx)
	}))

	m.watchWG.Add(1)
	go func() {
		defer m.watchWG.Done()
		m.presence.Watch(runCtx, m.setOnline)
	}()

	sched.Start()
	m.sched = sched
	m.cancel = cancel

	m.logger.Info("connectivity monitor started",
		slog.String("health_url", m.cfg.HealthURL),
		slog.Duration("interval", m.cfg.Interval),
		slog.Duration("max_offline_time", m.cfg.MaxOfflineTime))
	return nil
}

// Stop cancels the recurring probe and waits for a running probe to finish.
// It is safe to call on a stopped monitor.
func (m *Monitor) Stop() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.sched == nil {
		return
	}

	m.cancel()
	<-m.sched.Stop().Done()
	m.watchWG.Wait()

	m.sched = nil
	m.cancel = nil
	m.logger.Info("connectivity monitor stopped")
}

// Running reports whether the monitor is probing.
func (m *Monitor) Running() bool {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	return m.sched != nil
}

// Status returns a snapshot of the current connectivity belief.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		IsOnline:        m.online,
		IsHealthy:       m.now().Sub(m.lastHealthCheck) < m.cfg.MaxOfflineTime,
		LastHealthCheck: m.lastHealthCheck,
	}
}

// Subscribe registers fn for connectivity issue events and returns a function
// that removes it.
func (m *Monitor) Subscribe(fn Subscriber) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// Check runs one probe and updates the state. When the probe fails and the last
// success is older than MaxOfflineTime, every subscriber receives an Event.
// A probe cut short by ctx leaves state, metrics and subscribers untouched.
// It reports whether the probe succeeded.
func (m *Monitor) Check(ctx context.Context) bool {
	start := time.Now()
	err := m.probe(ctx)
	if err != nil && ctx.Err() != nil {
		// Cancelled by Stop or the caller; says nothing about the backend.
		m.logger.Debug("health check cancelled", slog.Any("error", err))
		return false
	}
	m.metrics.recordProbe(err == nil, time.Since(start).Seconds())

	if err == nil {
		m.mu.Lock()
		m.lastHealthCheck = m.now()
		m.mu.Unlock()
		m.metrics.setStatus(m.Status())
		m.logger.Debug("health check succeeded")
		return true
	}

	m.logger.Warn("backend health check failed",
		slog.String("health_url", m.cfg.HealthURL),
		slog.Any("error", err))

	m.mu.RLock()
	last := m.lastHealthCheck
	m.mu.RUnlock()

	status := m.Status()
	m.metrics.setStatus(status)

	elapsed := m.now().Sub(last)
	if elapsed > m.cfg.MaxOfflineTime {
		m.emit(Event{
			Message:         DefaultMessage,
			Severity:        SeverityError,
			Duration:        elapsed,
			LastHealthCheck: last,
		})
	}
	return false
}

// probe sends one GET to the health URL; any non-2xx status is a failure.
func (m *Monitor) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.HealthURL, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.doer.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (m *Monitor) emit(ev Event) {
	m.subMu.RLock()
	subs := make([]Subscriber, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.RUnlock()

	m.metrics.recordNotification()
	m.logger.Error("backend unreachable beyond offline threshold",
		slog.Duration("offline_for", ev.Duration),
		slog.Time("last_health_check", ev.LastHealthCheck),
		slog.Int("subscribers", len(subs)))

	for _, fn := range subs {
		fn(ev)
	}
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		m.logger.Info("network connection restored")
	} else {
		m.logger.Warn("network connection lost")
	}
	m.metrics.setStatus(m.Status())
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}
