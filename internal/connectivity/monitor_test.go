package connectivity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// switchDoer answers health probes with a status chosen by the test; 0 means transport error.
type switchDoer struct {
	status atomic.Int32
	calls  atomic.Int32
}

func (d *switchDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	status := int(d.status.Load())
	if status == 0 {
		return nil, errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(`{"status":"ok"}`)),
		Request:    req,
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		HealthURL:      "http://backend/api/v1/ppt/health",
		Interval:       30 * time.Second,
		MaxOfflineTime: 5 * time.Minute,
		ProbeTimeout:   time.Second,
	}
}

func newTestMonitor(t *testing.T, doer Doer, clock *fakeClock, opts ...Option) *Monitor {
	t.Helper()
	opts = append([]Option{WithHTTPClient(doer), WithClock(clock.Now), WithLogger(quietLogger())}, opts...)
	m, err := New(testConfig(), opts...)
	require.NoError(t, err)
	return m
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestNew_InitialStatus(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(t, &switchDoer{}, clock)

	want := Status{IsOnline: true, IsHealthy: true, LastHealthCheck: clock.Now()}
	if diff := cmp.Diff(want, m.Status()); diff != "" {
		t.Errorf("initial status mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, m.Running())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = 100 * time.Millisecond
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.HealthURL = "ftp://backend/health"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestCheck_SuccessUpdatesLastHealthCheck(t *testing.T) {
	clock := newFakeClock()
	doer := &switchDoer{}
	doer.status.Store(http.StatusOK)
	m := newTestMonitor(t, doer, clock)

	clock.Advance(time.Minute)
	assert.True(t, m.Check(context.Background()))

	status := m.Status()
	assert.Equal(t, clock.Now(), status.LastHealthCheck)
	assert.True(t, status.IsHealthy)
}

func TestCheck_FailureLeavesLastHealthCheck(t *testing.T) {
	clock := newFakeClock()
	doer := &switchDoer{}
	doer.status.Store(http.StatusServiceUnavailable)
	m := newTestMonitor(t, doer, clock)
	start := clock.Now()

	clock.Advance(time.Minute)
	assert.False(t, m.Check(context.Background()))
	assert.Equal(t, start, m.Status().LastHealthCheck)

	doer.status.Store(0)
	assert.False(t, m.Check(context.Background()))
	assert.Equal(t, start, m.Status().LastHealthCheck)
}

func TestStatus_IsHealthyThreshold(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(t, &switchDoer{}, clock)

	clock.Advance(5*time.Minute - time.Millisecond)
	assert.True(t, m.Status().IsHealthy)

	clock.Advance(time.Millisecond)
	assert.False(t, m.Status().IsHealthy, "exactly MaxOfflineTime is no longer healthy")
}

func TestCheck_NotifiesEveryQualifyingTick(t *testing.T) {
	clock := newFakeClock()
	doer := &switchDoer{}
	m := newTestMonitor(t, doer, clock)
	rec := &eventRecorder{}
	m.Subscribe(rec.record)
	start := clock.Now()

	// Within the threshold: failures are silent.
	for i := 0; i < 10; i++ {
		clock.Advance(30 * time.Second)
		m.Check(context.Background())
	}
	assert.Empty(t, rec.all())

	// 5m30s without success: every failing tick notifies.
	clock.Advance(30 * time.Second)
	m.Check(context.Background())
	clock.Advance(30 * time.Second)
	m.Check(context.Background())

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, Event{
		Message:         DefaultMessage,
		Severity:        SeverityError,
		Duration:        5*time.Minute + 30*time.Second,
		LastHealthCheck: start,
	}, events[0])
	assert.Equal(t, 6*time.Minute, events[1].Duration)

	// Recovery stops the notifications.
	doer.status.Store(http.StatusOK)
	clock.Advance(30 * time.Second)
	assert.True(t, m.Check(context.Background()))
	assert.True(t, m.Status().IsHealthy)
	assert.Len(t, rec.all(), 2)
}

func TestCheck_ExactlyAtThresholdDoesNotNotify(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(t, &switchDoer{}, clock)
	rec := &eventRecorder{}
	m.Subscribe(rec.record)

	clock.Advance(5 * time.Minute)
	m.Check(context.Background())
	assert.Empty(t, rec.all())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(t, &switchDoer{}, clock)

	first, second := &eventRecorder{}, &eventRecorder{}
	unsubscribe := m.Subscribe(first.record)
	m.Subscribe(second.record)

	clock.Advance(10 * time.Minute)
	m.Check(context.Background())

	unsubscribe()
	unsubscribe()
	m.Check(context.Background())

	assert.Len(t, first.all(), 1)
	assert.Len(t, second.all(), 2)
}

func TestCheck_ProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HealthURL = srv.URL + "/health"
	cfg.ProbeTimeout = 50 * time.Millisecond
	m, err := New(cfg, WithLogger(quietLogger()))
	require.NoError(t, err)

	start := time.Now()
	assert.False(t, m.Check(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCheck_RealServer(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m, err := New(DefaultConfig(srv.URL+"/api/v1/ppt"), WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.True(t, m.Check(context.Background()))
	assert.Equal(t, "/api/v1/ppt/health", gotPath)
	assert.Equal(t, http.MethodGet, gotMethod)
}

func TestStartStop(t *testing.T) {
	doer := &switchDoer{}
	doer.status.Store(http.StatusOK)

	cfg := testConfig()
	cfg.Interval = time.Second
	m, err := New(cfg, WithHTTPClient(doer), WithLogger(quietLogger()))
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.Running())
	assert.ErrorIs(t, m.Start(context.Background()), ErrRunning)

	require.Eventually(t, func() bool { return doer.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	m.Stop()
	assert.False(t, m.Running())
	m.Stop()

	calls := doer.calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, calls, doer.calls.Load(), "no probes after Stop")
}

// blockingDoer holds every probe until its request context ends.
type blockingDoer struct {
	started chan struct{}
	once    sync.Once
}

func (d *blockingDoer) Do(req *http.Request) (*http.Response, error) {
	d.once.Do(func() { close(d.started) })
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func TestCheck_CancelledProbeIsNotAnOutage(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	clock := newFakeClock()
	m := newTestMonitor(t, &blockingDoer{started: make(chan struct{})}, clock, WithMetrics(metrics))
	rec := &eventRecorder{}
	defer m.Subscribe(rec.record)()

	clock.Advance(10 * time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, m.Check(ctx))
	assert.Empty(t, rec.all())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ProbesTotal.WithLabelValues("failure")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.NotificationsTotal))
}

func TestStop_DuringProbeEmitsNothing(t *testing.T) {
	doer := &blockingDoer{started: make(chan struct{})}
	clock := newFakeClock()
	cfg := testConfig()
	cfg.Interval = time.Second
	cfg.ProbeTimeout = 30 * time.Second
	m, err := New(cfg, WithHTTPClient(doer), WithClock(clock.Now), WithLogger(quietLogger()))
	require.NoError(t, err)
	rec := &eventRecorder{}
	defer m.Subscribe(rec.record)()

	require.NoError(t, m.Start(context.Background()))
	select {
	case <-doer.started:
	case <-time.After(3 * time.Second):
		m.Stop()
		t.Fatal("probe did not start")
	}

	clock.Advance(10 * time.Minute)
	m.Stop()

	assert.Empty(t, rec.all())
	assert.Equal(t, clock.Now().Add(-10*time.Minute), m.Status().LastHealthCheck)
}

func TestStart_RestartResetsState(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(t, &switchDoer{}, clock)

	clock.Advance(time.Hour)
	require.False(t, m.Status().IsHealthy)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()
	assert.True(t, m.Status().IsHealthy)
	assert.Equal(t, clock.Now(), m.Status().LastHealthCheck)
}

func TestStart_PresenceUpdatesIsOnline(t *testing.T) {
	presence := make(chan bool)
	clock := newFakeClock()
	m := newTestMonitor(t, &switchDoer{}, clock, WithPresence(ChannelPresence{C: presence}))

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	presence <- false
	require.Eventually(t, func() bool { return !m.Status().IsOnline }, time.Second, 5*time.Millisecond)

	presence <- true
	require.Eventually(t, func() bool { return m.Status().IsOnline }, time.Second, 5*time.Millisecond)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	clock := newFakeClock()
	doer := &switchDoer{}
	doer.status.Store(http.StatusOK)
	m := newTestMonitor(t, doer, clock, WithMetrics(metrics))

	m.Check(context.Background())
	doer.status.Store(http.StatusBadGateway)
	clock.Advance(6 * time.Minute)
	m.Check(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProbesTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProbesTotal.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Healthy))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Online))
}

func TestEvent_MarshalJSON(t *testing.T) {
	ev := Event{
		Message:         DefaultMessage,
		Severity:        SeverityError,
		Duration:        301500 * time.Millisecond,
		LastHealthCheck: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"message": "Backend server may be unreachable, please check server status",
		"severity": "error",
		"duration": 301500,
		"last_health_check": "2026-03-01T12:00:00Z"
	}`, string(raw))
}

func TestHealthURL(t *testing.T) {
	assert.Equal(t, "http://h/api/v1/ppt/health", HealthURL("http://h/api/v1/ppt/", "/health"))
	assert.Equal(t, "http://h/health", HealthURL("http://h", ""))
	assert.Equal(t, "http://h/status", HealthURL("http://h", "status"))
}
