package apiclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsAttemptsAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){
		connReset,
		respond(http.StatusInternalServerError, `{}`),
		respond(http.StatusOK, `{"id":"abc"}`),
	}}
	c := newTestClient(t, testConfig("http://backend"),
		WithDoer(doer),
		WithMetrics(m),
		WithSleeper((&recordingSleeper{}).sleep))

	out := Get[presentation](context.Background(), c, "/presentation/abc")
	require.True(t, out.Success, out.Error)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("test", "GET")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AttemptErrorsTotal.WithLabelValues("test", "transport")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AttemptErrorsTotal.WithLabelValues("test", "protocol")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("test", "GET", "success")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("test", "GET", "failure")))

	observer := m.RequestDuration.WithLabelValues("test", "GET")
	metric, ok := observer.(prometheus.Metric)
	require.True(t, ok)
	var pb dto.Metric
	require.NoError(t, metric.Write(&pb))
	assert.Equal(t, uint64(1), pb.GetHistogram().GetSampleCount())
}

func TestMetrics_RecordsTimeoutOutcome(t *testing.T) {
	m := NewMetrics(nil)

	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		},
	}}
	c := newTestClient(t, testConfig("http://backend"), WithDoer(doer), WithMetrics(m))

	out := Post[presentation](context.Background(), c, "/generate", map[string]string{"content": "x"},
		WithTimeout(20*time.Millisecond))
	require.True(t, out.TimedOut())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("test", "POST", "timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AttemptErrorsTotal.WithLabelValues("test", "deadline")))
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.recordCall("c", "GET", "success", 0.5)
	m.recordAttempt("c", "GET")
	m.recordAttemptError("c", "transport")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"pptgen_apiclient_requests_total",
		"pptgen_apiclient_attempts_total",
		"pptgen_apiclient_attempt_errors_total",
		"pptgen_apiclient_request_duration_seconds",
	}, names)
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.recordAttempt("c", "GET")
		m.recordAttemptError("c", "decode")
		m.recordCall("c", "GET", "failure", 1)
	})
}
