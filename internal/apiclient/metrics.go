package apiclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for backend calls.
//
// Metrics:
//   - pptgen_apiclient_requests_total: Completed calls by client, method and outcome (success/failure/timeout)
//   - pptgen_apiclient_attempts_total: Requests sent, retries included, by client and method
//   - pptgen_apiclient_attempt_errors_total: Failed attempts by client and kind
//     (transport, protocol, decode, deadline, circuit_open)
//   - pptgen_apiclient_request_duration_seconds: Whole-call duration by client and method
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	AttemptsTotal      *prometheus.CounterVec
	AttemptErrorsTotal *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// NewMetrics creates the client metrics and registers them on reg.
// A nil reg leaves them unregistered.
//
// Example:
//
//	metrics := apiclient.NewMetrics(prometheus.DefaultRegisterer)
//	client, _ := apiclient.New(cfg, apiclient.WithMetrics(metrics))
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pptgen",
			Subsystem: "apiclient",
			Name:      "requests_total",
			Help:      "Total number of backend calls by outcome",
		}, []string{"client", "method", "outcome"}),

		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pptgen",
			Subsystem: "apiclient",
			Name:      "attempts_total",
			Help:      "Total number of requests sent to the backend, retries included",
		}, []string{"client", "method"}),

		AttemptErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pptgen",
			Subsystem: "apiclient",
			Name:      "attempt_errors_total",
			Help:      "Total number of failed attempts by error kind",
		}, []string{"client", "kind"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pptgen",
			Subsystem: "apiclient",
			Name:      "request_duration_seconds",
			Help:      "Duration of whole backend calls in seconds, retries included",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"client", "method"}),
	}
}

func (m *Metrics) recordAttempt(client, method string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(client, method).Inc()
}

func (m *Metrics) recordAttemptError(client, kind string) {
	if m == nil {
		return
	}
	m.AttemptErrorsTotal.WithLabelValues(client, kind).Inc()
}

func (m *Metrics) recordCall(client, method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(client, method, outcome).Inc()
	m.RequestDuration.WithLabelValues(client, method).Observe(seconds)
}
