package connectivity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for the connectivity monitor.
//
// Metrics:
//   - pptgen_connectivity_probes_total: Health probes by result (success/failure)
//   - pptgen_connectivity_probe_duration_seconds: Health probe duration
//   - pptgen_connectivity_healthy: 1 while the backend is considered healthy
//   - pptgen_connectivity_online: 1 while the host reports network presence
//   - pptgen_connectivity_last_success_timestamp: Unix time of the last successful probe
//   - pptgen_connectivity_notifications_total: Connectivity issue events emitted
type Metrics struct {
	ProbesTotal          *prometheus.CounterVec
	ProbeDuration        prometheus.Histogram
	Healthy              prometheus.Gauge
	Online               prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge
	NotificationsTotal   prometheus.Counter
}

// NewMetrics creates the monitor metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pptgen",
			Subsystem: "connectivity",
			Name:      "probes_total",
			Help:      "Total number of backend health probes by result",
		}, []string{"result"}),

		ProbeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pptgen",
			Subsystem: "connectivity",
			Name:      "probe_duration_seconds",
			Help:      "Duration of backend health probes in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		Healthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pptgen",
			Subsystem: "connectivity",
			Name:      "healthy",
			Help:      "1 if the backend answered a probe within the offline threshold, 0 otherwise",
		}),

		Online: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pptgen",
			Subsystem: "connectivity",
			Name:      "online",
			Help:      "1 if the host reports network presence, 0 otherwise",
		}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pptgen",
			Subsystem: "connectivity",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful health probe",
		}),

		NotificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pptgen",
			Subsystem: "connectivity",
			Name:      "notifications_total",
			Help:      "Total number of connectivity issue notifications emitted",
		}),
	}
}

func (m *Metrics) recordProbe(ok bool, seconds float64) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.ProbesTotal.WithLabelValues(result).Inc()
	m.ProbeDuration.Observe(seconds)
}

func (m *Metrics) setStatus(s Status) {
	if m == nil {
		return
	}
	m.Healthy.Set(boolToFloat(s.IsHealthy))
	m.Online.Set(boolToFloat(s.IsOnline))
	m.LastSuccessTimestamp.Set(float64(s.LastHealthCheck.Unix()))
}

func (m *Metrics) recordNotification() {
	if m == nil {
		return
	}
	m.NotificationsTotal.Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
