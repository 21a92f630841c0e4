package invoke

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for component invocations on a
// private registry.
type Metrics struct {
	registry *prometheus.Registry

	Invocations *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	InFlight    prometheus.Gauge
}

// NewMetrics creates the collectors under the given namespace
// ("components" yields components_invocations_total).
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Total number of component invocations by outcome",
		}, []string{"component", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Duration of component invocations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invocations_in_flight",
			Help:      "Number of component invocations currently running",
		}),
	}
	reg.MustRegister(m.Invocations, m.Duration, m.InFlight)
	return m
}

// Registry exposes the underlying registry, e.g. for testutil.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// unknownComponentLabel replaces names that are not registered so callers
// cannot mint new label values.
const unknownComponentLabel = "unknown"

func (m *Metrics) record(component, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if outcome == "unknown_component" {
		component = unknownComponentLabel
	}
	m.Invocations.WithLabelValues(component, outcome).Inc()
	m.Duration.WithLabelValues(component).Observe(d.Seconds())
}
