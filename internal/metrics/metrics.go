// Package metrics exposes Prometheus instrumentation for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const namespace = "relay"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RelayMetrics holds the broadcast engine collectors. It implements
// relay.Observer.
type RelayMetrics struct {
	ActiveConnections prometheus.Gauge
	Broadcasts        *prometheus.CounterVec
	Deliveries        *prometheus.CounterVec
	BroadcastDuration *prometheus.HistogramVec
}

var _ relay.Observer = (*RelayMetrics)(nil)

// NewRelayMetrics creates and registers the relay collectors on reg.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of usernames currently registered.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of broadcasts by event type.",
		}, []string{"type"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of per-connection deliveries by event type and outcome.",
		}, []string{"type", "outcome"}),
		BroadcastDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_duration_seconds",
			Help:      "Time spent fanning one event out to every connection.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"type"}),
	}

	reg.MustRegister(m.ActiveConnections, m.Broadcasts, m.Deliveries, m.BroadcastDuration)
	return m
}

// ObserveBroadcast records the outcome of one broadcast.
func (m *RelayMetrics) ObserveBroadcast(report relay.Report) {
	kind := string(report.Type)
	m.Broadcasts.WithLabelValues(kind).Inc()
	m.Deliveries.WithLabelValues(kind, "delivered").Add(float64(report.Delivered()))
	m.Deliveries.WithLabelValues(kind, "failed").Add(float64(report.Failed()))
	m.BroadcastDuration.WithLabelValues(kind).Observe(report.Duration.Seconds())
}

// SetConnected records the number of registered usernames.
func (m *RelayMetrics) SetConnected(n int) {
	m.ActiveConnections.Set(float64(n))
}
