package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	Subscribes  *prometheus.CounterVec
	MXLookup    prometheus.Histogram
	ListedCount prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Subscribes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_capture_subscribe_total",
			Help: "Subscribe attempts by outcome",
		}, []string{"outcome"}),
		MXLookup: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signup_capture_mx_lookup_seconds",
			Help:    "Duration of MX lookups for submitted email domains",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		ListedCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signup_capture_subscribers_listed",
			Help: "Number of subscribers returned by the most recent list call",
		}),
	}
}

// RecordSubscribe counts one subscribe attempt with the given outcome.
func (m *Metrics) RecordSubscribe(outcome string) {
	m.Subscribes.WithLabelValues(outcome).Inc()
}

// RecordListed sets the size of the last listing.
func (m *Metrics) RecordListed(n int) {
	m.ListedCount.Set(float64(n))
}

// ObserveMXLookup records one MX lookup duration.
func (m *Metrics) ObserveMXLookup(d time.Duration) {
	m.MXLookup.Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
