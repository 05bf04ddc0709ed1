package web

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the API server. Each server
// gets its own registry so tests never hit duplicate registration.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec
	RefreshCounter   *prometheus.CounterVec
	RateLimitHits    prometheus.Counter
	UnusedEndpoints  *prometheus.GaugeVec
	registry         *prometheus.Registry
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graveyard_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		LatencyHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graveyard_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RefreshCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graveyard_refreshes_total",
				Help: "Total number of analysis refreshes by outcome",
			},
			[]string{"outcome"},
		),
		RateLimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "graveyard_rate_limit_hits_total",
				Help: "Total number of rate limited requests",
			},
		),
		UnusedEndpoints: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "graveyard_unused_endpoints",
				Help: "Unused endpoints found in the latest analysis",
			},
			[]string{"service"},
		),
		registry: registry,
	}

	registry.MustRegister(m.RequestCounter)
	registry.MustRegister(m.LatencyHistogram)
	registry.MustRegister(m.RefreshCounter)
	registry.MustRegister(m.RateLimitHits)
	registry.MustRegister(m.UnusedEndpoints)

	return m
}

// IncrementRequest increments the request counter.
func (m *Metrics) IncrementRequest(method, path string, status int) {
	m.RequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// RecordLatency records request latency.
func (m *Metrics) RecordLatency(method, path string, seconds float64) {
	m.LatencyHistogram.WithLabelValues(method, path).Observe(seconds)
}

// IncrementRefresh increments the refresh counter for an outcome.
func (m *Metrics) IncrementRefresh(outcome string) {
	m.RefreshCounter.WithLabelValues(outcome).Inc()
}

// IncrementRateLimitHit counts one rejected request.
func (m *Metrics) IncrementRateLimitHit() {
	m.RateLimitHits.Inc()
}

// SetUnusedEndpoints records the latest unused count for a service.
func (m *Metrics) SetUnusedEndpoints(service string, count int) {
	m.UnusedEndpoints.WithLabelValues(service).Set(float64(count))
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
