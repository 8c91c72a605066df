// Package metrics exposes Prometheus instrumentation for the locator service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream sources.
const (
	SourceLocation   = "location"
	SourceEnrichment = "enrichment"
)

// Upstream outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	registry         *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	staleResponses   *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// New creates a fresh registry with HTTP, upstream and session metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locator",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests served",
	}, []string{"method", "path", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "locator",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	upstreamRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locator",
		Name:      "upstream_requests_total",
		Help:      "Calls made to the location and enrichment APIs",
	}, []string{"source", "outcome"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "locator",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of calls to the location and enrichment APIs",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"source"})

	staleResponses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locator",
		Name:      "stale_responses_total",
		Help:      "Responses discarded because a newer request superseded them",
	}, []string{"source"})

	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "locator",
		Name:      "active_sessions",
		Help:      "Number of in-memory locator sessions",
	})

	registry.MustRegister(
		httpRequests,
		httpDuration,
		upstreamRequests,
		upstreamDuration,
		staleResponses,
		activeSessions,
	)

	return &Metrics{
		registry:         registry,
		httpRequests:     httpRequests,
		httpDuration:     httpDuration,
		upstreamRequests: upstreamRequests,
		upstreamDuration: upstreamDuration,
		staleResponses:   staleResponses,
		activeSessions:   activeSessions,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpDuration.With(labels).Observe(duration.Seconds())
}

// ObserveUpstream records one call to an upstream API.
func (m *Metrics) ObserveUpstream(source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(source, outcome).Inc()
	m.upstreamDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// IncStale counts a discarded out-of-order response.
func (m *Metrics) IncStale(source string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(source).Inc()
}

// SetActiveSessions publishes the current session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
