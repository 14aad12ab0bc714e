// Package metrics exposes Prometheus collectors for HTTP traffic and
// authentication outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge
	authOutcomes *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeit_http_requests_total",
			Help: "HTTP requests processed, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storeit_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storeit_http_inflight_requests",
			Help: "Requests currently being served.",
		}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeit_auth_outcomes_total",
			Help: "Authentication and recovery outcomes, by flow and result.",
		}, []string{"flow", "result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeit_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route.",
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.httpRequests, m.httpDuration, m.httpInflight, m.authOutcomes, m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RequestStarted and RequestFinished bracket one HTTP request.
func (m *Metrics) RequestStarted() { m.httpInflight.Inc() }

func (m *Metrics) RequestFinished(method, route string, status int, elapsed time.Duration) {
	m.httpInflight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// AuthOutcome counts one result of an auth flow, e.g. ("login", "wrong_password").
func (m *Metrics) AuthOutcome(flow, result string) {
	m.authOutcomes.WithLabelValues(flow, result).Inc()
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}
