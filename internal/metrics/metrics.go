// Package metrics holds the Prometheus collectors of the API.
// Every method is safe on a nil *Metrics so callers can run without instrumentation.
package metrics

import (
	"net/http" // HTTP client and status codes
	"strconv"  // String conversion
	"time"     // Timestamps and durations

	"github.com/prometheus/client_golang/prometheus"            // Prometheus client
	"github.com/prometheus/client_golang/prometheus/collectors" // Go and process collectors
	"github.com/prometheus/client_golang/prometheus/promhttp"   // Metrics HTTP handler
)

const namespace = "qic_life"

// Metrics is a private registry with the API collectors
type Metrics struct {
	Registry *prometheus.Registry // Scraped by /metrics

	inFlight   prometheus.Gauge         // Requests being served
	requests   *prometheus.CounterVec   // Requests by method, route and status
	duration   *prometheus.HistogramVec // Latency by method and route
	jobRuns    *prometheus.CounterVec   // Job runs by outcome
	aiAnswers  *prometheus.CounterVec   // AI answers by source
	rateLimits *prometheus.CounterVec   // Rejections by scope
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		}, []string{"method", "route"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs by job and outcome.",
		}, []string{"job", "success"}),
		aiAnswers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "answers_total",
			Help:      "AI feature answers by feature and source.",
		}, []string{"feature", "source"}),
		rateLimits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}
	// Register runtime collectors alongside ours
	m.Registry.MustRegister(
		collectors.NewGoCollector(),                                       // Go runtime
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), // Process stats
		m.inFlight, m.requests, m.duration, m.jobRuns, m.aiAnswers, m.rateLimits,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// IncInFlight marks a request as started
func (m *Metrics) IncInFlight() {
	if m != nil {
		m.inFlight.Inc()
	}
}

// DecInFlight marks a request as finished
func (m *Metrics) DecInFlight() {
	if m != nil {
		m.inFlight.Dec()
	}
}

// ObserveRequest records one finished request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc() // Route is the gin pattern, not the raw path
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// JobRun records one scheduled job run
func (m *Metrics) JobRun(job string, err error) {
	if m != nil {
		m.jobRuns.WithLabelValues(job, strconv.FormatBool(err == nil)).Inc()
	}
}

// AIAnswer records where an AI feature answer came from
func (m *Metrics) AIAnswer(feature, source string) {
	if m != nil {
		m.aiAnswers.WithLabelValues(feature, source).Inc()
	}
}

// RateLimited records a rejected request
func (m *Metrics) RateLimited(scope string) {
	if m != nil {
		m.rateLimits.WithLabelValues(scope).Inc()
	}
}
