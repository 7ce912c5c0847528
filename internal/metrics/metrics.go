// Package metrics exposes Prometheus counters for submissions and exports.
// All methods are safe on a nil *Metrics so callers can run without it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teamreports"

// Export outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeNotImplemented = "not_implemented"
	OutcomeStoreError     = "store_error"
	OutcomeRenderError    = "render_error"
)

type Metrics struct {
	registry         *prometheus.Registry
	exportsTotal     *prometheus.CounterVec
	exportDuration   *prometheus.HistogramVec
	exportBytes      *prometheus.HistogramVec
	reportsSubmitted prometheus.Counter
	rateLimited      prometheus.Counter
	mirrored         *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Master report export attempts by format and outcome.",
		}, []string{"format", "outcome"}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time spent fetching, aggregating and rendering an export.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
		exportBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_size_bytes",
			Help:      "Size of rendered export documents.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"}),
		reportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_submitted_total",
			Help:      "Reports accepted and stored.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		mirrored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_mirrored_total",
			Help:      "Reports copied to the spreadsheet by outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP requests by method, route pattern and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.exportsTotal,
		m.exportDuration,
		m.exportBytes,
		m.reportsSubmitted,
		m.rateLimited,
		m.mirrored,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) ObserveExport(format, outcome string, elapsed time.Duration, size int) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(format, outcome).Inc()
	if outcome == OutcomeSuccess {
		m.exportDuration.WithLabelValues(format).Observe(elapsed.Seconds())
		m.exportBytes.WithLabelValues(format).Observe(float64(size))
	}
}

func (m *Metrics) ReportSubmitted() {
	if m == nil {
		return
	}
	m.reportsSubmitted.Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) Mirrored(ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = "error"
	}
	m.mirrored.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one request. route should be the router pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
