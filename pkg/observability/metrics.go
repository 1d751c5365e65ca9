package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the access service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access decision metrics
	DecisionsTotal      *prometheus.CounterVec
	MenuResolutionsTotal *prometheus.CounterVec
	GrantsTotal         *prometheus.CounterVec
	RenamesTotal        *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "access_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_decisions_total",
				Help: "Total number of permission check decisions",
			},
			[]string{"resource", "action", "outcome"},
		),

		MenuResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_menu_resolutions_total",
				Help: "Total number of menu visibility resolutions by scope",
			},
			[]string{"scope"},
		),

		GrantsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_grants_total",
				Help: "Total number of permission grant writes",
			},
			[]string{"role", "granted"},
		),

		RenamesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_permission_renames_total",
				Help: "Total number of permission rename migrations",
			},
			[]string{"outcome"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "access_db_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision records the outcome of a permission check.
func (m *Metrics) RecordDecision(resource, action string, allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.DecisionsTotal.WithLabelValues(resource, action, outcome).Inc()
}

// RecordMenuResolution records a menu resolution by scope kind.
func (m *Metrics) RecordMenuResolution(scope string) {
	m.MenuResolutionsTotal.WithLabelValues(scope).Inc()
}

// RecordGrant records a grant write.
func (m *Metrics) RecordGrant(role string, granted bool) {
	m.GrantsTotal.WithLabelValues(role, strconv.FormatBool(granted)).Inc()
}

// RecordRename records a rename migration outcome.
func (m *Metrics) RecordRename(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.RenamesTotal.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records a database query duration.
func (m *Metrics) RecordDBQuery(operation string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// HTTPMiddleware wraps an HTTP handler with request metrics.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
