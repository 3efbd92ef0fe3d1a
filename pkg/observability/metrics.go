package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthChecksTotal    *prometheus.CounterVec
	TokenAcquireTotal  *prometheus.CounterVec
	AuthCheckDuration  *prometheus.HistogramVec

	// Migration metrics
	MigrationsTotal       *prometheus.CounterVec
	MigratedDatasetsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gnauth_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gnauth_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gnauth_authorisation_checks_total",
				Help: "Total number of per-resource authorisation checks",
			},
			[]string{"outcome"},
		),
		TokenAcquireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gnauth_token_acquisitions_total",
				Help: "Total number of token boundary acquisitions",
			},
			[]string{"result"},
		),
		AuthCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gnauth_authorisation_check_duration_seconds",
				Help:    "Authorisation query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		MigrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gnauth_migrations_total",
				Help: "Total number of migration pipeline runs",
			},
			[]string{"status"},
		),
		MigratedDatasetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gnauth_migrated_datasets_total",
				Help: "Total number of dataset rows linked by migration",
			},
			[]string{"dataset_type"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthChecksTotal,
		m.TokenAcquireTotal,
		m.AuthCheckDuration,
		m.MigrationsTotal,
		m.MigratedDatasetsTotal,
	)

	return m
}

// RegisterDBStats exposes the authorisation store's connection pool stats
// as gauges sampled at scrape time.
func (m *Metrics) RegisterDBStats(db *sql.DB) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gnauth_db_connections_open",
			Help: "Open authorisation store connections",
		}, func() float64 { return float64(db.Stats().OpenConnections) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gnauth_db_connections_idle",
			Help: "Idle authorisation store connections",
		}, func() float64 { return float64(db.Stats().Idle) }),
	)
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			metrics.HTTPRequestsTotal.WithLabelValues(
				r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(
				r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler returns the HTTP handler exposing the registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
