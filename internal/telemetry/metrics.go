// Package telemetry provides application-level observability for the platform.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<PRISM_TELEMETRY_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router, so it
// stays off the public ingress and outside any rate-limiting middleware.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as
// /api/v1/projects/:projectID/dashboards/:id) rather than the raw request URL
// to prevent unbounded label cardinality from user-supplied path segments.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Authorization metrics.
//
// PermissionDenialsTotal counts enforcement denials by action tag. A sudden
// spike on one action usually means a client regression (a UI surface calling
// an endpoint its role cannot use), not an attack, but it is the first graph
// to check either way.
//
// AccessSimulationsTotal counts super-admin access-simulation entries by
// outcome ("started", "denied"). Every "started" increment has a matching
// audit_logs row; a divergence between the two indicates an audit write
// problem.
var (
	PermissionDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_denials_total",
			Help: "Total number of permission enforcement denials, by action tag.",
		},
		[]string{"action"},
	)

	AccessSimulationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_simulations_total",
			Help: "Total number of super-admin access simulation attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of sessions created after successful external authentication.",
		},
	)
)

// Database connection pool gauges, polled periodically.
var (
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Current number of open database connections (in use + idle).",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Current number of database connections in use.",
		},
	)
)

// StartDBStatsCollector polls database/sql pool statistics every 30 seconds
// and exports them as gauges. It runs until the process exits.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := db.Stats()
			DBConnectionsOpen.Set(float64(stats.OpenConnections))
			DBConnectionsInUse.Set(float64(stats.InUse))
		}
	}()
	slog.Debug("database stats collector started")
}
