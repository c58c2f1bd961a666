// Package telemetry exposes Prometheus metrics for the HTTP API, upstream
// Linear calls and report delivery.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a registry and the metric vectors registered on it.
type Recorder struct {
	registry *prometheus.Registry

	httpRequestDuration *prometheus.HistogramVec
	upstreamDuration    *prometheus.HistogramVec
	upstreamErrors      *prometheus.CounterVec
	reportsSent         *prometheus.CounterVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"method", "path", "status"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linear_request_duration_seconds",
				Help:    "Linear GraphQL call duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"operation"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linear_request_errors_total",
				Help: "Total number of failed Linear GraphQL calls",
			},
			[]string{"operation"},
		),
		reportsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reports_sent_total",
				Help: "Total number of report emails by outcome",
			},
			[]string{"kind", "status"}, // status: sent, failed, skipped
		),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveUpstream records one Linear call.
func (r *Recorder) ObserveUpstream(operation string, err error, d time.Duration) {
	r.upstreamDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		r.upstreamErrors.WithLabelValues(operation).Inc()
	}
}

// RecordHTTPRequestDuration records one HTTP request.
func (r *Recorder) RecordHTTPRequestDuration(method, path, status string, d time.Duration) {
	r.httpRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// RecordReportSent counts a report delivery outcome.
func (r *Recorder) RecordReportSent(kind, status string) {
	r.reportsSent.WithLabelValues(kind, status).Inc()
}

// GinMiddleware records request durations labelled by route template so
// /api/projects/:id does not explode label cardinality.
func (r *Recorder) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		r.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
