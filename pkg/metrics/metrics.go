package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func status(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// Metrics holds all Prometheus metrics for conversions and the HTTP surface.
// Every Metrics owns its registry, so independent instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	// Conversion metrics
	filesTotal    *prometheus.CounterVec
	fileDuration  *prometheus.HistogramVec
	bytesTotal    *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runFailedLast *prometheus.GaugeVec

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// Option configures NewMetrics
type Option func(*prometheus.Registry)

// WithRuntimeCollectors adds the Go runtime and process collectors, which a
// long-running server exposes and a one-shot CLI run does not need.
func WithRuntimeCollectors() Option {
	return func(reg *prometheus.Registry) {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewMetrics creates and registers all metrics on a fresh registry
func NewMetrics(opts ...Option) *Metrics {
	reg := prometheus.NewRegistry()
	for _, opt := range opts {
		opt(reg)
	}
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		filesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexas_files_processed_total",
				Help: "Total number of files converted",
			},
			[]string{"operation", "status"},
		),

		fileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexas_file_duration_seconds",
				Help:    "Time spent converting one file",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexas_bytes_total",
				Help: "Bytes read and written by conversions",
			},
			[]string{"operation", "direction"},
		),

		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexas_runs_total",
				Help: "Total number of batch runs",
			},
			[]string{"operation", "status"},
		),

		runFailedLast: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nexas_run_failed_files",
				Help: "Number of files that failed in the most recent run",
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexas_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexas_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nexas_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexas_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexas_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// Registry returns the registry every metric is registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFile records one file conversion
func (m *Metrics) RecordFile(operation string, success bool, duration time.Duration, bytesIn, bytesOut int) {
	m.filesTotal.WithLabelValues(operation, status(success)).Inc()
	m.fileDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.bytesTotal.WithLabelValues(operation, "in").Add(float64(bytesIn))
	m.bytesTotal.WithLabelValues(operation, "out").Add(float64(bytesOut))
}

// RecordRun records the outcome of a batch run
func (m *Metrics) RecordRun(operation string, failed int) {
	m.runsTotal.WithLabelValues(operation, status(failed == 0)).Inc()
	m.runFailedLast.WithLabelValues(operation).Set(float64(failed))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(status(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	m.healthChecksTotal.WithLabelValues(status(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteTextfile writes the current metrics to path for the node exporter
// textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
