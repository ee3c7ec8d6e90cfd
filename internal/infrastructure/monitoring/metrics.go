// Package monitoring provides Prometheus metrics and OpenTelemetry tracing
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "discovery"

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Discovery metrics
	searchesTotal    *prometheus.CounterVec
	searchDuration   *prometheus.HistogramVec
	exhaustedTotal   prometheus.Counter
	resetsTotal      prometheus.Counter
	storeCallLatency *prometheus.HistogramVec
	storeErrorsTotal *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	sweptSessions    prometheus.Counter
}

var _ outbound.MetricsRecorder = (*MetricsCollector)(nil)

// NewMetricsCollector creates a collector with its own registry, so several
// collectors can coexist in one process (tests, CLI runs)
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	m := &MetricsCollector{
		logger:   logger.Named("metrics"),
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Searches by phase used, variation tier and outcome",
			},
			[]string{"phase", "tier", "outcome"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "End to end search duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),
		exhaustedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exhausted_total",
				Help:      "Searches that ran out of variation tiers",
			},
		),
		resetsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_resets_total",
				Help:      "Session resets requested by clients",
			},
		),
		storeCallLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_call_duration_seconds",
				Help:      "Recipe store call duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 3.0},
			},
			[]string{"operation"},
		),
		storeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Failed recipe store calls",
			},
			[]string{"operation"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Sessions currently held by the session store",
			},
		),
		sweptSessions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swept_sessions_total",
				Help:      "Sessions removed by the expiry sweeper",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.searchesTotal,
		m.searchDuration,
		m.exhaustedTotal,
		m.resetsTotal,
		m.storeCallLatency,
		m.storeErrorsTotal,
		m.activeSessions,
		m.sweptSessions,
	)
	return m
}

// RecordSearch counts a finished search
func (m *MetricsCollector) RecordSearch(phase string, tier int, outcome string, duration time.Duration) {
	m.searchesTotal.WithLabelValues(phase, strconv.Itoa(tier), outcome).Inc()
	m.searchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordExhausted counts a search that ran out of tiers
func (m *MetricsCollector) RecordExhausted() {
	m.exhaustedTotal.Inc()
}

// RecordStoreCall observes one recipe store call
func (m *MetricsCollector) RecordStoreCall(operation string, duration time.Duration, err error) {
	m.storeCallLatency.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.storeErrorsTotal.WithLabelValues(operation).Inc()
	}
}

// RecordReset counts a session reset
func (m *MetricsCollector) RecordReset() {
	m.resetsTotal.Inc()
}

// SetActiveSessions sets the active session gauge
func (m *MetricsCollector) SetActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

// RecordSweep counts sessions removed by a sweep
func (m *MetricsCollector) RecordSweep(removed int) {
	m.sweptSessions.Add(float64(removed))
}

// RegisterCacheStats exposes the hit and miss counters of a cache
func (m *MetricsCollector) RegisterCacheStats(name string, stats func() (hits, misses int64)) {
	labels := prometheus.Labels{"cache": name}
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_hits_total",
			Help:        "Cache hits",
			ConstLabels: labels,
		}, func() float64 {
			hits, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_misses_total",
			Help:        "Cache misses",
			ConstLabels: labels,
		}, func() float64 {
			_, misses := stats()
			return float64(misses)
		}),
	)
}

// HTTPMiddleware records request counts and latency by route pattern
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the collector's registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}
