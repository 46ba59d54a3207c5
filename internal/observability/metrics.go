// Package observability collects Prometheus metrics for the HTTP surface
// and the resolution engine.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application registry and instruments.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	resolutionsTotal   prometheus.Counter
	cacheHitsTotal     prometheus.Counter
	cacheMissesTotal   prometheus.Counter
	invalidationsTotal prometheus.Counter
	orphanedOverrides  prometheus.Gauge
	danglingGrants     prometheus.Gauge
}

// NewMetrics initialises the registry and base instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicore_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinicore_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	resolutions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicore_authz_resolutions_total",
		Help: "Capability resolutions computed from the store.",
	})
	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicore_authz_cache_hits_total",
		Help: "Resolutions served from the cache.",
	})
	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicore_authz_cache_misses_total",
		Help: "Resolutions recomputed after a cache miss.",
	})
	invalidations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicore_authz_invalidations_total",
		Help: "Practice-level cache invalidations.",
	})
	orphaned := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clinicore_authz_orphaned_overrides",
		Help: "Override rows pointing at missing or inactive roles, per the last integrity scan.",
	})
	dangling := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clinicore_authz_dangling_assignments",
		Help: "Assignment rows pointing at missing roles, per the last integrity scan.",
	})
	registry.MustRegister(requests, duration, resolutions, hits, misses, invalidations, orphaned, dangling)
	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:      requests,
		requestDuration:    duration,
		resolutionsTotal:   resolutions,
		cacheHitsTotal:     hits,
		cacheMissesTotal:   misses,
		invalidationsTotal: invalidations,
		orphanedOverrides:  orphaned,
		danglingGrants:     dangling,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ResolutionComputed counts one full recomputation.
func (m *Metrics) ResolutionComputed() {
	if m != nil {
		m.resolutionsTotal.Inc()
	}
}

// CacheHit counts a resolution served from Redis.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHitsTotal.Inc()
	}
}

// CacheMiss counts a resolution that had to be recomputed.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMissesTotal.Inc()
	}
}

// PracticeInvalidated counts one version bump.
func (m *Metrics) PracticeInvalidated() {
	if m != nil {
		m.invalidationsTotal.Inc()
	}
}

// SetIntegrityCounts publishes the latest integrity scan results.
func (m *Metrics) SetIntegrityCounts(orphanedOverrides, danglingAssignments int) {
	if m == nil {
		return
	}
	m.orphanedOverrides.Set(float64(orphanedOverrides))
	m.danglingGrants.Set(float64(danglingAssignments))
}

// Registerer exposes the registry for custom instruments.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
