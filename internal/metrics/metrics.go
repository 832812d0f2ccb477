package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheOperation identifies the cache method being instrumented.
type CacheOperation string

const (
	CacheOperationGet    CacheOperation = "get"
	CacheOperationSet    CacheOperation = "set"
	CacheOperationDelete CacheOperation = "delete"
	CacheOperationFlush  CacheOperation = "flush"
)

// CacheResult captures the result of a cache operation.
type CacheResult string

const (
	// CacheHit indicates a stored description pair was reused.
	CacheHit CacheResult = "hit"
	// CacheMiss indicates no usable entry was present.
	CacheMiss CacheResult = "miss"
	// CacheStored indicates a set call persisted the entry.
	CacheStored CacheResult = "stored"
	// CacheDeleted indicates a delete or flush completed.
	CacheDeleted CacheResult = "deleted"
	// CacheSkipped indicates the global cache switch suppressed the call.
	CacheSkipped CacheResult = "skipped"
	// CacheError indicates the backend failed; callers treat it as a miss.
	CacheError CacheResult = "error"
)

// Recorder publishes Prometheus metrics for metadata generation.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	cacheOperations *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec

	generations   *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	diagnostics   *prometheus.CounterVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a dedicated
// registry is created so multiple recorders can coexist without conflicting with
// the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seometa",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests served.",
	}, []string{"route", "status_code"})

	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seometa",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for completed HTTP requests.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route"})

	cacheOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seometa",
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Description cache operations.",
	}, []string{"operation", "result"})

	cacheLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seometa",
		Subsystem: "cache",
		Name:      "operation_duration_seconds",
		Help:      "Latency distribution for description cache operations.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"operation", "result"})

	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seometa",
		Subsystem: "generation",
		Name:      "results_total",
		Help:      "Generated titles and descriptions by source.",
	}, []string{"output", "source"})

	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seometa",
		Subsystem: "invalidation",
		Name:      "events_total",
		Help:      "Mutation events handled by the invalidation hooks.",
	}, []string{"event"})

	diagnostics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seometa",
		Subsystem: "generation",
		Name:      "diagnostics_total",
		Help:      "Contract violations reported by callers of the builders.",
	}, []string{"kind"})

	reg.MustRegister(httpRequests, httpLatency, cacheOperations, cacheLatency, generations, invalidations, diagnostics)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return &Recorder{
		gatherer:        reg,
		handler:         handler,
		httpRequests:    httpRequests,
		httpLatency:     httpLatency,
		cacheOperations: cacheOperations,
		cacheLatency:    cacheLatency,
		generations:     generations,
		invalidations:   invalidations,
		diagnostics:     diagnostics,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests and advanced
// integrations.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveHTTP records the status and latency for a completed request.
func (r *Recorder) ObserveHTTP(route string, statusCode int, duration time.Duration) {
	if r == nil {
		return
	}
	routeLabel := normalizeLabel(route)
	statusLabel := strconv.Itoa(statusCode)
	if statusCode <= 0 {
		statusLabel = "unknown"
	}
	r.httpRequests.WithLabelValues(routeLabel, statusLabel).Inc()
	r.httpLatency.WithLabelValues(routeLabel).Observe(duration.Seconds())
}

// ObserveCache records one cache operation.
func (r *Recorder) ObserveCache(operation CacheOperation, result CacheResult, duration time.Duration) {
	if r == nil {
		return
	}
	opLabel := string(operation)
	if opLabel == "" {
		opLabel = string(CacheOperationGet)
	}
	resLabel := normalizeLabel(string(result))
	r.cacheOperations.WithLabelValues(opLabel, resLabel).Inc()
	r.cacheLatency.WithLabelValues(opLabel, resLabel).Observe(duration.Seconds())
}

// ObserveGeneration counts a produced title or description by its source.
func (r *Recorder) ObserveGeneration(output, source string) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(normalizeLabel(output), normalizeLabel(source)).Inc()
}

// ObserveInvalidation counts a handled mutation event.
func (r *Recorder) ObserveInvalidation(event string) {
	if r == nil {
		return
	}
	r.invalidations.WithLabelValues(normalizeLabel(event)).Inc()
}

// ObserveDiagnostic counts a reported contract violation.
func (r *Recorder) ObserveDiagnostic(kind string) {
	if r == nil {
		return
	}
	r.diagnostics.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
