// Package metrics provides Prometheus metrics for the pairrank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pairrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ranking engine
	comparisonsResolved prometheus.Counter
	invalidComparisons  prometheus.Counter
	ratingDelta         prometheus.Histogram
	pairSelections      *prometheus.CounterVec
	itemsTotal          prometheus.Gauge
	meanUncertainty     prometheus.Gauge
	pairCoverage        prometheus.Gauge
	duplicateRequests   prometheus.Counter

	// Catalog
	catalogRefreshes prometheus.Counter
	catalogErrors    prometheus.Counter

	// Persistence
	persistQueueSize    prometheus.Gauge
	persistQueueDropped prometheus.Counter
	persistLatency      prometheus.Histogram
	persistErrors       prometheus.Counter
	snapshotsWritten    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pairrank",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.comparisonsResolved = m.counter("comparisons_resolved_total", "Total number of resolved pairwise comparisons")
	m.invalidComparisons = m.counter("comparisons_invalid_total", "Comparisons rejected for identical or unknown items")
	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_delta",
		Help:      "Magnitude of the winner's rating change per comparison",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 12, 16, 24, 32, 48},
	})
	m.pairSelections = m.counterVec("pair_selections_total", "Pairs proposed, by selection path", "path")
	m.itemsTotal = m.gauge("items_total", "Number of selectable items in the catalog")
	m.meanUncertainty = m.gauge("mean_uncertainty", "Mean uncertainty across rated items")
	m.pairCoverage = m.gauge("pair_coverage_ratio", "Share of possible pairs presented at least once")
	m.duplicateRequests = m.counter("duplicate_requests_total", "Comparison submissions replayed via request_id")

	m.catalogRefreshes = m.counter("catalog_refreshes_total", "Catalog re-scans")
	m.catalogErrors = m.counter("catalog_errors_total", "Catalog scan or watch failures")

	m.persistQueueSize = m.gauge("persist_queue_size", "Snapshots waiting to be persisted")
	m.persistQueueDropped = m.counter("persist_queue_dropped_total", "Snapshots rejected by a full or closed queue")
	m.persistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_latency_milliseconds",
		Help:      "Time to write one snapshot to the storage backend",
		Buckets:   m.histogramBuckets,
	})
	m.persistErrors = m.counter("persist_errors_total", "Snapshot writes that failed")
	m.snapshotsWritten = m.counter("snapshots_written_total", "Snapshots written to the storage backend")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Current memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Current number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordComparison records one resolved comparison and its rating delta.
func RecordComparison(delta float64) {
	globalManager.comparisonsResolved.Inc()
	globalManager.ratingDelta.Observe(delta)
}

// RecordInvalidComparison increments the rejected comparison counter.
func RecordInvalidComparison() {
	globalManager.invalidComparisons.Inc()
}

// RecordPairSelection increments the selection counter for path.
func RecordPairSelection(path string) {
	globalManager.pairSelections.WithLabelValues(path).Inc()
}

// UpdateItemsTotal sets the number of selectable items.
func UpdateItemsTotal(count int) {
	globalManager.itemsTotal.Set(float64(count))
}

// UpdateMeanUncertainty sets the mean uncertainty gauge.
func UpdateMeanUncertainty(v float64) {
	globalManager.meanUncertainty.Set(v)
}

// UpdatePairCoverage sets the pair coverage ratio in [0, 1].
func UpdatePairCoverage(ratio float64) {
	globalManager.pairCoverage.Set(ratio)
}

// RecordDuplicateRequest increments the replayed submission counter.
func RecordDuplicateRequest() {
	globalManager.duplicateRequests.Inc()
}

// RecordCatalogRefresh increments the catalog refresh counter.
func RecordCatalogRefresh() {
	globalManager.catalogRefreshes.Inc()
}

// RecordCatalogError increments the catalog error counter.
func RecordCatalogError() {
	globalManager.catalogErrors.Inc()
}

// UpdatePersistQueueSize sets the persistence queue depth.
func UpdatePersistQueueSize(size int) {
	globalManager.persistQueueSize.Set(float64(size))
}

// RecordPersistQueueDropped increments the dropped snapshot counter.
func RecordPersistQueueDropped() {
	globalManager.persistQueueDropped.Inc()
}

// RecordPersistLatency records the duration of one snapshot write.
func RecordPersistLatency(latencyMs float64) {
	globalManager.persistLatency.Observe(latencyMs)
}

// RecordPersistError increments the failed snapshot write counter.
func RecordPersistError() {
	globalManager.persistErrors.Inc()
}

// RecordSnapshotWritten increments the written snapshot counter.
func RecordSnapshotWritten() {
	globalManager.snapshotsWritten.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with a severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
