// Package metrics provides Prometheus metrics for the salescore service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the salescore service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring Metrics
	analyses          prometheus.Counter
	unresolvedSignals prometheus.Counter
	synergies         *prometheus.CounterVec
	dominantPersona   *prometheus.CounterVec
	scoringLatency    prometheus.Histogram
	probability       prometheus.Histogram
	confidence        prometheus.Histogram
	validationErrors  *prometheus.CounterVec

	// Journey Metrics
	journeyAppends    *prometheus.CounterVec
	journeyRejections *prometheus.CounterVec
	journeyConflicts  prometheus.Counter
	journeyDuplicates prometheus.Counter
	journeyResets     prometheus.Counter
	journeysTotal     prometheus.Gauge

	// Store Metrics
	storeLatency *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// percentBuckets cover a 0..100 scale in steps of ten.
var percentBuckets = prometheus.LinearBuckets(10, 10, 9) //nolint:gochecknoglobals // constant bucket layout

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "salescore",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics on the configured registry.
func (m *Manager) initializeMetrics() {
	m.analyses = m.counter("analyses_total", "Total number of completed analyses")
	m.unresolvedSignals = m.counter("signals_unresolved_total", "Selected signals with no catalog match")
	m.synergies = m.counterVec("synergies_detected_total", "Category synergies detected by pair", "pair")
	m.dominantPersona = m.counterVec("personality_dominant_total", "Analyses by dominant personality dimension", "dimension")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "End-to-end analysis latency in milliseconds", m.histogramBuckets)
	m.probability = m.histogram("calibrated_probability", "Distribution of calibrated purchase probability", percentBuckets)
	m.confidence = m.histogram("confidence", "Distribution of scoring confidence", percentBuckets)
	m.validationErrors = m.counterVec("validation_errors_total", "Rejected requests by field", "field")

	m.journeyAppends = m.counterVec("journey_appends_total", "Journey records appended by stage", "stage")
	m.journeyRejections = m.counterVec("journey_rejections_total", "Journey records rejected by reason", "reason")
	m.journeyConflicts = m.counter("journey_conflicts_total", "Compare-and-append conflicts retried")
	m.journeyDuplicates = m.counter("journey_duplicates_total", "Resubmitted journey records ignored")
	m.journeyResets = m.counter("journey_resets_total", "Journeys reset to a new session")
	m.journeysTotal = m.gauge("journeys", "Number of stored journeys")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Journey store operation latency in milliseconds", "backend", "operation")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordAnalysis records a completed analysis with its outcome.
func RecordAnalysis(probability, confidence, latencyMs float64, dominant string) {
	globalManager.analyses.Inc()
	globalManager.probability.Observe(probability)
	globalManager.confidence.Observe(confidence)
	globalManager.scoringLatency.Observe(latencyMs)
	globalManager.dominantPersona.WithLabelValues(dominant).Inc()
}

// RecordUnresolvedSignals adds n unresolved signal selections.
func RecordUnresolvedSignals(n int) {
	if n > 0 {
		globalManager.unresolvedSignals.Add(float64(n))
	}
}

// RecordSynergy increments the synergy counter for a category pair key.
func RecordSynergy(pair string) {
	globalManager.synergies.WithLabelValues(pair).Inc()
}

// RecordValidationError increments the validation error counter for field.
func RecordValidationError(field string) {
	globalManager.validationErrors.WithLabelValues(field).Inc()
}

// RecordJourneyAppend increments the append counter for a stage.
func RecordJourneyAppend(stage string) {
	globalManager.journeyAppends.WithLabelValues(stage).Inc()
}

// RecordJourneyRejection increments the rejection counter for a reason.
func RecordJourneyRejection(reason string) {
	globalManager.journeyRejections.WithLabelValues(reason).Inc()
}

// RecordJourneyConflict increments the conflict counter.
func RecordJourneyConflict() {
	globalManager.journeyConflicts.Inc()
}

// RecordJourneyDuplicate increments the duplicate submission counter.
func RecordJourneyDuplicate() {
	globalManager.journeyDuplicates.Inc()
}

// RecordJourneyReset increments the reset counter.
func RecordJourneyReset() {
	globalManager.journeyResets.Inc()
}

// UpdateJourneysTotal sets the number of stored journeys.
func UpdateJourneysTotal(count int) {
	globalManager.journeysTotal.Set(float64(count))
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(backend, operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
