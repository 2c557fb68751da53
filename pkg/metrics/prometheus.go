// Package metrics provides Prometheus metrics for the touchrank rating service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Rating model
	refits            prometheus.Counter
	refitDuration     prometheus.Histogram
	mmIterations      prometheus.Histogram
	convergenceMisses prometheus.Counter

	// Ingestion
	observations     *prometheus.CounterVec
	poolsIngested    prometheus.Counter
	ingestRejections *prometheus.CounterVec
	competitors      prometheus.Gauge
	events           prometheus.Gauge

	// Prediction and simulation
	predictions        prometheus.Counter
	simulations        prometheus.Counter
	simulationTrials   prometheus.Counter
	simulationDuration prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	streamClients       prometheus.Gauge

	// Persistence pipeline
	persistQueueSize     prometheus.Gauge
	persistQueueCapacity prometheus.Gauge
	persistEnqueued      prometheus.Counter
	persistDropped       prometheus.Counter
	snapshotWrites       *prometheus.CounterVec
	snapshotWriteLatency prometheus.Histogram
	persistWorkers       prometheus.Gauge

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "touchrank",
		subsystem:      "engine",
		latencyBuckets: prometheus.DefBuckets,
		constLabels:    map[string]string{},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.refits = m.counter("refits_total", "Number of full Bradley-Terry refits")
	m.refitDuration = m.histogram("refit_duration_seconds", "Wall time of a refit", m.latencyBuckets)
	m.mmIterations = m.histogram("mm_iterations", "MM passes needed per refit",
		[]float64{1, 5, 10, 20, 50, 100, 150, 200})
	m.convergenceMisses = m.counter("convergence_misses_total", "Refits that stopped at the iteration cap")

	m.observations = m.counterVec("observations_total", "Bouts recorded, by source", "source")
	m.poolsIngested = m.counter("pools_ingested_total", "Pool sheets accepted")
	m.ingestRejections = m.counterVec("ingest_rejections_total", "Rejected submissions, by reason", "reason")
	m.competitors = m.gauge("competitors", "Competitors known across all events")
	m.events = m.gauge("events", "Open events")

	m.predictions = m.counter("predictions_total", "Pairwise predictions served")
	m.simulations = m.counter("simulations_total", "Bracket simulation runs")
	m.simulationTrials = m.counter("simulation_trials_total", "Bracket trials played")
	m.simulationDuration = m.histogram("simulation_duration_seconds", "Wall time of a simulation run",
		[]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status", ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request latency", ConstLabels: m.constLabels, Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.streamClients = m.gauge("stream_clients", "Connected trajectory stream clients")

	m.persistQueueSize = m.gauge("persist_queue_size", "Snapshot events waiting to be written")
	m.persistQueueCapacity = m.gauge("persist_queue_capacity", "Capacity of the snapshot queue")
	m.persistEnqueued = m.counter("persist_enqueued_total", "Snapshot events enqueued")
	m.persistDropped = m.counter("persist_dropped_total", "Snapshot events dropped because the queue was full")
	m.snapshotWrites = m.counterVec("snapshot_writes_total", "Snapshot writes by outcome", "result")
	m.snapshotWriteLatency = m.histogram("snapshot_write_duration_seconds", "Latency of a snapshot write", m.latencyBuckets)
	m.persistWorkers = m.gauge("persist_workers", "Running persistence workers")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordRefit records one refit with its iteration count and outcome.
func RecordRefit(d time.Duration, iterations int, converged bool) {
	globalManager.refits.Inc()
	globalManager.refitDuration.Observe(d.Seconds())
	globalManager.mmIterations.Observe(float64(iterations))
	if !converged {
		globalManager.convergenceMisses.Inc()
	}
}

// RecordObservation counts a recorded bout.
func RecordObservation(source string) {
	globalManager.observations.WithLabelValues(source).Inc()
}

// RecordPoolIngested counts an accepted pool sheet.
func RecordPoolIngested() {
	globalManager.poolsIngested.Inc()
}

// RecordIngestRejection counts a rejected submission.
func RecordIngestRejection(reason string) {
	globalManager.ingestRejections.WithLabelValues(reason).Inc()
}

// UpdateCompetitors sets the competitor gauge.
func UpdateCompetitors(n int) {
	globalManager.competitors.Set(float64(n))
}

// UpdateEvents sets the open events gauge.
func UpdateEvents(n int) {
	globalManager.events.Set(float64(n))
}

// RecordPrediction counts a served prediction.
func RecordPrediction() {
	globalManager.predictions.Inc()
}

// RecordSimulation records a completed simulation run.
func RecordSimulation(trials int, d time.Duration) {
	globalManager.simulations.Inc()
	globalManager.simulationTrials.Add(float64(trials))
	globalManager.simulationDuration.Observe(d.Seconds())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// AddStreamClients adjusts the stream client gauge by delta.
func AddStreamClients(delta int) {
	globalManager.streamClients.Add(float64(delta))
}

// UpdatePersistQueue sets the queue size and capacity gauges.
func UpdatePersistQueue(size, capacity int) {
	globalManager.persistQueueSize.Set(float64(size))
	globalManager.persistQueueCapacity.Set(float64(capacity))
}

// RecordPersistEnqueue counts an enqueued snapshot event.
func RecordPersistEnqueue() {
	globalManager.persistEnqueued.Inc()
}

// RecordPersistDropped counts a snapshot event dropped on a full queue.
func RecordPersistDropped() {
	globalManager.persistDropped.Inc()
}

// RecordSnapshotWrite records a snapshot write. result is one of
// "written", "stale" or "error".
func RecordSnapshotWrite(result string, d time.Duration) {
	globalManager.snapshotWrites.WithLabelValues(result).Inc()
	globalManager.snapshotWriteLatency.Observe(d.Seconds())
}

// UpdatePersistWorkers sets the running worker gauge.
func UpdatePersistWorkers(n int) {
	globalManager.persistWorkers.Set(float64(n))
}

// UpdateSystemMemoryUsage sets the heap usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
