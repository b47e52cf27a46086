// Package metrics provides Prometheus metrics for the divari results service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Recalculation
	recalculations        *prometheus.CounterVec
	recalculationDuration *prometheus.HistogramVec
	teamResultsWritten    prometheus.Counter
	seasonResultsWritten  prometheus.Counter
	teamsCreated          prometheus.Counter
	competitionsProcessed prometheus.Counter

	// Reports
	reportRequests *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
	reportEntries  *prometheus.GaugeVec

	// Job queue and workers
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueEnqueued  prometheus.Counter
	queueDequeued  prometheus.Counter
	queueRejected  *prometheus.CounterVec
	jobsCoalesced  prometheus.Counter
	workerCount    prometheus.Gauge
	workerErrors   prometheus.Counter
	workerDuration prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record* helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "divari",
		subsystem:        "results",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.recalculations = auto.NewCounterVec(m.counterOpts("recalculations_total",
		"Recalculations by kind (competition, season) and outcome"), []string{"kind", "outcome"})
	m.recalculationDuration = auto.NewHistogramVec(m.histogramOpts("recalculation_duration_milliseconds",
		"Recalculation duration in milliseconds"), []string{"kind"})
	m.teamResultsWritten = auto.NewCounter(m.counterOpts("team_results_written_total",
		"Team results written by recalculation"))
	m.seasonResultsWritten = auto.NewCounter(m.counterOpts("season_results_written_total",
		"Season results written by recalculation"))
	m.teamsCreated = auto.NewCounter(m.counterOpts("teams_created_total",
		"Teams created on demand or by season seeding"))
	m.competitionsProcessed = auto.NewCounter(m.counterOpts("competitions_processed_total",
		"Competitions grouped into teams"))

	m.reportRequests = auto.NewCounterVec(m.counterOpts("report_requests_total",
		"Report computations by report and outcome"), []string{"report", "outcome"})
	m.reportDuration = auto.NewHistogramVec(m.histogramOpts("report_duration_milliseconds",
		"Report computation duration in milliseconds"), []string{"report"})
	m.reportEntries = auto.NewGaugeVec(m.gaugeOpts("report_entries",
		"Entries returned by the last computation of a report"), []string{"report"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Pending recalculation jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Recalculation job queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Recalculation jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Recalculation jobs dequeued"))
	m.queueRejected = auto.NewCounterVec(m.counterOpts("queue_rejected_total",
		"Recalculation jobs rejected by reason"), []string{"reason"})
	m.jobsCoalesced = auto.NewCounter(m.counterOpts("jobs_coalesced_total",
		"Recalculation requests merged into an already pending job"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Recalculation workers"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Failed recalculation jobs"))
	m.workerDuration = auto.NewHistogram(m.histogramOpts("worker_job_duration_milliseconds",
		"Recalculation job duration in milliseconds"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
}

// RecordRecalculation records one finished recalculation of the given kind.
func RecordRecalculation(kind string, durationMs float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	globalManager.recalculations.WithLabelValues(kind, outcome).Inc()
	globalManager.recalculationDuration.WithLabelValues(kind).Observe(durationMs)
}

// AddTeamResultsWritten adds n written team results.
func AddTeamResultsWritten(n int) { globalManager.teamResultsWritten.Add(float64(n)) }

// AddSeasonResultsWritten adds n written season results.
func AddSeasonResultsWritten(n int) { globalManager.seasonResultsWritten.Add(float64(n)) }

// AddTeamsCreated adds n created teams.
func AddTeamsCreated(n int) { globalManager.teamsCreated.Add(float64(n)) }

// RecordCompetitionProcessed increments the processed competitions counter.
func RecordCompetitionProcessed() { globalManager.competitionsProcessed.Inc() }

// RecordReport records one report computation and its size.
func RecordReport(report string, entries int, durationMs float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	globalManager.reportRequests.WithLabelValues(report, outcome).Inc()
	globalManager.reportDuration.WithLabelValues(report).Observe(durationMs)
	if err == nil {
		globalManager.reportEntries.WithLabelValues(report).Set(float64(entries))
	}
}

// UpdateQueueSize sets the number of pending jobs.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected counts a job the queue refused.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// RecordJobCoalesced counts a request merged into a pending job.
func RecordJobCoalesced() { globalManager.jobsCoalesced.Inc() }

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerJob records a processed job.
func RecordWorkerJob(durationMs float64, err error) {
	globalManager.workerDuration.Observe(durationMs)
	if err != nil {
		globalManager.workerErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry the global manager registers on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
