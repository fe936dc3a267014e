// Package metrics provides Prometheus metrics for the tiersync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the tiersync service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Rating service metrics
	ratingFetches     *prometheus.CounterVec
	ratingFetchLatency prometheus.Histogram

	// Reconciliation metrics
	reconciliations  prometheus.Counter
	reconcileNoops   prometheus.Counter
	labelsAdded      prometheus.Counter
	labelsRemoved    prometheus.Counter
	labelErrors      prometheus.Counter
	firstAssignments prometheus.Counter

	// Aggregation metrics
	aggregationRuns     prometheus.Counter
	aggregationErrors   prometheus.Counter
	aggregationDuration prometheus.Histogram
	snapshotSize        prometheus.Gauge
	registeredUsers     prometheus.Gauge

	// Gateway metrics
	commandsHandled *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	inboundQueueLen prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tiersync",
		subsystem:        "sync",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.ratingFetches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rating_fetches_total",
			Help:      "Total rating profile fetches by outcome (ok, not_found, no_game_stats, transient, unauthorized)",
		},
		[]string{"outcome"},
	)

	m.ratingFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_fetch_latency_milliseconds",
		Help:      "Histogram of rating service fetch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.reconciliations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconciliations_total",
		Help:      "Total tier reconciliations that changed membership labels",
	})

	m.reconcileNoops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_noops_total",
		Help:      "Total reconciliations that required no label changes (idempotent re-runs)",
	})

	m.labelsAdded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "labels_added_total",
		Help:      "Total tier labels added to members",
	})

	m.labelsRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "labels_removed_total",
		Help:      "Total tier labels removed from members",
	})

	m.labelErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "label_errors_total",
		Help:      "Total per-label mutation failures during reconciliation",
	})

	m.firstAssignments = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "first_assignments_total",
		Help:      "Total first-time verifications (rename + announcement path)",
	})

	m.aggregationRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregation_runs_total",
		Help:      "Total leaderboard aggregation passes",
	})

	m.aggregationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregation_errors_total",
		Help:      "Total aggregation passes that failed outright",
	})

	m.aggregationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregation_duration_milliseconds",
		Help:      "Histogram of full aggregation pass duration in milliseconds",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	})

	m.snapshotSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_size",
		Help:      "Number of entries in the last published leaderboard snapshot",
	})

	m.registeredUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "registered_users",
		Help:      "Number of identities in the registry",
	})

	m.commandsHandled = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "commands_handled_total",
			Help:      "Total chat commands handled by command name and result (ok, user_error, error)",
		},
		[]string{"command", "result"},
	)

	m.eventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "gateway_events_dropped_total",
		Help:      "Total inbound gateway events dropped (duplicates or full queue)",
	})

	m.inboundQueueLen = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "gateway_inbound_queue_length",
		Help:      "Current length of the inbound gateway event queue",
	})
}

// RecordRatingFetch counts one rating fetch with its outcome label.
func RecordRatingFetch(outcome string) {
	globalManager.ratingFetches.WithLabelValues(outcome).Inc()
}

// RecordRatingFetchLatency records rating fetch latency in milliseconds.
func RecordRatingFetchLatency(latencyMs float64) {
	globalManager.ratingFetchLatency.Observe(latencyMs)
}

// RecordReconciliation increments the changed-reconciliation counter.
func RecordReconciliation() {
	globalManager.reconciliations.Inc()
}

// RecordReconcileNoop increments the no-op reconciliation counter.
func RecordReconcileNoop() {
	globalManager.reconcileNoops.Inc()
}

// RecordLabelAdded increments the labels-added counter.
func RecordLabelAdded() {
	globalManager.labelsAdded.Inc()
}

// RecordLabelRemoved increments the labels-removed counter.
func RecordLabelRemoved() {
	globalManager.labelsRemoved.Inc()
}

// RecordLabelError increments the per-label failure counter.
func RecordLabelError() {
	globalManager.labelErrors.Inc()
}

// RecordFirstAssignment increments the first-verification counter.
func RecordFirstAssignment() {
	globalManager.firstAssignments.Inc()
}

// RecordAggregationRun increments the aggregation pass counter.
func RecordAggregationRun() {
	globalManager.aggregationRuns.Inc()
}

// RecordAggregationError increments the failed aggregation counter.
func RecordAggregationError() {
	globalManager.aggregationErrors.Inc()
}

// RecordAggregationDuration records a full pass duration in milliseconds.
func RecordAggregationDuration(durationMs float64) {
	globalManager.aggregationDuration.Observe(durationMs)
}

// UpdateSnapshotSize sets the size of the last published snapshot.
func UpdateSnapshotSize(size int) {
	globalManager.snapshotSize.Set(float64(size))
}

// UpdateRegisteredUsers sets the current registry size.
func UpdateRegisteredUsers(count int) {
	globalManager.registeredUsers.Set(float64(count))
}

// RecordCommandHandled counts one handled chat command.
func RecordCommandHandled(command, result string) {
	globalManager.commandsHandled.WithLabelValues(command, result).Inc()
}

// RecordEventDropped increments the dropped inbound event counter.
func RecordEventDropped() {
	globalManager.eventsDropped.Inc()
}

// UpdateInboundQueueLength sets the inbound queue length gauge.
func UpdateInboundQueueLength(n int) {
	globalManager.inboundQueueLen.Set(float64(n))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
