// Package metrics provides Prometheus metrics for the teamboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Ingestion results used as label values.
const (
	ResultOK           = "ok"
	ResultUnavailable  = "source_unavailable"
	ResultInconsistent = "inconsistent_team_data"
	ResultInvalid      = "invalid_batch"
)

// Manager manages all Prometheus metrics for the teamboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	ingestions        *prometheus.CounterVec
	ingestionLatency  prometheus.Histogram
	sourceFetches     *prometheus.CounterVec
	sourceLatency     *prometheus.HistogramVec
	droppedLogins     prometheus.Counter
	submittedLogins   prometheus.Counter
	leaderboardCommit prometheus.Counter

	// Leaderboard state
	leaderboardEntries prometheus.Gauge
	leaderboardMax     prometheus.Gauge
	leaderboardVersion prometheus.Gauge
	leaderboardUpdated prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByType        *prometheus.CounterVec

	// Live feed
	wsClients    prometheus.Gauge
	wsBroadcasts prometheus.Counter
	wsDropped    prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Without WithPrometheusRegistry
// metrics are registered on a fresh private registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "teamboard",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.ingestions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingestions_total",
		Help:        "Score batch ingestions by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.ingestionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingestion_latency_milliseconds",
		Help:        "End-to-end ingestion latency including both source fetches",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.sourceFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "source_fetches_total",
		Help:        "Fetches from external score sources by source and result",
		ConstLabels: m.constLabels,
	}, []string{"source", "result"})

	m.sourceLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "source_fetch_latency_milliseconds",
		Help:        "Latency of external source fetches",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"source"})

	m.droppedLogins = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dropped_logins_total",
		Help:        "Submitted logins ignored because the login registry does not know them",
		ConstLabels: m.constLabels,
	})

	m.submittedLogins = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submitted_logins_total",
		Help:        "Login scores received across all batches",
		ConstLabels: m.constLabels,
	})

	m.leaderboardCommit = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "commits_total",
		Help:        "Leaderboard snapshots published",
		ConstLabels: m.constLabels,
	})

	m.leaderboardEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "entries",
		Help:        "Entries in the current leaderboard snapshot",
		ConstLabels: m.constLabels,
	})

	m.leaderboardMax = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "max_score",
		Help:        "Highest total score in the current leaderboard snapshot",
		ConstLabels: m.constLabels,
	})

	m.leaderboardVersion = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "version",
		Help:        "Version of the current leaderboard snapshot",
		ConstLabels: m.constLabels,
	})

	m.leaderboardUpdated = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_commit_unixtime",
		Help:        "Unix time of the last leaderboard commit",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorsByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_type_total",
		Help:        "Errors by type and severity",
		ConstLabels: m.constLabels,
	}, []string{"error_type", "severity"})

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ws_clients",
		Help:        "Connected live leaderboard clients",
		ConstLabels: m.constLabels,
	})

	m.wsBroadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ws_broadcasts_total",
		Help:        "Leaderboard snapshots broadcast to live clients",
		ConstLabels: m.constLabels,
	})

	m.wsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ws_dropped_messages_total",
		Help:        "Messages not delivered because a client send buffer was full",
		ConstLabels: m.constLabels,
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_alloc_bytes",
		Help:        "Bytes of allocated heap objects",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		ConstLabels: m.constLabels,
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RecordIngestion counts an ingestion attempt and observes its latency.
func (m *Manager) RecordIngestion(result string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.ingestions.WithLabelValues(result).Inc()
	m.ingestionLatency.Observe(latencyMs)
}

// RecordSourceFetch counts a fetch from an external source and observes its latency.
func (m *Manager) RecordSourceFetch(source, result string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.sourceFetches.WithLabelValues(source, result).Inc()
	m.sourceLatency.WithLabelValues(source).Observe(latencyMs)
}

// RecordBatch counts submitted and dropped logins of one accepted batch.
func (m *Manager) RecordBatch(submitted, dropped int) {
	if !m.enabled {
		return
	}
	m.submittedLogins.Add(float64(submitted))
	m.droppedLogins.Add(float64(dropped))
}

// RecordCommit updates the leaderboard gauges after a snapshot is published.
func (m *Manager) RecordCommit(entries int, maxScore int64, version uint64, at time.Time) {
	if !m.enabled {
		return
	}
	m.leaderboardCommit.Inc()
	m.leaderboardEntries.Set(float64(entries))
	m.leaderboardMax.Set(float64(maxScore))
	m.leaderboardVersion.Set(float64(version))
	m.leaderboardUpdated.Set(float64(at.Unix()))
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an HTTP error by endpoint and by type.
func (m *Manager) RecordHTTPError(endpoint, method, errorType, severity string) {
	if !m.enabled {
		return
	}
	m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	m.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateWSClients sets the number of connected live clients.
func (m *Manager) UpdateWSClients(n int) {
	if !m.enabled {
		return
	}
	m.wsClients.Set(float64(n))
}

// RecordWSBroadcast counts one broadcast and the clients it skipped.
func (m *Manager) RecordWSBroadcast(dropped int) {
	if !m.enabled {
		return
	}
	m.wsBroadcasts.Inc()
	m.wsDropped.Add(float64(dropped))
}

// UpdateSystem sets the process gauges.
func (m *Manager) UpdateSystem(allocBytes uint64, goroutines int, avgGCPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(allocBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if avgGCPauseMs > 0 {
		m.systemGCPauseTime.Observe(avgGCPauseMs)
	}
}

// Package-level helpers delegate to the global manager.

// RecordIngestion counts an ingestion attempt on the global manager.
func RecordIngestion(result string, latencyMs float64) {
	globalManager.RecordIngestion(result, latencyMs)
}

// RecordSourceFetch records a source fetch on the global manager.
func RecordSourceFetch(source, result string, latencyMs float64) {
	globalManager.RecordSourceFetch(source, result, latencyMs)
}

// RecordBatch records batch login counts on the global manager.
func RecordBatch(submitted, dropped int) {
	globalManager.RecordBatch(submitted, dropped)
}

// RecordCommit records a leaderboard commit on the global manager.
func RecordCommit(entries int, maxScore int64, version uint64, at time.Time) {
	globalManager.RecordCommit(entries, maxScore, version, at)
}

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPError records an HTTP error on the global manager.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.RecordHTTPError(endpoint, method, errorType, severity)
}

// UpdateWSClients sets the live client gauge on the global manager.
func UpdateWSClients(n int) {
	globalManager.UpdateWSClients(n)
}

// RecordWSBroadcast records a broadcast on the global manager.
func RecordWSBroadcast(dropped int) {
	globalManager.RecordWSBroadcast(dropped)
}

// UpdateSystem sets process gauges on the global manager.
func UpdateSystem(allocBytes uint64, goroutines int, avgGCPauseMs float64) {
	globalManager.UpdateSystem(allocBytes, goroutines, avgGCPauseMs)
}

// RefreshInterval returns how often the global manager's periodic gauges
// should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
