package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for SafeWatch
type PrometheusMetrics struct {
	// Fleet pass metrics
	PassesTotal          prometheus.Counter
	PassDuration         prometheus.Histogram
	WalletsCheckedTotal  prometheus.Counter
	WalletsSkippedTotal  prometheus.Counter
	ReconcileDuration    *prometheus.HistogramVec
	PendingTransactions  *prometheus.GaugeVec
	NewTransactionsTotal prometheus.Counter

	// Notification metrics
	NotificationsSentTotal   *prometheus.CounterVec
	NotificationFailedTotal  *prometheus.CounterVec
	NotificationSendDuration prometheus.Histogram

	// Source metrics
	SourceErrorsTotal   *prometheus.CounterVec
	SourceFetchDuration prometheus.Histogram

	// Storage metrics
	StoreErrorsTotal prometheus.Counter
	SeenRecordsSwept prometheus.Counter

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	GoroutineCount    prometheus.Gauge
	MemoryUsage       prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		PassesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "safewatch_passes_total",
				Help: "Total number of fleet passes run",
			},
		),

		PassDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "safewatch_pass_duration_seconds",
				Help:    "Time spent running a full fleet pass",
				Buckets: prometheus.DefBuckets,
			},
		),

		WalletsCheckedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "safewatch_wallets_checked_total",
				Help: "Total number of wallet reconciliations completed",
			},
		),

		WalletsSkippedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "safewatch_wallets_skipped_total",
				Help: "Total number of wallets skipped because a previous reconciliation was still running",
			},
		),

		ReconcileDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safewatch_reconcile_duration_seconds",
				Help:    "Time spent reconciling a single wallet",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"chain_id"},
		),

		PendingTransactions: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "safewatch_pending_transactions",
				Help: "Pending transactions observed on the last reconciliation per wallet",
			},
			[]string{"wallet", "chain_id"},
		),

		NewTransactionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "safewatch_new_transactions_total",
				Help: "Total number of newly observed pending transactions",
			},
		),

		NotificationsSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safewatch_notifications_sent_total",
				Help: "Total number of notifications delivered",
			},
			[]string{"channel"},
		),

		NotificationFailedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safewatch_notifications_failed_total",
				Help: "Total number of notification delivery failures",
			},
			[]string{"channel"},
		),

		NotificationSendDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "safewatch_notification_send_duration_seconds",
				Help:    "Time spent delivering a notification",
				Buckets: prometheus.DefBuckets,
			},
		),

		SourceErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safewatch_source_errors_total",
				Help: "Total number of Safe Transaction Service fetch failures",
			},
			[]string{"code"},
		),

		SourceFetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "safewatch_source_fetch_duration_seconds",
				Help:    "Time spent fetching pending transactions for a wallet",
				Buckets: prometheus.DefBuckets,
			},
		),

		StoreErrorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "safewatch_store_errors_total",
				Help: "Total number of seen-store operation failures",
			},
		),

		SeenRecordsSwept: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "safewatch_seen_records_swept_total",
				Help: "Total number of seen records removed by retention cleanup",
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safewatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safewatch_http_request_duration_seconds",
				Help:    "HTTP request latencies",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "safewatch_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "safewatch_component_health",
				Help: "Component health status (1 healthy, 0 unhealthy)",
			},
			[]string{"component"},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "safewatch_goroutines",
				Help: "Current number of goroutines",
			},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "safewatch_memory_bytes",
				Help: "Current allocated memory in bytes",
			},
		),
	}
}

// UpdateApplicationUptime sets the uptime gauge
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth sets a component health gauge
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateGoroutineCount sets the goroutine gauge
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}

// UpdateMemoryUsage sets the memory gauge
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
