package metrics

import (
	"runtime"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/models"
)

// Manager handles all application metrics
type Manager struct {
	prometheus *PrometheusMetrics
	logger     *logrus.Entry
	startTime  time.Time
}

// NewManager creates a new metrics manager
func NewManager() *Manager {
	return &Manager{
		prometheus: NewPrometheusMetrics(),
		logger:     logrus.WithField("component", "metrics"),
		startTime:  time.Now(),
	}
}

// GetPrometheusMetrics returns the Prometheus metrics instance
func (m *Manager) GetPrometheusMetrics() *PrometheusMetrics {
	return m.prometheus
}

// UpdateSystemMetrics updates system-level metrics like memory and goroutines
func (m *Manager) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.prometheus.UpdateMemoryUsage(memStats.Alloc)
	m.prometheus.UpdateGoroutineCount(runtime.NumGoroutine())
	m.prometheus.UpdateApplicationUptime(m.startTime)
}

// RecordPass records the aggregate outcome of one fleet pass
func (m *Manager) RecordPass(result *models.PassResult) {
	m.prometheus.PassesTotal.Inc()
	m.prometheus.PassDuration.Observe(result.Duration.Seconds())
	m.prometheus.WalletsCheckedTotal.Add(float64(result.WalletsChecked))
	m.prometheus.WalletsSkippedTotal.Add(float64(result.WalletsSkipped))
	m.prometheus.NewTransactionsTotal.Add(float64(result.NewTransactions))
}

// RecordReconcile records one wallet reconciliation outcome
func (m *Manager) RecordReconcile(result *models.ReconcileResult) {
	chainLabel := strconv.FormatInt(result.ChainID, 10)
	m.prometheus.ReconcileDuration.WithLabelValues(chainLabel).Observe(result.Duration.Seconds())
	m.prometheus.PendingTransactions.WithLabelValues(result.Address, chainLabel).Set(float64(result.Pending))
}

// RecordNotification records a notification delivery attempt
func (m *Manager) RecordNotification(channel string, duration time.Duration, success bool) {
	m.prometheus.NotificationSendDuration.Observe(duration.Seconds())
	if success {
		m.prometheus.NotificationsSentTotal.WithLabelValues(channel).Inc()
	} else {
		m.prometheus.NotificationFailedTotal.WithLabelValues(channel).Inc()
	}
}

// RecordSourceError records a classified source fetch failure
func (m *Manager) RecordSourceError(code string) {
	m.prometheus.SourceErrorsTotal.WithLabelValues(code).Inc()
}

// RecordSourceFetch records a successful source fetch duration
func (m *Manager) RecordSourceFetch(duration time.Duration) {
	m.prometheus.SourceFetchDuration.Observe(duration.Seconds())
}

// RecordStoreError records a seen-store operation failure
func (m *Manager) RecordStoreError() {
	m.prometheus.StoreErrorsTotal.Inc()
}

// RecordCleanup records retention sweep results
func (m *Manager) RecordCleanup(removed int) {
	m.prometheus.SeenRecordsSwept.Add(float64(removed))
}
