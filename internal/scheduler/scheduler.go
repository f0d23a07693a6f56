package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/engine"
	"github.com/safewatch/safewatch/internal/metrics"
	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/internal/store"
	"github.com/safewatch/safewatch/pkg/utils"
)

// SchedulerConfig holds fleet scheduler configuration
type SchedulerConfig struct {
	PollInterval    time.Duration `json:"poll_interval"`
	Concurrency     int           `json:"concurrency"`
	WalletTimeout   time.Duration `json:"wallet_timeout"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	RetentionDays   int           `json:"retention_days"`
}

// FleetScheduler drives reconciliation across all enabled wallets. Wallets
// are processed by a bounded worker pool; a per-wallet lock guarantees two
// overlapping passes never reconcile the same wallet concurrently; a busy
// wallet is skipped and recorded rather than queued.
type FleetScheduler struct {
	engine  *engine.Engine
	storage store.Storage
	config  *SchedulerConfig
	metrics *metrics.Manager
	logger  *logrus.Entry

	mu          sync.Mutex
	walletLocks map[string]*sync.Mutex
}

// NewFleetScheduler creates a new fleet scheduler. metricsManager may be nil.
func NewFleetScheduler(eng *engine.Engine, storage store.Storage, config *SchedulerConfig, metricsManager *metrics.Manager) *FleetScheduler {
	if config.Concurrency <= 0 {
		config.Concurrency = 5
	}
	if config.WalletTimeout <= 0 {
		config.WalletTimeout = 45 * time.Second
	}

	return &FleetScheduler{
		engine:      eng,
		storage:     storage,
		config:      config,
		metrics:     metricsManager,
		logger:      utils.GetLogger().WithField("component", "scheduler"),
		walletLocks: make(map[string]*sync.Mutex),
	}
}

// walletLock returns the mutex guarding one wallet's reconciliation.
func (s *FleetScheduler) walletLock(walletID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.walletLocks[walletID]
	if !ok {
		lock = &sync.Mutex{}
		s.walletLocks[walletID] = lock
	}
	return lock
}

// RunPass reconciles every enabled wallet once and returns the aggregated
// summary. One wallet's failure never aborts the others; per-wallet
// outcomes are captured independently and merged at the end.
func (s *FleetScheduler) RunPass(ctx context.Context) (*models.PassResult, error) {
	passID := uuid.NewString()
	startTime := time.Now()

	result := &models.PassResult{
		PassID:    passID,
		StartedAt: startTime,
	}

	wallets, err := s.storage.ListWallets(ctx, true)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list enabled wallets", err.Error())
	}

	s.logger.WithFields(logrus.Fields{
		"pass_id": passID,
		"wallets": len(wallets),
	}).Info("Starting fleet pass")

	perWallet := make([]*models.ReconcileResult, len(wallets))
	skipped := make([]bool, len(wallets))

	sem := make(chan struct{}, s.config.Concurrency)
	var wg sync.WaitGroup

	for i, wallet := range wallets {
		wg.Add(1)
		go func(i int, wallet *models.MonitoredWallet) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			perWallet[i], skipped[i] = s.reconcileWallet(ctx, wallet)
		}(i, wallet)
	}

	wg.Wait()

	for i, walletResult := range perWallet {
		if skipped[i] {
			result.WalletsSkipped++
		} else {
			result.WalletsChecked++
		}
		if walletResult == nil {
			continue
		}
		result.NewTransactions += walletResult.NewCount
		result.NotificationsSent += walletResult.NotifiedCount
		result.Errors = append(result.Errors, walletResult.Errors...)
		result.PerWallet = append(result.PerWallet, walletResult)
	}

	result.Duration = time.Since(startTime)
	if s.metrics != nil {
		s.metrics.RecordPass(result)
	}

	s.logger.WithFields(logrus.Fields{
		"pass_id":  passID,
		"checked":  result.WalletsChecked,
		"skipped":  result.WalletsSkipped,
		"new":      result.NewTransactions,
		"notified": result.NotificationsSent,
		"errors":   len(result.Errors),
		"duration": result.Duration,
	}).Info("Fleet pass completed")

	return result, nil
}

// reconcileWallet runs one wallet's reconciliation under its lock with a
// bounded timeout, recovering panics into error entries.
func (s *FleetScheduler) reconcileWallet(ctx context.Context, wallet *models.MonitoredWallet) (result *models.ReconcileResult, skipped bool) {
	lock := s.walletLock(wallet.ID)
	if !lock.TryLock() {
		s.logger.WithField("wallet", wallet.Address).Warn("Skipping wallet, previous reconciliation still running")
		return &models.ReconcileResult{
			WalletID: wallet.ID,
			Address:  wallet.Address,
			ChainID:  wallet.ChainID,
			Errors: []models.ReconcileError{{
				WalletID: wallet.ID,
				Stage:    "skipped",
				Message:  "previous reconciliation still in flight",
			}},
		}, true
	}
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"wallet": wallet.Address,
				"panic":  r,
			}).Error("Recovered panic during wallet reconciliation")
			result = &models.ReconcileResult{
				WalletID: wallet.ID,
				Address:  wallet.Address,
				ChainID:  wallet.ChainID,
				Errors: []models.ReconcileError{{
					WalletID: wallet.ID,
					Stage:    "panic",
					Message:  fmt.Sprint(r),
				}},
			}
		}
	}()

	walletCtx, cancel := context.WithTimeout(ctx, s.config.WalletTimeout)
	defer cancel()

	// A fetch failure is already recorded in the result; the error return
	// only signals that no state was mutated for this wallet.
	result, _ = s.engine.Reconcile(walletCtx, wallet)
	return result, false
}

// RunCleanup sweeps seen records older than the retention window.
func (s *FleetScheduler) RunCleanup(ctx context.Context) (int, error) {
	retentionDays := s.config.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}
	retention := time.Duration(retentionDays) * 24 * time.Hour

	removed, err := s.storage.CleanupSeen(ctx, retention)
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.RecordCleanup(removed)
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Seen record retention sweep completed")
	}
	return removed, nil
}
