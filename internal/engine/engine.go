package engine

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/metrics"
	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/internal/notify"
	"github.com/safewatch/safewatch/internal/source"
	"github.com/safewatch/safewatch/internal/store"
	"github.com/safewatch/safewatch/pkg/utils"
)

// Engine reconciles one wallet's pending transaction set against the seen
// store and dispatches notifications for newly observed transactions.
//
// Per (wallet, tx hash) key the record moves through
// UNSEEN -> SEEN_UNNOTIFIED -> SEEN_NOTIFIED: a record is created on first
// observation regardless of delivery outcome, and Notified flips to true
// only on a successful send. A transaction whose record is still
// un-notified is retried on every pass until delivery succeeds or the
// transaction leaves the pending set. Notified records only get their
// LastChecked and confirmation snapshot refreshed. This yields at most one
// successful notification per transaction and eventual delivery under
// transient sink failures.
type Engine struct {
	source  source.Source
	store   store.SeenStore
	sink    notify.Sink
	metrics *metrics.Manager
	logger  *logrus.Entry

	// now is injectable for deterministic tests
	now func() time.Time
}

// NewEngine creates a reconciliation engine. metricsManager may be nil.
func NewEngine(src source.Source, seenStore store.SeenStore, sink notify.Sink, metricsManager *metrics.Manager) *Engine {
	return &Engine{
		source:  src,
		store:   seenStore,
		sink:    sink,
		metrics: metricsManager,
		logger:  utils.GetLogger().WithField("component", "engine"),
		now:     time.Now,
	}
}

// SetClock overrides the engine clock, used in tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Reconcile runs one reconciliation pass for a single wallet. A source
// fetch failure returns a non-nil error with zero store mutation; the
// wallet is simply retried on the next scheduled pass. Store and sink
// failures are isolated per transaction and reported in the result.
func (e *Engine) Reconcile(ctx context.Context, wallet *models.MonitoredWallet) (*models.ReconcileResult, error) {
	startTime := e.now()
	result := &models.ReconcileResult{
		WalletID: wallet.ID,
		Address:  wallet.Address,
		ChainID:  wallet.ChainID,
	}

	fetchStart := time.Now()
	pending, err := e.source.FetchPending(ctx, wallet.ChainID, wallet.Address)
	if err != nil {
		code := source.ErrorCode(err)
		if e.metrics != nil {
			e.metrics.RecordSourceError(code)
		}
		e.logger.WithFields(logrus.Fields{
			"wallet":   wallet.Address,
			"chain_id": wallet.ChainID,
			"code":     code,
			"error":    err,
		}).Warn("Pending transaction fetch failed")

		result.Errors = append(result.Errors, models.ReconcileError{
			WalletID: wallet.ID,
			Stage:    "fetch",
			Message:  err.Error(),
		})
		result.Duration = e.now().Sub(startTime)
		return result, err
	}
	if e.metrics != nil {
		e.metrics.RecordSourceFetch(time.Since(fetchStart))
	}

	// The source contract already orders by (nonce, hash); re-sorting here
	// keeps determinism independent of the injected implementation.
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Nonce != pending[j].Nonce {
			return pending[i].Nonce < pending[j].Nonce
		}
		return pending[i].SafeTxHash < pending[j].SafeTxHash
	})

	result.Pending = len(pending)

	for i := range pending {
		tx := &pending[i]
		if tx.SafeTxHash == "" {
			result.Errors = append(result.Errors, models.ReconcileError{
				WalletID: wallet.ID,
				Stage:    "malformed",
				Message:  "pending transaction missing safe tx hash",
			})
			continue
		}
		e.reconcileTransaction(ctx, wallet, tx, result)
	}

	result.Duration = e.now().Sub(startTime)
	if e.metrics != nil {
		e.metrics.RecordReconcile(result)
	}

	e.logger.WithFields(logrus.Fields{
		"wallet":   wallet.Address,
		"chain_id": wallet.ChainID,
		"pending":  result.Pending,
		"new":      result.NewCount,
		"notified": result.NotifiedCount,
		"errors":   len(result.Errors),
	}).Debug("Wallet reconciled")

	return result, nil
}

// reconcileTransaction processes one pending transaction. Failures are
// recorded on the result and never abort sibling transactions.
func (e *Engine) reconcileTransaction(ctx context.Context, wallet *models.MonitoredWallet, tx *models.PendingTransaction, result *models.ReconcileResult) {
	existing, err := e.store.GetSeen(ctx, wallet.ID, tx.SafeTxHash)
	if err != nil {
		e.recordStoreError(result, tx.SafeTxHash, err)
		return
	}

	now := e.now()

	switch {
	case existing == nil:
		// First observation. The record is persisted before the delivery
		// attempt; Notified stays false until a send succeeds.
		record := &models.SeenTransactionRecord{
			WalletID:      wallet.ID,
			SafeTxHash:    tx.SafeTxHash,
			FirstSeen:     now,
			LastChecked:   now,
			Confirmations: tx.Confirmations,
			Threshold:     tx.Threshold,
			Notified:      false,
		}
		result.NewCount++

		if err := e.store.PutSeen(ctx, record); err != nil {
			e.recordStoreError(result, tx.SafeTxHash, err)
			return
		}

		if e.notify(ctx, wallet, tx, result) {
			record.Notified = true
			result.NotifiedCount++
			if err := e.store.PutSeen(ctx, record); err != nil {
				e.recordStoreError(result, tx.SafeTxHash, err)
			}
		}

	case !existing.Notified:
		// Delivery retry: the record exists but no send has succeeded yet.
		existing.LastChecked = now
		existing.Confirmations = tx.Confirmations
		existing.Threshold = tx.Threshold

		if e.notify(ctx, wallet, tx, result) {
			existing.Notified = true
			result.NotifiedCount++
		}

		if err := e.store.PutSeen(ctx, existing); err != nil {
			e.recordStoreError(result, tx.SafeTxHash, err)
		}

	default:
		// Already notified: refresh the snapshot only. Confirmation
		// progress intentionally does not trigger a second notification.
		existing.LastChecked = now
		existing.Confirmations = tx.Confirmations
		existing.Threshold = tx.Threshold

		if err := e.store.PutSeen(ctx, existing); err != nil {
			e.recordStoreError(result, tx.SafeTxHash, err)
		}
	}
}

// notify attempts one delivery and reports success. Sink errors are
// captured on the result; they never propagate.
func (e *Engine) notify(ctx context.Context, wallet *models.MonitoredWallet, tx *models.PendingTransaction, result *models.ReconcileResult) bool {
	event := &models.NotificationEvent{
		Wallet:        wallet,
		Transaction:   tx,
		Confirmations: tx.Confirmations,
		Threshold:     tx.Threshold,
		Reason:        models.ReasonNew,
		CreatedAt:     e.now(),
	}

	sendStart := time.Now()
	err := e.sink.Notify(ctx, event)
	if e.metrics != nil {
		e.metrics.RecordNotification(e.sink.Name(), time.Since(sendStart), err == nil)
	}

	if err != nil {
		result.Errors = append(result.Errors, models.ReconcileError{
			WalletID:   wallet.ID,
			SafeTxHash: tx.SafeTxHash,
			Stage:      "notify",
			Message:    err.Error(),
		})
		return false
	}
	return true
}

func (e *Engine) recordStoreError(result *models.ReconcileResult, safeTxHash string, err error) {
	if e.metrics != nil {
		e.metrics.RecordStoreError()
	}
	result.Errors = append(result.Errors, models.ReconcileError{
		WalletID:   result.WalletID,
		SafeTxHash: safeTxHash,
		Stage:      "store",
		Message:    err.Error(),
	})
}
