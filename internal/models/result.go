package models

import (
	"time"
)

// ReconcileError describes a failure scoped to one transaction or one
// wallet during a reconciliation pass.
type ReconcileError struct {
	WalletID   string `json:"wallet_id"`
	SafeTxHash string `json:"safe_tx_hash,omitempty"`
	Stage      string `json:"stage"` // fetch, store, notify, malformed, panic, skipped
	Message    string `json:"message"`
}

func (e ReconcileError) Error() string {
	if e.SafeTxHash != "" {
		return e.Stage + " " + e.SafeTxHash + ": " + e.Message
	}
	return e.Stage + ": " + e.Message
}

// ReconcileResult contains the outcome of reconciling one wallet.
type ReconcileResult struct {
	WalletID      string           `json:"wallet_id"`
	Address       string           `json:"address"`
	ChainID       int64            `json:"chain_id"`
	Pending       int              `json:"pending"`
	NewCount      int              `json:"new_count"`
	NotifiedCount int              `json:"notified_count"`
	Errors        []ReconcileError `json:"errors,omitempty"`
	Duration      time.Duration    `json:"duration"`
}

// PassResult aggregates one fleet pass across all enabled wallets.
type PassResult struct {
	PassID            string             `json:"pass_id"`
	StartedAt         time.Time          `json:"started_at"`
	Duration          time.Duration      `json:"duration"`
	WalletsChecked    int                `json:"wallets_checked"`
	WalletsSkipped    int                `json:"wallets_skipped"`
	NewTransactions   int                `json:"new_transactions"`
	NotificationsSent int                `json:"notifications_sent"`
	Errors            []ReconcileError   `json:"errors,omitempty"`
	PerWallet         []*ReconcileResult `json:"per_wallet,omitempty"`
}
