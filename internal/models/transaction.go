package models

import (
	"time"
)

// PendingTransaction is the canonical form of a not-yet-executed multisig
// transaction as reported by the Safe Transaction Source at poll time.
// The source normalizes the service's loose response shape into this record
// exactly once; downstream code never chases fallbacks.
type PendingTransaction struct {
	SafeTxHash    string    `json:"safe_tx_hash"`
	To            string    `json:"to"`
	Value         string    `json:"value"` // wei, decimal string
	Data          string    `json:"data,omitempty"`
	Method        string    `json:"method,omitempty"` // decoded method name, if any
	Nonce         uint64    `json:"nonce"`
	Confirmations int       `json:"confirmations"`
	Threshold     int       `json:"threshold"`
	SubmittedAt   time.Time `json:"submitted_at,omitempty"`
}

// NotificationReason classifies why a notification event was produced.
type NotificationReason string

const (
	// ReasonNew marks the first sighting of a pending transaction.
	ReasonNew NotificationReason = "new"
	// ReasonProgressed is reserved for a notify-on-confirmation-change
	// policy. The reconciliation engine does not emit it.
	ReasonProgressed NotificationReason = "progressed"
)

// NotificationEvent is the decision output of reconciliation: which wallet,
// which transaction, the confirmation snapshot, and why it triggered.
type NotificationEvent struct {
	Wallet        *MonitoredWallet    `json:"wallet"`
	Transaction   *PendingTransaction `json:"transaction"`
	Confirmations int                 `json:"confirmations"`
	Threshold     int                 `json:"threshold"`
	Reason        NotificationReason  `json:"reason"`
	CreatedAt     time.Time           `json:"created_at"`
}
