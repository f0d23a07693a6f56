package models

import (
	"time"
)

// MonitoredWallet represents a Safe wallet the system watches for
// pending multisig transactions. (ChainID, Address) is unique per owner.
type MonitoredWallet struct {
	ID        string    `json:"id" db:"id"`
	Owner     string    `json:"owner" db:"owner"`
	ChainID   int64     `json:"chain_id" db:"chain_id"`
	Address   string    `json:"address" db:"address"` // lowercased 0x form
	Name      string    `json:"name,omitempty" db:"name"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the wallet name, falling back to a shortened address.
func (w *MonitoredWallet) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	if len(w.Address) >= 10 {
		return w.Address[:6] + "…" + w.Address[len(w.Address)-4:]
	}
	return w.Address
}

// SeenTransactionRecord is the durable record of a pending transaction the
// system has already processed for a wallet. Unique per (WalletID, SafeTxHash).
// Notified transitions only false to true; FirstSeen never changes once set.
type SeenTransactionRecord struct {
	WalletID      string    `json:"wallet_id" db:"wallet_id"`
	SafeTxHash    string    `json:"safe_tx_hash" db:"safe_tx_hash"`
	FirstSeen     time.Time `json:"first_seen" db:"first_seen"`
	LastChecked   time.Time `json:"last_checked" db:"last_checked"`
	Confirmations int       `json:"confirmations" db:"confirmations"`
	Threshold     int       `json:"threshold" db:"threshold"`
	Notified      bool      `json:"notified" db:"notified"`
}
