package store

import (
	"context"
	"time"

	"github.com/safewatch/safewatch/internal/models"
)

// SeenStore is the durable (tenant, transaction) keyed record of pending
// transactions the system has already processed. GetSeen returns (nil, nil)
// when no record exists. PutSeen is an upsert; a write must be visible to
// reads within the same reconciliation pass.
type SeenStore interface {
	GetSeen(ctx context.Context, walletID, safeTxHash string) (*models.SeenTransactionRecord, error)
	PutSeen(ctx context.Context, record *models.SeenTransactionRecord) error
	ListSeen(ctx context.Context, walletID string) ([]*models.SeenTransactionRecord, error)

	// CleanupSeen removes records whose last check is older than the
	// retention window. Maintenance only; never called during reconcile.
	CleanupSeen(ctx context.Context, retention time.Duration) (int, error)
}

// WalletRepository manages the monitored wallet registry. Deleting a wallet
// cascades to its seen-transaction records.
type WalletRepository interface {
	SaveWallet(ctx context.Context, wallet *models.MonitoredWallet) error
	GetWallet(ctx context.Context, id string) (*models.MonitoredWallet, error)
	ListWallets(ctx context.Context, enabledOnly bool) ([]*models.MonitoredWallet, error)
	UpdateWallet(ctx context.Context, wallet *models.MonitoredWallet) error
	DeleteWallet(ctx context.Context, id string) error
}

// Storage combines the persistence contracts with connection lifecycle.
type Storage interface {
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	SeenStore
	WalletRepository

	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// StorageStats provides storage statistics
type StorageStats struct {
	TotalWallets    int64      `json:"total_wallets"`
	EnabledWallets  int64      `json:"enabled_wallets"`
	TotalSeen       int64      `json:"total_seen"`
	TotalNotified   int64      `json:"total_notified"`
	OldestFirstSeen *time.Time `json:"oldest_first_seen,omitempty"`
	LastCleanup     *time.Time `json:"last_cleanup,omitempty"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
	RetentionDays    int           `json:"retention_days"`
}
