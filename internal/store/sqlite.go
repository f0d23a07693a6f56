package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// SQLiteStorage implements Storage using SQLite
type SQLiteStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetSQLiteMigrations(),
	}
}

// Connect establishes database connection
func (s *SQLiteStorage) Connect() error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	// Enable foreign keys so wallet deletes cascade to seen records
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable foreign keys", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("SQLite database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStorage) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *SQLiteStorage) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create migrations table", err.Error())
	}

	for _, migration := range s.migrations {
		var exists int
		err := s.db.QueryRow("SELECT COUNT(1) FROM schema_migrations WHERE version = ?", migration.Version).Scan(&exists)
		if err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to check migration state", err.Error())
		}
		if exists > 0 {
			continue
		}

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				"Failed to apply migration "+migration.Version, err.Error())
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			migration.Version, migration.Description); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				"Failed to record migration "+migration.Version, err.Error())
		}

		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applied migration")
	}

	return nil
}

// --- SeenStore ---

// GetSeen returns the seen record for (wallet, tx hash), or nil when absent.
func (s *SQLiteStorage) GetSeen(ctx context.Context, walletID, safeTxHash string) (*models.SeenTransactionRecord, error) {
	record := &models.SeenTransactionRecord{}
	err := s.db.QueryRowContext(ctx, `
		SELECT wallet_id, safe_tx_hash, first_seen, last_checked, confirmations, threshold, notified
		FROM seen_transactions WHERE wallet_id = ? AND safe_tx_hash = ?`,
		walletID, safeTxHash).Scan(
		&record.WalletID, &record.SafeTxHash, &record.FirstSeen, &record.LastChecked,
		&record.Confirmations, &record.Threshold, &record.Notified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get seen record", err.Error())
	}
	return record, nil
}

// PutSeen upserts a seen record
func (s *SQLiteStorage) PutSeen(ctx context.Context, record *models.SeenTransactionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_transactions (wallet_id, safe_tx_hash, first_seen, last_checked, confirmations, threshold, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wallet_id, safe_tx_hash) DO UPDATE SET
			last_checked = excluded.last_checked,
			confirmations = excluded.confirmations,
			threshold = excluded.threshold,
			notified = excluded.notified`,
		record.WalletID, record.SafeTxHash, record.FirstSeen, record.LastChecked,
		record.Confirmations, record.Threshold, record.Notified)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to upsert seen record", err.Error())
	}
	return nil
}

// ListSeen returns all seen records for a wallet
func (s *SQLiteStorage) ListSeen(ctx context.Context, walletID string) ([]*models.SeenTransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet_id, safe_tx_hash, first_seen, last_checked, confirmations, threshold, notified
		FROM seen_transactions WHERE wallet_id = ? ORDER BY first_seen`, walletID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list seen records", err.Error())
	}
	defer rows.Close()

	var records []*models.SeenTransactionRecord
	for rows.Next() {
		record := &models.SeenTransactionRecord{}
		if err := rows.Scan(&record.WalletID, &record.SafeTxHash, &record.FirstSeen, &record.LastChecked,
			&record.Confirmations, &record.Threshold, &record.Notified); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan seen record", err.Error())
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// CleanupSeen removes records not checked within the retention window
func (s *SQLiteStorage) CleanupSeen(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM seen_transactions WHERE last_checked < ?", cutoff)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to cleanup seen records", err.Error())
	}
	removed, _ := result.RowsAffected()
	return int(removed), nil
}

// --- WalletRepository ---

// SaveWallet inserts a monitored wallet
func (s *SQLiteStorage) SaveWallet(ctx context.Context, wallet *models.MonitoredWallet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, owner, chain_id, address, name, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		wallet.ID, wallet.Owner, wallet.ChainID, wallet.Address, wallet.Name,
		wallet.Enabled, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save wallet", err.Error())
	}
	return nil
}

// GetWallet returns a wallet by id
func (s *SQLiteStorage) GetWallet(ctx context.Context, id string) (*models.MonitoredWallet, error) {
	wallet := &models.MonitoredWallet{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, chain_id, address, name, enabled, created_at, updated_at
		FROM wallets WHERE id = ?`, id).Scan(
		&wallet.ID, &wallet.Owner, &wallet.ChainID, &wallet.Address, &wallet.Name,
		&wallet.Enabled, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", id)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get wallet", err.Error())
	}
	return wallet, nil
}

// ListWallets returns all wallets, optionally only enabled ones
func (s *SQLiteStorage) ListWallets(ctx context.Context, enabledOnly bool) ([]*models.MonitoredWallet, error) {
	query := `
		SELECT id, owner, chain_id, address, name, enabled, created_at, updated_at
		FROM wallets`
	if enabledOnly {
		query += " WHERE enabled = TRUE"
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list wallets", err.Error())
	}
	defer rows.Close()

	var wallets []*models.MonitoredWallet
	for rows.Next() {
		wallet := &models.MonitoredWallet{}
		if err := rows.Scan(&wallet.ID, &wallet.Owner, &wallet.ChainID, &wallet.Address, &wallet.Name,
			&wallet.Enabled, &wallet.CreatedAt, &wallet.UpdatedAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan wallet", err.Error())
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}

// UpdateWallet updates mutable wallet fields
func (s *SQLiteStorage) UpdateWallet(ctx context.Context, wallet *models.MonitoredWallet) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE wallets SET name = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		wallet.Name, wallet.Enabled, wallet.UpdatedAt, wallet.ID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to update wallet", err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", wallet.ID)
	}
	return nil
}

// DeleteWallet removes a wallet; seen records cascade via foreign key
func (s *SQLiteStorage) DeleteWallet(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM wallets WHERE id = ?", id)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to delete wallet", err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", id)
	}
	return nil
}

// GetStorageStats returns storage statistics
func (s *SQLiteStorage) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM wallets").Scan(&stats.TotalWallets); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count wallets", err.Error())
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM wallets WHERE enabled = TRUE").Scan(&stats.EnabledWallets); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count enabled wallets", err.Error())
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM seen_transactions").Scan(&stats.TotalSeen); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count seen records", err.Error())
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM seen_transactions WHERE notified = TRUE").Scan(&stats.TotalNotified); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count notified records", err.Error())
	}

	var oldest sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MIN(first_seen) FROM seen_transactions").Scan(&oldest); err == nil && oldest.Valid {
		stats.OldestFirstSeen = &oldest.Time
	}

	return stats, nil
}

var _ Storage = (*SQLiteStorage)(nil)
