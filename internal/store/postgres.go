package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// PostgreSQLStorage implements Storage using PostgreSQL
type PostgreSQLStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(config *StorageConfig) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetPostgresMigrations(),
	}
}

func (s *PostgreSQLStorage) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	s.db = db
	s.logger.Info("PostgreSQL database connected")
	return nil
}

func (s *PostgreSQLStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("PostgreSQL database connection closed")
		return err
	}
	return nil
}

func (s *PostgreSQLStorage) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

func (s *PostgreSQLStorage) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create migrations table", err.Error())
	}

	for _, migration := range s.migrations {
		var exists int
		err := s.db.QueryRow("SELECT COUNT(1) FROM schema_migrations WHERE version = $1", migration.Version).Scan(&exists)
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
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				"Failed to record migration "+migration.Version, err.Error())
		}

		s.logger.WithField("version", migration.Version).Info("Applied migration")
	}

	return nil
}

func (s *PostgreSQLStorage) GetSeen(ctx context.Context, walletID, safeTxHash string) (*models.SeenTransactionRecord, error) {
	record := &models.SeenTransactionRecord{}
	err := s.db.QueryRowContext(ctx, `
		SELECT wallet_id, safe_tx_hash, first_seen, last_checked, confirmations, threshold, notified
		FROM seen_transactions WHERE wallet_id = $1 AND safe_tx_hash = $2`,
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

func (s *PostgreSQLStorage) PutSeen(ctx context.Context, record *models.SeenTransactionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_transactions (wallet_id, safe_tx_hash, first_seen, last_checked, confirmations, threshold, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (wallet_id, safe_tx_hash) DO UPDATE SET
			last_checked = EXCLUDED.last_checked,
			confirmations = EXCLUDED.confirmations,
			threshold = EXCLUDED.threshold,
			notified = EXCLUDED.notified`,
		record.WalletID, record.SafeTxHash, record.FirstSeen, record.LastChecked,
		record.Confirmations, record.Threshold, record.Notified)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to upsert seen record", err.Error())
	}
	return nil
}

func (s *PostgreSQLStorage) ListSeen(ctx context.Context, walletID string) ([]*models.SeenTransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet_id, safe_tx_hash, first_seen, last_checked, confirmations, threshold, notified
		FROM seen_transactions WHERE wallet_id = $1 ORDER BY first_seen`, walletID)
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

func (s *PostgreSQLStorage) CleanupSeen(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM seen_transactions WHERE last_checked < $1", cutoff)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to cleanup seen records", err.Error())
	}
	removed, _ := result.RowsAffected()
	return int(removed), nil
}

func (s *PostgreSQLStorage) SaveWallet(ctx context.Context, wallet *models.MonitoredWallet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, owner, chain_id, address, name, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		wallet.ID, wallet.Owner, wallet.ChainID, wallet.Address, wallet.Name,
		wallet.Enabled, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save wallet", err.Error())
	}
	return nil
}

func (s *PostgreSQLStorage) GetWallet(ctx context.Context, id string) (*models.MonitoredWallet, error) {
	wallet := &models.MonitoredWallet{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, chain_id, address, name, enabled, created_at, updated_at
		FROM wallets WHERE id = $1`, id).Scan(
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

func (s *PostgreSQLStorage) ListWallets(ctx context.Context, enabledOnly bool) ([]*models.MonitoredWallet, error) {
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

func (s *PostgreSQLStorage) UpdateWallet(ctx context.Context, wallet *models.MonitoredWallet) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE wallets SET name = $1, enabled = $2, updated_at = $3 WHERE id = $4`,
		wallet.Name, wallet.Enabled, wallet.UpdatedAt, wallet.ID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to update wallet", err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", wallet.ID)
	}
	return nil
}

func (s *PostgreSQLStorage) DeleteWallet(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM wallets WHERE id = $1", id)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to delete wallet", err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", id)
	}
	return nil
}

func (s *PostgreSQLStorage) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM wallets),
			(SELECT COUNT(*) FROM wallets WHERE enabled = TRUE),
			(SELECT COUNT(*) FROM seen_transactions),
			(SELECT COUNT(*) FROM seen_transactions WHERE notified = TRUE)`).Scan(
		&stats.TotalWallets, &stats.EnabledWallets, &stats.TotalSeen, &stats.TotalNotified)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to collect storage stats", err.Error())
	}

	var oldest sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MIN(first_seen) FROM seen_transactions").Scan(&oldest); err == nil && oldest.Valid {
		stats.OldestFirstSeen = &oldest.Time
	}

	return stats, nil
}

var _ Storage = (*PostgreSQLStorage)(nil)
