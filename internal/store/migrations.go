package store

import (
	"time"
)

// Migration represents a database migration
type Migration struct {
	ID          int       `db:"id"`
	Version     string    `db:"version"`
	Description string    `db:"description"`
	SQL         string    `db:"sql"`
	AppliedAt   time.Time `db:"applied_at"`
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create wallets table",
			SQL: `
				CREATE TABLE IF NOT EXISTS wallets (
					id TEXT PRIMARY KEY,
					owner TEXT NOT NULL DEFAULT '',
					chain_id INTEGER NOT NULL,
					address TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					enabled BOOLEAN NOT NULL DEFAULT TRUE,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_wallets_unique ON wallets(owner, chain_id, address);
				CREATE INDEX IF NOT EXISTS idx_wallets_enabled ON wallets(enabled);
			`,
		},
		{
			Version:     "002",
			Description: "Create seen_transactions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS seen_transactions (
					wallet_id TEXT NOT NULL,
					safe_tx_hash TEXT NOT NULL,
					first_seen DATETIME NOT NULL,
					last_checked DATETIME NOT NULL,
					confirmations INTEGER NOT NULL DEFAULT 0,
					threshold INTEGER NOT NULL DEFAULT 1,
					notified BOOLEAN NOT NULL DEFAULT FALSE,
					PRIMARY KEY (wallet_id, safe_tx_hash),
					FOREIGN KEY (wallet_id) REFERENCES wallets(id) ON DELETE CASCADE
				);

				CREATE INDEX IF NOT EXISTS idx_seen_notified ON seen_transactions(wallet_id, notified);
				CREATE INDEX IF NOT EXISTS idx_seen_last_checked ON seen_transactions(last_checked);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create wallets table",
			SQL: `
				CREATE TABLE IF NOT EXISTS wallets (
					id TEXT PRIMARY KEY,
					owner TEXT NOT NULL DEFAULT '',
					chain_id BIGINT NOT NULL,
					address TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					enabled BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_wallets_unique ON wallets(owner, chain_id, address);
				CREATE INDEX IF NOT EXISTS idx_wallets_enabled ON wallets(enabled);
			`,
		},
		{
			Version:     "002",
			Description: "Create seen_transactions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS seen_transactions (
					wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
					safe_tx_hash TEXT NOT NULL,
					first_seen TIMESTAMPTZ NOT NULL,
					last_checked TIMESTAMPTZ NOT NULL,
					confirmations INTEGER NOT NULL DEFAULT 0,
					threshold INTEGER NOT NULL DEFAULT 1,
					notified BOOLEAN NOT NULL DEFAULT FALSE,
					PRIMARY KEY (wallet_id, safe_tx_hash)
				);

				CREATE INDEX IF NOT EXISTS idx_seen_notified ON seen_transactions(wallet_id, notified);
				CREATE INDEX IF NOT EXISTS idx_seen_last_checked ON seen_transactions(last_checked);
			`,
		},
	}
}
