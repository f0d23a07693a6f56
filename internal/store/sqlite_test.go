package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewatch/safewatch/internal/models"
)

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()

	s := NewSQLiteStorage(&StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "safewatch_test.db"),
		MaxConnections:   4,
		MaxIdleTime:      time.Minute,
	})
	require.NoError(t, s.Connect(), "Failed to connect to test database")
	require.NoError(t, s.Migrate(), "Failed to migrate test database")
	require.NoError(t, s.Ping())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(), "re-running migrations must be a no-op")
}

func TestSQLiteSeenRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "w1")

	got, err := s.GetSeen(ctx, wallet.ID, "0xaaa")
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Now().UTC().Truncate(time.Second)
	record := &models.SeenTransactionRecord{
		WalletID:      wallet.ID,
		SafeTxHash:    "0xaaa",
		FirstSeen:     now,
		LastChecked:   now,
		Confirmations: 1,
		Threshold:     2,
	}
	require.NoError(t, s.PutSeen(ctx, record))

	got, err = s.GetSeen(ctx, wallet.ID, "0xaaa")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.SafeTxHash, got.SafeTxHash)
	assert.Equal(t, 1, got.Confirmations)
	assert.False(t, got.Notified)
	assert.True(t, got.FirstSeen.Equal(now))

	// Upsert keeps first_seen and updates the rest.
	record.Notified = true
	record.Confirmations = 2
	record.LastChecked = now.Add(time.Minute)
	record.FirstSeen = now.Add(time.Hour) // must be ignored by the upsert
	require.NoError(t, s.PutSeen(ctx, record))

	got, err = s.GetSeen(ctx, wallet.ID, "0xaaa")
	require.NoError(t, err)
	assert.True(t, got.Notified)
	assert.Equal(t, 2, got.Confirmations)
	assert.True(t, got.FirstSeen.Equal(now), "upsert must not rewrite first_seen")

	records, err := s.ListSeen(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteDeleteWalletCascades(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "w1")

	now := time.Now().UTC()
	require.NoError(t, s.PutSeen(ctx, &models.SeenTransactionRecord{
		WalletID: wallet.ID, SafeTxHash: "0xaaa", FirstSeen: now, LastChecked: now,
	}))

	require.NoError(t, s.DeleteWallet(ctx, wallet.ID))

	records, err := s.ListSeen(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Empty(t, records, "seen records must cascade with the wallet")
}

func TestSQLiteCleanupSeen(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "w1")

	now := time.Now().UTC()
	require.NoError(t, s.PutSeen(ctx, &models.SeenTransactionRecord{
		WalletID: wallet.ID, SafeTxHash: "0xold",
		FirstSeen: now.Add(-72 * time.Hour), LastChecked: now.Add(-72 * time.Hour),
	}))
	require.NoError(t, s.PutSeen(ctx, &models.SeenTransactionRecord{
		WalletID: wallet.ID, SafeTxHash: "0xfresh", FirstSeen: now, LastChecked: now,
	}))

	removed, err := s.CleanupSeen(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := s.ListSeen(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xfresh", records[0].SafeTxHash)
}

func TestSQLiteWalletLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "w1")

	wallet.Name = "Renamed"
	wallet.Enabled = false
	wallet.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.UpdateWallet(ctx, wallet))

	got, err := s.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.Enabled)

	enabled, err := s.ListWallets(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	err = s.UpdateWallet(ctx, &models.MonitoredWallet{ID: "missing"})
	assert.Error(t, err)
}

func TestSQLiteStorageStats(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "w1")

	now := time.Now().UTC()
	require.NoError(t, s.PutSeen(ctx, &models.SeenTransactionRecord{
		WalletID: wallet.ID, SafeTxHash: "0xaaa", FirstSeen: now, LastChecked: now, Notified: true,
	}))

	stats, err := s.GetStorageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalWallets)
	assert.Equal(t, int64(1), stats.EnabledWallets)
	assert.Equal(t, int64(1), stats.TotalSeen)
	assert.Equal(t, int64(1), stats.TotalNotified)
}
