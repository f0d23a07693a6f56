package store

import (
	"context"
	"sync"
	"time"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// MemoryStorage implements Storage with process-local maps. It is not
// durable and is intended for local runs and tests only.
type MemoryStorage struct {
	mu      sync.RWMutex
	wallets map[string]*models.MonitoredWallet
	seen    map[string]map[string]*models.SeenTransactionRecord // walletID -> txHash -> record
}

// NewMemoryStorage creates a new in-memory storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		wallets: make(map[string]*models.MonitoredWallet),
		seen:    make(map[string]map[string]*models.SeenTransactionRecord),
	}
}

func (s *MemoryStorage) Connect() error { return nil }
func (s *MemoryStorage) Close() error   { return nil }
func (s *MemoryStorage) Ping() error    { return nil }
func (s *MemoryStorage) Migrate() error { return nil }

func (s *MemoryStorage) GetSeen(ctx context.Context, walletID, safeTxHash string) (*models.SeenTransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.seen[walletID][safeTxHash]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryStorage) PutSeen(ctx context.Context, record *models.SeenTransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[record.WalletID] == nil {
		s.seen[record.WalletID] = make(map[string]*models.SeenTransactionRecord)
	}
	clone := *record
	s.seen[record.WalletID][record.SafeTxHash] = &clone
	return nil
}

func (s *MemoryStorage) ListSeen(ctx context.Context, walletID string) ([]*models.SeenTransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.SeenTransactionRecord
	for _, record := range s.seen[walletID] {
		clone := *record
		records = append(records, &clone)
	}
	return records, nil
}

func (s *MemoryStorage) CleanupSeen(ctx context.Context, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	removed := 0
	for walletID, records := range s.seen {
		for hash, record := range records {
			if record.LastChecked.Before(cutoff) {
				delete(s.seen[walletID], hash)
				removed++
			}
		}
	}
	return removed, nil
}

func (s *MemoryStorage) SaveWallet(ctx context.Context, wallet *models.MonitoredWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *wallet
	s.wallets[wallet.ID] = &clone
	return nil
}

func (s *MemoryStorage) GetWallet(ctx context.Context, id string) (*models.MonitoredWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet, ok := s.wallets[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", id)
	}
	clone := *wallet
	return &clone, nil
}

func (s *MemoryStorage) ListWallets(ctx context.Context, enabledOnly bool) ([]*models.MonitoredWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var wallets []*models.MonitoredWallet
	for _, wallet := range s.wallets {
		if enabledOnly && !wallet.Enabled {
			continue
		}
		clone := *wallet
		wallets = append(wallets, &clone)
	}
	return wallets, nil
}

func (s *MemoryStorage) UpdateWallet(ctx context.Context, wallet *models.MonitoredWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[wallet.ID]; !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", wallet.ID)
	}
	clone := *wallet
	s.wallets[wallet.ID] = &clone
	return nil
}

func (s *MemoryStorage) DeleteWallet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[id]; !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", id)
	}
	delete(s.wallets, id)
	delete(s.seen, id) // owned cascade
	return nil
}

func (s *MemoryStorage) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &StorageStats{TotalWallets: int64(len(s.wallets))}
	for _, wallet := range s.wallets {
		if wallet.Enabled {
			stats.EnabledWallets++
		}
	}
	for _, records := range s.seen {
		stats.TotalSeen += int64(len(records))
		for _, record := range records {
			if record.Notified {
				stats.TotalNotified++
			}
			if stats.OldestFirstSeen == nil || record.FirstSeen.Before(*stats.OldestFirstSeen) {
				first := record.FirstSeen
				stats.OldestFirstSeen = &first
			}
		}
	}
	return stats, nil
}

var _ Storage = (*MemoryStorage)(nil)
