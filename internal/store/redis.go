package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// Redis key layout:
//
//	safewatch:wallets                  set of wallet ids
//	safewatch:wallet:{id}              wallet record (JSON)
//	safewatch:seen:{walletID}:{hash}   seen record (JSON)
//	safewatch:seenidx:{walletID}       set of seen tx hashes for the wallet
const redisKeyPrefix = "safewatch"

func redisWalletKey(id string) string {
	return fmt.Sprintf("%s:wallet:%s", redisKeyPrefix, id)
}

func redisWalletsKey() string {
	return fmt.Sprintf("%s:wallets", redisKeyPrefix)
}

func redisSeenKey(walletID, safeTxHash string) string {
	return fmt.Sprintf("%s:seen:%s:%s", redisKeyPrefix, walletID, safeTxHash)
}

func redisSeenIndexKey(walletID string) string {
	return fmt.Sprintf("%s:seenidx:%s", redisKeyPrefix, walletID)
}

// RedisStorage implements Storage using Redis. Durability depends on the
// Redis persistence configuration of the deployment.
type RedisStorage struct {
	conn   *redis.Client
	config *StorageConfig
	logger *logrus.Logger
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(config *StorageConfig) *RedisStorage {
	return &RedisStorage{
		config: config,
		logger: utils.GetLogger(),
	}
}

func (s *RedisStorage) Connect() error {
	opts, err := redis.ParseURL(s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Invalid Redis connection string", err.Error())
	}
	s.conn = redis.NewClient(opts)
	s.logger.WithField("addr", opts.Addr).Info("Redis storage connected")
	return nil
}

func (s *RedisStorage) Close() error {
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *RedisStorage) Ping() error {
	if s.conn == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Redis not connected", "")
	}
	return s.conn.Ping(context.Background()).Err()
}

// Migrate is a no-op for Redis; the key layout needs no schema.
func (s *RedisStorage) Migrate() error {
	return nil
}

func (s *RedisStorage) GetSeen(ctx context.Context, walletID, safeTxHash string) (*models.SeenTransactionRecord, error) {
	data, err := s.conn.Get(ctx, redisSeenKey(walletID, safeTxHash)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get seen record", err.Error())
	}

	record := &models.SeenTransactionRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to decode seen record", err.Error())
	}
	return record, nil
}

func (s *RedisStorage) PutSeen(ctx context.Context, record *models.SeenTransactionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to encode seen record", err.Error())
	}

	pipe := s.conn.TxPipeline()
	pipe.Set(ctx, redisSeenKey(record.WalletID, record.SafeTxHash), data, 0)
	pipe.SAdd(ctx, redisSeenIndexKey(record.WalletID), record.SafeTxHash)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to upsert seen record", err.Error())
	}
	return nil
}

func (s *RedisStorage) ListSeen(ctx context.Context, walletID string) ([]*models.SeenTransactionRecord, error) {
	hashes, err := s.conn.SMembers(ctx, redisSeenIndexKey(walletID)).Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list seen records", err.Error())
	}

	var records []*models.SeenTransactionRecord
	for _, hash := range hashes {
		record, err := s.GetSeen(ctx, walletID, hash)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *RedisStorage) CleanupSeen(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	removed := 0

	walletIDs, err := s.conn.SMembers(ctx, redisWalletsKey()).Result()
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list wallets for cleanup", err.Error())
	}

	for _, walletID := range walletIDs {
		records, err := s.ListSeen(ctx, walletID)
		if err != nil {
			return removed, err
		}
		for _, record := range records {
			if record.LastChecked.Before(cutoff) {
				pipe := s.conn.TxPipeline()
				pipe.Del(ctx, redisSeenKey(walletID, record.SafeTxHash))
				pipe.SRem(ctx, redisSeenIndexKey(walletID), record.SafeTxHash)
				if _, err := pipe.Exec(ctx); err != nil {
					return removed, utils.NewAppError(utils.ErrCodeDatabase, "Failed to remove expired record", err.Error())
				}
				removed++
			}
		}
	}
	return removed, nil
}

func (s *RedisStorage) SaveWallet(ctx context.Context, wallet *models.MonitoredWallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to encode wallet", err.Error())
	}

	pipe := s.conn.TxPipeline()
	pipe.Set(ctx, redisWalletKey(wallet.ID), data, 0)
	pipe.SAdd(ctx, redisWalletsKey(), wallet.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save wallet", err.Error())
	}
	return nil
}

func (s *RedisStorage) GetWallet(ctx context.Context, id string) (*models.MonitoredWallet, error) {
	data, err := s.conn.Get(ctx, redisWalletKey(id)).Bytes()
	if err == redis.Nil {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Wallet not found", id)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get wallet", err.Error())
	}

	wallet := &models.MonitoredWallet{}
	if err := json.Unmarshal(data, wallet); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to decode wallet", err.Error())
	}
	return wallet, nil
}

func (s *RedisStorage) ListWallets(ctx context.Context, enabledOnly bool) ([]*models.MonitoredWallet, error) {
	ids, err := s.conn.SMembers(ctx, redisWalletsKey()).Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list wallets", err.Error())
	}

	var wallets []*models.MonitoredWallet
	for _, id := range ids {
		wallet, err := s.GetWallet(ctx, id)
		if err != nil {
			continue // removed concurrently
		}
		if enabledOnly && !wallet.Enabled {
			continue
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}

func (s *RedisStorage) UpdateWallet(ctx context.Context, wallet *models.MonitoredWallet) error {
	if _, err := s.GetWallet(ctx, wallet.ID); err != nil {
		return err
	}
	return s.SaveWallet(ctx, wallet)
}

// DeleteWallet removes the wallet and its seen records (owned cascade).
func (s *RedisStorage) DeleteWallet(ctx context.Context, id string) error {
	if _, err := s.GetWallet(ctx, id); err != nil {
		return err
	}

	hashes, err := s.conn.SMembers(ctx, redisSeenIndexKey(id)).Result()
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to list seen records for delete", err.Error())
	}

	pipe := s.conn.TxPipeline()
	for _, hash := range hashes {
		pipe.Del(ctx, redisSeenKey(id, hash))
	}
	pipe.Del(ctx, redisSeenIndexKey(id))
	pipe.Del(ctx, redisWalletKey(id))
	pipe.SRem(ctx, redisWalletsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to delete wallet", err.Error())
	}
	return nil
}

func (s *RedisStorage) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}

	wallets, err := s.ListWallets(ctx, false)
	if err != nil {
		return nil, err
	}
	stats.TotalWallets = int64(len(wallets))

	for _, wallet := range wallets {
		if wallet.Enabled {
			stats.EnabledWallets++
		}
		records, err := s.ListSeen(ctx, wallet.ID)
		if err != nil {
			return nil, err
		}
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

var _ Storage = (*RedisStorage)(nil)
