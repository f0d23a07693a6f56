package store

import (
	"strings"
	"time"

	"github.com/safewatch/safewatch/internal/config"
	"github.com/safewatch/safewatch/pkg/utils"
)

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	storageConfig := &StorageConfig{
		Type:             cfg.Type,
		ConnectionString: cfg.ConnectionString,
		MaxConnections:   cfg.MaxConnections,
		MaxIdleTime:      cfg.MaxIdleTime,
		RetentionDays:    cfg.RetentionDays,
	}
	if storageConfig.MaxConnections <= 0 {
		storageConfig.MaxConnections = 25
	}
	if storageConfig.MaxIdleTime <= 0 {
		storageConfig.MaxIdleTime = 15 * time.Minute
	}

	switch strings.ToLower(cfg.Type) {
	case "sqlite":
		return NewSQLiteStorage(storageConfig), nil
	case "postgres", "postgresql":
		return NewPostgreSQLStorage(storageConfig), nil
	case "redis":
		return NewRedisStorage(storageConfig), nil
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported storage type", cfg.Type)
	}
}
