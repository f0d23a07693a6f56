package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "safewatch", cfg.App.Name)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 30, cfg.Storage.RetentionDays)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.PollInterval)
	assert.Equal(t, 5, cfg.Scheduler.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.WalletTimeout)
	assert.Equal(t, "log", cfg.Notifications.Channel)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Server.EnableMetrics)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
app:
  environment: production
storage:
  type: memory
scheduler:
  poll_interval: 90s
  concurrency: 10
notifications:
  channel: webhook
  webhook_url: https://hooks.example.com/safe
safe:
  service_urls:
    31337: http://localhost:8000
`), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.PollInterval)
	assert.Equal(t, 10, cfg.Scheduler.Concurrency)
	assert.Equal(t, "webhook", cfg.Notifications.Channel)
	assert.Equal(t, "http://localhost:8000", cfg.Safe.ServiceURLs[31337])

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://safewatch:pw@localhost/safewatch")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "env-chat")
	t.Setenv("SAFE_API_KEY", "env-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://safewatch:pw@localhost/safewatch", cfg.Storage.ConnectionString)
	assert.Equal(t, "env-token", cfg.Notifications.TelegramBotToken)
	assert.Equal(t, "env-chat", cfg.Notifications.TelegramChatID)
	assert.Equal(t, "env-key", cfg.Safe.APIKey)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Storage.ConnectionString = ""
	assert.Error(t, cfg.Validate(), "non-memory storage requires a connection string")

	cfg = base()
	cfg.Scheduler.PollInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scheduler.Concurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Notifications.Channel = "telegram"
	assert.Error(t, cfg.Validate(), "telegram requires credentials")

	cfg = base()
	cfg.Notifications.Channel = "kafka"
	assert.Error(t, cfg.Validate(), "kafka requires brokers")

	cfg = base()
	cfg.Notifications.Channel = "pigeon"
	assert.Error(t, cfg.Validate())
}
