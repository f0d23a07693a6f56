package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Safe          SafeConfig         `mapstructure:"safe"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Scheduler     SchedulerConfig    `mapstructure:"scheduler"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Server        ServerConfig       `mapstructure:"server"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// SafeConfig contains Safe Transaction Service connection configuration
type SafeConfig struct {
	ServiceURLs    map[int64]string `mapstructure:"service_urls"` // chain id -> base URL override
	APIKey         string           `mapstructure:"api_key"`
	RequestTimeout time.Duration    `mapstructure:"request_timeout"`
	RetryAttempts  int              `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration    `mapstructure:"retry_delay"`
	PageSize       int              `mapstructure:"page_size"`
	MaxPages       int              `mapstructure:"max_pages"`
}

// StorageConfig contains persistence configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres, redis, memory
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
	RetentionDays    int           `mapstructure:"retention_days"`
}

// SchedulerConfig contains fleet scheduler configuration
type SchedulerConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Concurrency     int           `mapstructure:"concurrency"`
	WalletTimeout   time.Duration `mapstructure:"wallet_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// NotificationConfig contains notification sink configuration
type NotificationConfig struct {
	Channel          string        `mapstructure:"channel"` // log, telegram, webhook, kafka
	Timeout          time.Duration `mapstructure:"timeout"`
	TelegramBotToken string        `mapstructure:"telegram_bot_token"`
	TelegramChatID   string        `mapstructure:"telegram_chat_id"`
	WebhookURL       string        `mapstructure:"webhook_url"`
	KafkaBrokers     []string      `mapstructure:"kafka_brokers"`
	KafkaTopic       string        `mapstructure:"kafka_topic"`
	SigningBaseURL   string        `mapstructure:"signing_base_url"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Loading starts from a clean slate so repeated loads (config reloads,
	// tests) never inherit a previously set config file.
	viper.Reset()
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("SAFEWATCH")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		config.Notifications.TelegramBotToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		config.Notifications.TelegramChatID = chatID
	}
	if apiKey := os.Getenv("SAFE_API_KEY"); apiKey != "" {
		config.Safe.APIKey = apiKey
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "safewatch")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Safe Transaction Service defaults
	viper.SetDefault("safe.request_timeout", "30s")
	viper.SetDefault("safe.retry_attempts", 3)
	viper.SetDefault("safe.retry_delay", "2s")
	viper.SetDefault("safe.page_size", 100)
	viper.SetDefault("safe.max_pages", 20)

	// Storage defaults
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.connection_string", "./data/safewatch.db")
	viper.SetDefault("storage.max_connections", 25)
	viper.SetDefault("storage.max_idle_time", "15m")
	viper.SetDefault("storage.retention_days", 30)

	// Scheduler defaults
	viper.SetDefault("scheduler.poll_interval", "5m")
	viper.SetDefault("scheduler.concurrency", 5)
	viper.SetDefault("scheduler.wallet_timeout", "45s")
	viper.SetDefault("scheduler.cleanup_interval", "24h")

	// Notification defaults
	viper.SetDefault("notifications.channel", "log")
	viper.SetDefault("notifications.timeout", "15s")
	viper.SetDefault("notifications.kafka_topic", "safewatch.notifications")
	viper.SetDefault("notifications.signing_base_url", "https://app.safe.global")

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.ConnectionString == "" && c.Storage.Type != "memory" {
		return fmt.Errorf("storage connection string is required")
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("scheduler poll interval must be positive")
	}
	if c.Scheduler.Concurrency <= 0 {
		return fmt.Errorf("scheduler concurrency must be positive")
	}
	switch c.Notifications.Channel {
	case "log":
	case "telegram":
		if c.Notifications.TelegramBotToken == "" || c.Notifications.TelegramChatID == "" {
			return fmt.Errorf("telegram channel requires bot token and chat id")
		}
	case "webhook":
		if c.Notifications.WebhookURL == "" {
			return fmt.Errorf("webhook channel requires a URL")
		}
	case "kafka":
		if len(c.Notifications.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka channel requires at least one broker")
		}
	default:
		return fmt.Errorf("unsupported notification channel: %s", c.Notifications.Channel)
	}
	return nil
}
