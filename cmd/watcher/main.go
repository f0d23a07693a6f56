package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/avast/retry-go/v4"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/safewatch/safewatch/internal/config"
	"github.com/safewatch/safewatch/internal/engine"
	"github.com/safewatch/safewatch/internal/metrics"
	"github.com/safewatch/safewatch/internal/notify"
	"github.com/safewatch/safewatch/internal/scheduler"
	"github.com/safewatch/safewatch/internal/server"
	"github.com/safewatch/safewatch/internal/source"
	"github.com/safewatch/safewatch/internal/store"
	"github.com/safewatch/safewatch/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application represents the main application
type Application struct {
	config    *config.Config
	logger    *logrus.Logger
	storage   store.Storage
	source    *source.GatewayClient
	sink      notify.Sink
	engine    *engine.Engine
	scheduler *scheduler.FleetScheduler
	trigger   *scheduler.CronTrigger
	metrics   *metrics.Manager
	server    *server.HTTPServer
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	app.metrics = metrics.NewManager()

	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initializeSource(); err != nil {
		return fmt.Errorf("failed to initialize transaction source: %w", err)
	}

	if err := app.initializeNotifications(); err != nil {
		return fmt.Errorf("failed to initialize notifications: %w", err)
	}

	if err := app.initializeScheduler(); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeStorage initializes the storage layer, retrying the initial
// connection so the watcher survives a database that is still coming up.
func (app *Application) initializeStorage() error {
	app.logger.Info("Initializing storage layer")

	storage, err := store.NewStorage(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	app.storage = storage

	err = retry.Do(
		func() error {
			if err := app.storage.Connect(); err != nil {
				return err
			}
			return app.storage.Ping()
		},
		retry.Attempts(5),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			app.logger.WithFields(logrus.Fields{
				"attempt": n + 1,
				"error":   err,
			}).Warn("Storage connection failed, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	if err := app.storage.Migrate(); err != nil {
		return fmt.Errorf("failed to run storage migrations: %w", err)
	}

	app.logger.WithField("type", app.config.Storage.Type).Info("Storage layer initialized successfully")
	return nil
}

// initializeSource initializes the Safe Transaction Service client
func (app *Application) initializeSource() error {
	app.logger.Info("Initializing transaction source")

	app.source = source.NewGatewayClient(&source.GatewayConfig{
		ServiceURLs:    app.config.Safe.ServiceURLs,
		APIKey:         app.config.Safe.APIKey,
		RequestTimeout: app.config.Safe.RequestTimeout,
		RetryAttempts:  app.config.Safe.RetryAttempts,
		RetryDelay:     app.config.Safe.RetryDelay,
		PageSize:       app.config.Safe.PageSize,
		MaxPages:       app.config.Safe.MaxPages,
	})

	app.logger.Info("Transaction source initialized successfully")
	return nil
}

// initializeNotifications initializes the notification sink
func (app *Application) initializeNotifications() error {
	app.logger.WithField("channel", app.config.Notifications.Channel).Info("Initializing notification sink")

	sink, err := notify.NewSink(&app.config.Notifications)
	if err != nil {
		return fmt.Errorf("failed to create notification sink: %w", err)
	}
	app.sink = sink

	app.logger.Info("Notification sink initialized successfully")
	return nil
}

// initializeScheduler initializes the reconciliation engine and fleet scheduler
func (app *Application) initializeScheduler() error {
	app.logger.Info("Initializing fleet scheduler")

	app.engine = engine.NewEngine(app.source, app.storage, app.sink, app.metrics)

	app.scheduler = scheduler.NewFleetScheduler(app.engine, app.storage, &scheduler.SchedulerConfig{
		PollInterval:    app.config.Scheduler.PollInterval,
		Concurrency:     app.config.Scheduler.Concurrency,
		WalletTimeout:   app.config.Scheduler.WalletTimeout,
		CleanupInterval: app.config.Scheduler.CleanupInterval,
		RetentionDays:   app.config.Storage.RetentionDays,
	}, app.metrics)

	app.trigger = scheduler.NewCronTrigger(app.scheduler)

	app.logger.Info("Fleet scheduler initialized successfully")
	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	app.logger.Info("Initializing HTTP server")

	app.server = server.NewHTTPServer(&server.ServerConfig{
		Port:          app.config.Server.Port,
		Host:          app.config.Server.Host,
		ReadTimeout:   app.config.Server.ReadTimeout,
		WriteTimeout:  app.config.Server.WriteTimeout,
		EnableMetrics: app.config.Server.EnableMetrics,
		EnableHealth:  app.config.Server.EnableHealth,
	}, app.storage, app.scheduler, app.metrics)

	app.logger.Info("HTTP server initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting Safe watcher")

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := app.trigger.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start cron trigger: %w", err)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"poll_interval":  app.config.Scheduler.PollInterval,
		"channel":        app.config.Notifications.Channel,
	}).Info("Safe watcher started successfully")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping Safe watcher")

	app.cancel()

	if app.trigger != nil {
		app.trigger.Stop()
	}

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithField("error", err).Error("Failed to stop HTTP server")
		}
	}

	if closer, ok := app.sink.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.WithField("error", err).Error("Failed to close notification sink")
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.WithField("error", err).Error("Failed to close storage")
		}
	}

	app.logger.Info("Safe watcher stopped successfully")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "safewatch",
	Short:   "Safe multisig pending transaction watcher",
	Long:    `A monitoring service that polls Safe multisig wallets for pending transactions and delivers de-duplicated notifications when new ones appear.`,
	Version: AppVersion,
	RunE:    runWatcher,
}

// runWatcher is the main command to run the watcher
func runWatcher(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return nil
}

// passCmd runs a single fleet pass and prints the result
var passCmd = &cobra.Command{
	Use:   "pass",
	Short: "Run a single reconciliation pass over all enabled wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := NewApplication(cfg)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		defer app.Stop()

		result, err := app.scheduler.RunPass(app.ctx)
		if err != nil {
			return fmt.Errorf("reconciliation pass failed: %w", err)
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode pass result: %w", err)
		}
		fmt.Println(string(out))

		return nil
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("safewatch %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Storage: %s\n", cfg.Storage.Type)
		fmt.Printf("Channel: %s\n", cfg.Notifications.Channel)
		fmt.Printf("Poll interval: %s\n", cfg.Scheduler.PollInterval)

		return nil
	},
}

// loadConfig loads .env overrides and the configuration file
func loadConfig() (*config.Config, error) {
	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(passCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
