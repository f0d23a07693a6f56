package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/metrics"
	"github.com/safewatch/safewatch/internal/scheduler"
	"github.com/safewatch/safewatch/internal/store"
	"github.com/safewatch/safewatch/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
}

// HTTPServer exposes the trigger, wallet registry, and diagnostics surfaces
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	storage        store.Storage
	scheduler      *scheduler.FleetScheduler
	metricsManager *metrics.Manager
	validate       *validator.Validate
	logger         *logrus.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	config *ServerConfig,
	storage store.Storage,
	fleetScheduler *scheduler.FleetScheduler,
	metricsManager *metrics.Manager,
) *HTTPServer {
	server := &HTTPServer{
		config:         config,
		storage:        storage,
		scheduler:      fleetScheduler,
		metricsManager: metricsManager,
		validate:       validator.New(),
		logger:         utils.GetLogger(),
	}

	server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// API routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Health check endpoint
	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
	}

	// Metrics endpoints
	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Manual trigger
	api.HandleFunc("/pass", s.runPassHandler).Methods("POST")

	// Wallet registry endpoints
	api.HandleFunc("/wallets", s.listWalletsHandler).Methods("GET")
	api.HandleFunc("/wallets", s.addWalletHandler).Methods("POST")
	api.HandleFunc("/wallets/{id}", s.getWalletHandler).Methods("GET")
	api.HandleFunc("/wallets/{id}", s.updateWalletHandler).Methods("PATCH")
	api.HandleFunc("/wallets/{id}", s.removeWalletHandler).Methods("DELETE")

	// Diagnostics
	api.HandleFunc("/wallets/{id}/seen", s.listSeenHandler).Methods("GET")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithField("error", err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Catch immediate binding errors before declaring the server started
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.metricsManager.UpdateSystemMetrics()
		s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("storage", s.storage.Ping() == nil)
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.WithFields(logrus.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"duration":  time.Since(start),
			"remote_ip": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// metricsMiddleware records request counters and latencies
func (s *HTTPServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		prom := s.metricsManager.GetPrometheusMetrics()
		prom.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", recorder.status)).Inc()
		prom.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithField("error", err).Error("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.writeJSON(w, status, response)
}
