package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// addWalletRequest is the payload for registering a wallet
type addWalletRequest struct {
	Owner   string `json:"owner" validate:"required,max=128"`
	ChainID int64  `json:"chain_id" validate:"required,gt=0"`
	Address string `json:"address" validate:"required"`
	Name    string `json:"name" validate:"max=128"`
	Enabled *bool  `json:"enabled"`
}

// updateWalletRequest carries the mutable wallet fields
type updateWalletRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=128"`
	Enabled *bool   `json:"enabled"`
}

// healthHandler handles health check requests
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if err := s.storage.Ping(); err != nil {
		health["status"] = "degraded"
		health["storage_error"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, health)
}

// statsHandler returns storage and fleet statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.GetStorageStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to get storage stats", err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// runPassHandler triggers a reconciliation pass over the whole fleet
func (s *HTTPServer) runPassHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.scheduler.RunPass(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Reconciliation pass failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// listWalletsHandler returns all registered wallets
func (s *HTTPServer) listWalletsHandler(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	wallets, err := s.storage.ListWallets(r.Context(), enabledOnly)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list wallets", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallets": wallets,
		"count":   len(wallets),
	})
}

// addWalletHandler registers a wallet for monitoring
func (s *HTTPServer) addWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req addWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	if !utils.IsValidAddress(req.Address) {
		s.writeError(w, http.StatusBadRequest, "Invalid wallet address", nil)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now().UTC()
	wallet := &models.MonitoredWallet{
		ID:        uuid.NewString(),
		Owner:     req.Owner,
		ChainID:   req.ChainID,
		Address:   utils.NormalizeAddress(req.Address),
		Name:      req.Name,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.SaveWallet(r.Context(), wallet); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to save wallet", err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": wallet.ID,
		"chain_id":  wallet.ChainID,
		"address":   wallet.Address,
	}).Info("Wallet registered")

	s.writeJSON(w, http.StatusCreated, wallet)
}

// getWalletHandler returns a single wallet by ID
func (s *HTTPServer) getWalletHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	wallet, err := s.storage.GetWallet(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Wallet not found", err)
		return
	}

	s.writeJSON(w, http.StatusOK, wallet)
}

// updateWalletHandler updates a wallet's name or enabled flag
func (s *HTTPServer) updateWalletHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	wallet, err := s.storage.GetWallet(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Wallet not found", err)
		return
	}

	var req updateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	if req.Name != nil {
		wallet.Name = *req.Name
	}
	if req.Enabled != nil {
		wallet.Enabled = *req.Enabled
	}
	wallet.UpdatedAt = time.Now().UTC()

	if err := s.storage.UpdateWallet(r.Context(), wallet); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to update wallet", err)
		return
	}

	s.writeJSON(w, http.StatusOK, wallet)
}

// removeWalletHandler deletes a wallet and its seen-transaction records
func (s *HTTPServer) removeWalletHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := s.storage.GetWallet(r.Context(), id); err != nil {
		s.writeError(w, http.StatusNotFound, "Wallet not found", err)
		return
	}

	if err := s.storage.DeleteWallet(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to delete wallet", err)
		return
	}

	s.logger.WithField("wallet_id", id).Info("Wallet removed")

	w.WriteHeader(http.StatusNoContent)
}

// listSeenHandler returns the seen-transaction records for a wallet
func (s *HTTPServer) listSeenHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := s.storage.GetWallet(r.Context(), id); err != nil {
		s.writeError(w, http.StatusNotFound, "Wallet not found", err)
		return
	}

	records, err := s.storage.ListSeen(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list seen transactions", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallet_id": id,
		"records":   records,
		"count":     len(records),
	})
}
