package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewatch/safewatch/internal/engine"
	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/internal/scheduler"
	"github.com/safewatch/safewatch/internal/store"
)

type stubSource struct {
	pending map[string][]models.PendingTransaction
}

func (s *stubSource) FetchPending(ctx context.Context, chainID int64, address string) ([]models.PendingTransaction, error) {
	return s.pending[address], nil
}

type stubSink struct{ count int }

func (s *stubSink) Name() string { return "stub" }
func (s *stubSink) Notify(ctx context.Context, event *models.NotificationEvent) error {
	s.count++
	return nil
}

func newTestServer(t *testing.T, src *stubSource) (*HTTPServer, store.Storage) {
	t.Helper()

	storage := store.NewMemoryStorage()
	if src == nil {
		src = &stubSource{}
	}
	eng := engine.NewEngine(src, storage, &stubSink{}, nil)
	sched := scheduler.NewFleetScheduler(eng, storage, &scheduler.SchedulerConfig{
		Concurrency:   2,
		WalletTimeout: 5 * time.Second,
	}, nil)

	server := NewHTTPServer(&ServerConfig{
		Port:          0,
		Host:          "127.0.0.1",
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		EnableMetrics: true,
		EnableHealth:  true,
	}, storage, sched, nil)

	return server, storage
}

func doRequest(server *HTTPServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := doRequest(server, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestWalletRegistrationAndListing(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := doRequest(server, http.MethodPost, "/api/v1/wallets", map[string]interface{}{
		"owner":    "ops",
		"chain_id": 1,
		"address":  "0x5AFE3855358E112B5647B952709E6165e1c1eEEe",
		"name":     "Treasury",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created models.MonitoredWallet
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "0x5afe3855358e112b5647b952709e6165e1c1eeee", created.Address, "addresses are stored lowercased")
	assert.True(t, created.Enabled)

	resp = doRequest(server, http.MethodGet, "/api/v1/wallets", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var listing struct {
		Wallets []models.MonitoredWallet `json:"wallets"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Count)
}

func TestWalletRegistrationValidation(t *testing.T) {
	server, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing owner",
			body: map[string]interface{}{"chain_id": 1, "address": "0x5afe3855358e112b5647b952709e6165e1c1eeee"},
		},
		{
			name: "missing chain id",
			body: map[string]interface{}{"owner": "ops", "address": "0x5afe3855358e112b5647b952709e6165e1c1eeee"},
		},
		{
			name: "invalid address",
			body: map[string]interface{}{"owner": "ops", "chain_id": 1, "address": "not-an-address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(server, http.MethodPost, "/api/v1/wallets", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestWalletUpdateAndDelete(t *testing.T) {
	server, storage := newTestServer(t, nil)
	ctx := context.Background()

	wallet := &models.MonitoredWallet{
		ID:      "w1",
		Owner:   "ops",
		ChainID: 1,
		Address: "0x5afe3855358e112b5647b952709e6165e1c1eeee",
		Enabled: true,
	}
	require.NoError(t, storage.SaveWallet(ctx, wallet))

	enabled := false
	resp := doRequest(server, http.MethodPatch, "/api/v1/wallets/w1", map[string]interface{}{
		"name":    "Renamed",
		"enabled": enabled,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	got, err := storage.GetWallet(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.Enabled)

	resp = doRequest(server, http.MethodDelete, "/api/v1/wallets/w1", nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = doRequest(server, http.MethodDelete, "/api/v1/wallets/w1", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestManualPassTrigger(t *testing.T) {
	src := &stubSource{pending: map[string][]models.PendingTransaction{
		"0x5afe3855358e112b5647b952709e6165e1c1eeee": {
			{SafeTxHash: "0xaaa", Nonce: 1, Threshold: 2, Value: "0"},
		},
	}}
	server, storage := newTestServer(t, src)

	require.NoError(t, storage.SaveWallet(context.Background(), &models.MonitoredWallet{
		ID:      "w1",
		Owner:   "ops",
		ChainID: 1,
		Address: "0x5afe3855358e112b5647b952709e6165e1c1eeee",
		Enabled: true,
	}))

	resp := doRequest(server, http.MethodPost, "/api/v1/pass", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result models.PassResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.NotEmpty(t, result.PassID)
	assert.Equal(t, 1, result.WalletsChecked)
	assert.Equal(t, 1, result.NewTransactions)
	assert.Equal(t, 1, result.NotificationsSent)
}

func TestSeenDiagnosticsEndpoint(t *testing.T) {
	server, storage := newTestServer(t, nil)
	ctx := context.Background()

	require.NoError(t, storage.SaveWallet(ctx, &models.MonitoredWallet{
		ID: "w1", Owner: "ops", ChainID: 1,
		Address: "0x5afe3855358e112b5647b952709e6165e1c1eeee", Enabled: true,
	}))
	now := time.Now().UTC()
	require.NoError(t, storage.PutSeen(ctx, &models.SeenTransactionRecord{
		WalletID: "w1", SafeTxHash: "0xaaa", FirstSeen: now, LastChecked: now, Notified: true,
	}))

	resp := doRequest(server, http.MethodGet, "/api/v1/wallets/w1/seen", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var listing struct {
		WalletID string                          `json:"wallet_id"`
		Records  []*models.SeenTransactionRecord `json:"records"`
		Count    int                             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listing))
	assert.Equal(t, "w1", listing.WalletID)
	require.Equal(t, 1, listing.Count)
	assert.True(t, listing.Records[0].Notified)

	resp = doRequest(server, http.MethodGet, "/api/v1/wallets/missing/seen", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestStatsEndpoint(t *testing.T) {
	server, storage := newTestServer(t, nil)

	require.NoError(t, storage.SaveWallet(context.Background(), &models.MonitoredWallet{
		ID: "w1", Owner: "ops", ChainID: 1,
		Address: "0x5afe3855358e112b5647b952709e6165e1c1eeee", Enabled: true,
	}))

	resp := doRequest(server, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var stats store.StorageStats
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalWallets)
}

func TestUnknownWalletReturns404(t *testing.T) {
	server, _ := newTestServer(t, nil)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/wallets/missing"},
		{http.MethodPatch, "/api/v1/wallets/missing"},
		{http.MethodDelete, "/api/v1/wallets/missing"},
	} {
		resp := doRequest(server, req.method, req.path, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code, "%s %s", req.method, req.path)
	}
}
