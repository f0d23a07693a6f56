package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *GatewayClient {
	return NewGatewayClient(&GatewayConfig{
		ServiceURLs:   map[int64]string{1: baseURL},
		RetryAttempts: 0,
		PageSize:      2,
		MaxPages:      5,
	})
}

func TestFetchPendingDrainsPaginationAndSorts(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") == "2" {
			fmt.Fprint(w, `{"count": 3, "next": null, "results": [
				{"safeTxHash": "0xaaa", "to": "0xdead", "value": "0", "nonce": 7, "isExecuted": false}
			]}`)
			return
		}
		fmt.Fprintf(w, `{"count": 3, "next": "%s/api/v1/safes/x/multisig-transactions/?offset=2", "results": [
			{"safeTxHash": "0xccc", "to": "0xdead", "value": "0", "nonce": 9, "isExecuted": false},
			{"safeTxHash": "0xbbb", "to": "0xdead", "value": "0", "nonce": 7, "isExecuted": false}
		]}`, server.URL)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	pending, err := client.FetchPending(context.Background(), 1, "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)
	require.Len(t, pending, 3)

	// Ascending by nonce, ties broken by hash.
	assert.Equal(t, "0xaaa", pending[0].SafeTxHash)
	assert.Equal(t, "0xbbb", pending[1].SafeTxHash)
	assert.Equal(t, "0xccc", pending[2].SafeTxHash)
}

func TestFetchPendingDropsExecutedAndMalformedEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"count": 3, "next": null, "results": [
			{"safeTxHash": "0xaaa", "to": "0xdead", "value": "0", "nonce": 1, "isExecuted": false},
			{"safeTxHash": "0xbbb", "to": "0xdead", "value": "0", "nonce": 2, "isExecuted": true},
			{"to": "0xdead", "value": "0", "nonce": 3, "isExecuted": false}
		]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	pending, err := client.FetchPending(context.Background(), 1, "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "0xaaa", pending[0].SafeTxHash)
}

func TestFetchPendingClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
		code     string
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized, "unauthorized"},
		{"forbidden", http.StatusForbidden, ErrUnauthorized, "unauthorized"},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited, "rate_limited"},
		{"server error", http.StatusBadGateway, ErrUnreachable, "unreachable"},
		{"unexpected status", http.StatusNotFound, ErrMalformed, "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			_, err := client.FetchPending(context.Background(), 1, "0x1234567890abcdef1234567890abcdef12345678")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.Equal(t, tt.code, ErrorCode(err))
		})
	}
}

func TestFetchPendingRejectsInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": not json`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchPending(context.Background(), 1, "0x1234567890abcdef1234567890abcdef12345678")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestFetchPendingBoundsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always advertise another page.
		fmt.Fprintf(w, `{"count": 100, "next": "%s/api/v1/next", "results": []}`, server.URL)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchPending(context.Background(), 1, "0x1234567890abcdef1234567890abcdef12345678")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestFetchPendingSendsAPIKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"count": 0, "next": null, "results": []}`)
	}))
	defer server.Close()

	client := NewGatewayClient(&GatewayConfig{
		ServiceURLs: map[int64]string{1: server.URL},
		APIKey:      "secret-key",
	})

	_, err := client.FetchPending(context.Background(), 1, "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestServiceURLResolution(t *testing.T) {
	client := NewGatewayClient(&GatewayConfig{
		ServiceURLs: map[int64]string{31337: "http://localhost:9090"},
	})

	base, err := client.ServiceURL(31337)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", base)

	// Known public chains fall back to the built-in service map.
	base, err = client.ServiceURL(1)
	require.NoError(t, err)
	assert.Equal(t, "https://safe-transaction-mainnet.safe.global", base)

	_, err = client.ServiceURL(424242)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreachable))
}
