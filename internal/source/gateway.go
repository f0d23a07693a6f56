package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// defaultServiceURLs maps chain ids to their public Safe Transaction
// Service instances. Config may override or extend these.
var defaultServiceURLs = map[int64]string{
	1:        "https://safe-transaction-mainnet.safe.global",
	10:       "https://safe-transaction-optimism.safe.global",
	100:      "https://safe-transaction-gnosis-chain.safe.global",
	137:      "https://safe-transaction-polygon.safe.global",
	8453:     "https://safe-transaction-base.safe.global",
	42161:    "https://safe-transaction-arbitrum.safe.global",
	11155111: "https://safe-transaction-sepolia.safe.global",
}

// GatewayConfig holds Safe Transaction Service client configuration
type GatewayConfig struct {
	ServiceURLs    map[int64]string `json:"service_urls"`
	APIKey         string           `json:"api_key"`
	RequestTimeout time.Duration    `json:"request_timeout"`
	RetryAttempts  int              `json:"retry_attempts"`
	RetryDelay     time.Duration    `json:"retry_delay"`
	PageSize       int              `json:"page_size"`
	MaxPages       int              `json:"max_pages"`
}

// GatewayClient implements Source against the Safe Transaction Service
// REST API, draining pagination before returning.
type GatewayClient struct {
	config *GatewayConfig
	client *retryablehttp.Client
	logger *logrus.Entry
}

// NewGatewayClient creates a new Safe Transaction Service client
func NewGatewayClient(config *GatewayConfig) *GatewayClient {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 20
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = config.RetryAttempts
	client.RetryWaitMin = config.RetryDelay
	client.RetryWaitMax = 30 * time.Second
	client.HTTPClient.Timeout = config.RequestTimeout
	client.Logger = nil
	// Surface the last response once retries are exhausted so status
	// codes can still be classified into the error taxonomy.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &GatewayClient{
		config: config,
		client: client,
		logger: utils.GetLogger().WithField("component", "safe_gateway"),
	}
}

// ServiceURL resolves the transaction service base URL for a chain.
func (g *GatewayClient) ServiceURL(chainID int64) (string, error) {
	if base, ok := g.config.ServiceURLs[chainID]; ok && base != "" {
		return base, nil
	}
	if base, ok := defaultServiceURLs[chainID]; ok {
		return base, nil
	}
	return "", fmt.Errorf("%w: no transaction service for chain %d", ErrUnreachable, chainID)
}

// FetchPending returns all currently pending multisig transactions for the
// wallet, normalized and ordered ascending by (nonce, safe tx hash).
func (g *GatewayClient) FetchPending(ctx context.Context, chainID int64, address string) ([]models.PendingTransaction, error) {
	base, err := g.ServiceURL(chainID)
	if err != nil {
		return nil, err
	}

	checksummed := utils.ChecksumAddress(address)
	next := fmt.Sprintf("%s/api/v1/safes/%s/multisig-transactions/?executed=false&limit=%d",
		base, checksummed, g.config.PageSize)

	var (
		pending   []models.PendingTransaction
		malformed int
	)

	for page := 0; next != ""; page++ {
		if page >= g.config.MaxPages {
			return nil, fmt.Errorf("%w: pagination exceeded %d pages", ErrMalformed, g.config.MaxPages)
		}

		body, err := g.getPage(ctx, next)
		if err != nil {
			return nil, err
		}

		var resp multisigTransactionsPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, err.Error())
		}

		for _, raw := range resp.Results {
			tx, ok := normalizeTransaction(raw)
			if !ok {
				malformed++
				continue
			}
			pending = append(pending, tx)
		}

		if resp.Next == nil {
			break
		}
		next = *resp.Next
	}

	if malformed > 0 {
		g.logger.WithFields(logrus.Fields{
			"chain_id":  chainID,
			"address":   address,
			"malformed": malformed,
		}).Warn("Dropped malformed entries from transaction service response")
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Nonce != pending[j].Nonce {
			return pending[i].Nonce < pending[j].Nonce
		}
		return pending[i].SafeTxHash < pending[j].SafeTxHash
	})

	return pending, nil
}

// getPage performs one GET against the service and classifies failures
// into the source error taxonomy.
func (g *GatewayClient) getPage(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err.Error())
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if g.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrMalformed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, err.Error())
	}

	return body, nil
}

var _ Source = (*GatewayClient)(nil)
