package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// WebhookConfig defines webhook sink configuration
type WebhookConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Timeout time.Duration     `json:"timeout"`
}

// WebhookSender delivers notification events as JSON webhooks
type WebhookSender struct {
	config     *WebhookConfig
	httpClient *http.Client
	logger     *logrus.Entry
}

// WebhookPayload defines the webhook payload structure
type WebhookPayload struct {
	Source    string                    `json:"source"`
	Type      string                    `json:"type"`
	Timestamp time.Time                 `json:"timestamp"`
	Event     *models.NotificationEvent `json:"event"`
	Version   string                    `json:"version"`
}

// NewWebhookSender creates a new webhook sender
func NewWebhookSender(config *WebhookConfig) *WebhookSender {
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &WebhookSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: utils.GetLogger().WithField("component", "webhook_sender"),
	}
}

// Name returns the sink name
func (ws *WebhookSender) Name() string {
	return "webhook"
}

// Notify posts the event to the configured webhook URL
func (ws *WebhookSender) Notify(ctx context.Context, event *models.NotificationEvent) error {
	startTime := time.Now()

	payload := &WebhookPayload{
		Source:    "safewatch",
		Type:      "pending_transaction",
		Timestamp: time.Now(),
		Event:     event,
		Version:   "1.0",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal webhook payload", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, ws.config.Method, ws.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create webhook request", err.Error())
	}
	ws.setRequestHeaders(req)

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		ws.logger.WithFields(logrus.Fields{
			"url":   ws.config.URL,
			"error": err,
		}).Warn("Webhook delivery failed")
		return utils.NewAppError(utils.ErrCodeNotification, "Failed to send webhook", err.Error())
	}
	defer resp.Body.Close()

	// Read a bounded slice of the body for error reporting
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.NewAppError(utils.ErrCodeNotification,
			"Webhook returned non-success status",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, string(body)))
	}

	ws.logger.WithFields(logrus.Fields{
		"url":          ws.config.URL,
		"safe_tx_hash": event.Transaction.SafeTxHash,
		"status_code":  resp.StatusCode,
		"duration":     time.Since(startTime),
	}).Debug("Webhook sent successfully")

	return nil
}

// setRequestHeaders sets HTTP request headers
func (ws *WebhookSender) setRequestHeaders(req *http.Request) {
	for key, value := range ws.config.Headers {
		req.Header.Set(key, value)
	}

	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "SafeWatch/1.0")
	}

	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	if requestID, err := utils.GenerateID(); err == nil {
		req.Header.Set("X-Request-ID", requestID)
	}
}

var _ Sink = (*WebhookSender)(nil)
