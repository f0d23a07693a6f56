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

const telegramAPIBase = "https://api.telegram.org"

// TelegramConfig defines Telegram Bot API configuration
type TelegramConfig struct {
	BotToken string        `json:"-"`
	ChatID   string        `json:"chat_id"`
	Timeout  time.Duration `json:"timeout"`
	// APIBase overrides the Bot API endpoint, used in tests.
	APIBase string `json:"-"`
}

// TelegramSender delivers notification events as Telegram messages
type TelegramSender struct {
	config     *TelegramConfig
	formatter  *Formatter
	httpClient *http.Client
	logger     *logrus.Entry
}

// telegramSendMessage is the Bot API sendMessage request body
type telegramSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// telegramResponse is the Bot API response envelope
type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTelegramSender creates a new Telegram sender
func NewTelegramSender(config *TelegramConfig, formatter *Formatter) *TelegramSender {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.APIBase == "" {
		config.APIBase = telegramAPIBase
	}

	return &TelegramSender{
		config:    config,
		formatter: formatter,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: utils.GetLogger().WithField("component", "telegram_sender"),
	}
}

// Name returns the sink name
func (t *TelegramSender) Name() string {
	return "telegram"
}

// Notify sends one message for the event via the Bot API
func (t *TelegramSender) Notify(ctx context.Context, event *models.NotificationEvent) error {
	startTime := time.Now()

	payload := telegramSendMessage{
		ChatID:                t.config.ChatID,
		Text:                  t.formatter.HTML(event),
		ParseMode:             "HTML",
		DisableWebPagePreview: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal Telegram payload", err.Error())
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.config.APIBase, t.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create Telegram request", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"safe_tx_hash": event.Transaction.SafeTxHash,
			"error":        err,
		}).Warn("Telegram delivery failed")
		return utils.NewAppError(utils.ErrCodeNotification, "Failed to send Telegram message", err.Error())
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiResp telegramResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil || !apiResp.OK {
		t.logger.WithFields(logrus.Fields{
			"safe_tx_hash": event.Transaction.SafeTxHash,
			"status_code":  resp.StatusCode,
			"description":  apiResp.Description,
		}).Warn("Telegram API rejected message")
		return utils.NewAppError(utils.ErrCodeNotification,
			"Telegram API rejected message",
			fmt.Sprintf("status: %d, description: %s", resp.StatusCode, apiResp.Description))
	}

	t.logger.WithFields(logrus.Fields{
		"safe_tx_hash": event.Transaction.SafeTxHash,
		"wallet":       event.Wallet.Address,
		"duration":     time.Since(startTime),
	}).Info("Telegram notification sent")

	return nil
}

var _ Sink = (*TelegramSender)(nil)
