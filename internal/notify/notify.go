package notify

import (
	"context"

	"github.com/safewatch/safewatch/internal/config"
	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// Sink delivers a notification for a transaction event. A returned error
// means delivery failed; callers treat it as a retryable outcome, never as
// a fault that aborts processing. Sinks are not assumed idempotent; the
// reconciliation engine owns de-duplication.
type Sink interface {
	Name() string
	Notify(ctx context.Context, event *models.NotificationEvent) error
}

// NewSink creates the configured notification sink
func NewSink(cfg *config.NotificationConfig) (Sink, error) {
	formatter := NewFormatter(cfg.SigningBaseURL)

	switch cfg.Channel {
	case "", "log":
		return NewLogSink(formatter), nil
	case "telegram":
		return NewTelegramSender(&TelegramConfig{
			BotToken: cfg.TelegramBotToken,
			ChatID:   cfg.TelegramChatID,
			Timeout:  cfg.Timeout,
		}, formatter), nil
	case "webhook":
		return NewWebhookSender(&WebhookConfig{
			URL:     cfg.WebhookURL,
			Timeout: cfg.Timeout,
		}), nil
	case "kafka":
		return NewKafkaEmitter(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported notification channel", cfg.Channel)
	}
}
