package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// LogSink writes notification events to the application log. It is the
// default channel and useful for local runs.
type LogSink struct {
	formatter *Formatter
	logger    *logrus.Entry
}

// NewLogSink creates a new log sink
func NewLogSink(formatter *Formatter) *LogSink {
	return &LogSink{
		formatter: formatter,
		logger:    utils.GetLogger().WithField("component", "log_sink"),
	}
}

// Name returns the sink name
func (l *LogSink) Name() string {
	return "log"
}

// Notify logs the rendered event
func (l *LogSink) Notify(ctx context.Context, event *models.NotificationEvent) error {
	l.logger.WithFields(logrus.Fields{
		"wallet":        event.Wallet.Address,
		"chain_id":      event.Wallet.ChainID,
		"safe_tx_hash":  event.Transaction.SafeTxHash,
		"confirmations": event.Confirmations,
		"threshold":     event.Threshold,
		"reason":        event.Reason,
		"link":          l.formatter.SigningLink(event.Wallet),
	}).Info(l.formatter.Plain(event))
	return nil
}

var _ Sink = (*LogSink)(nil)
