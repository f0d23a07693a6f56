package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// KafkaEmitter publishes notification events to a Kafka topic, keyed by
// safe tx hash so replays for one transaction land on the same partition.
type KafkaEmitter struct {
	writer *kafka.Writer
	logger *logrus.Entry
	mu     sync.Mutex
}

// NewKafkaEmitter creates a new Kafka emitter
func NewKafkaEmitter(brokers []string, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: utils.GetLogger().WithField("component", "kafka_emitter"),
	}
}

// Name returns the sink name
func (k *KafkaEmitter) Name() string {
	return "kafka"
}

// Notify writes the event to the topic
func (k *KafkaEmitter) Notify(ctx context.Context, event *models.NotificationEvent) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal event", err.Error())
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Transaction.SafeTxHash),
		Value: value,
	})
	if err != nil {
		return utils.NewAppError(utils.ErrCodeNotification, "Failed to write message to Kafka", err.Error())
	}

	k.logger.WithFields(logrus.Fields{
		"safe_tx_hash": event.Transaction.SafeTxHash,
		"wallet":       event.Wallet.Address,
	}).Info("Event emitted to Kafka")
	return nil
}

// Close flushes and closes the writer
func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}

var _ Sink = (*KafkaEmitter)(nil)
