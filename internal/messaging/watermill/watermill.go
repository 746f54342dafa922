// Package watermill publishes events through a watermill publisher, by default the
// sarama-backed Kafka publisher.
package watermill

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/messaging"
)

// MetadataPartitionKey carries the message key used to pick a partition.
const MetadataPartitionKey = "partition_key"

// Publisher implements messaging.Publisher on any watermill publisher.
type Publisher struct {
	pub message.Publisher
}

var _ messaging.Publisher = (*Publisher)(nil)

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// NewKafkaPublisher creates a synchronous sarama producer for brokers. Messages with
// the same key land on the same partition.
func NewKafkaPublisher(brokers []string, clientID string, logger *zap.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	saramaCfg := kafka.DefaultSaramaSyncPublisherConfig()
	saramaCfg.ClientID = clientID
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5

	pub, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers: brokers,
			Marshaler: kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
				return msg.Metadata.Get(MetadataPartitionKey), nil
			}),
			OverwriteSaramaConfig: saramaCfg,
		},
		NewZapLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermill kafka publisher: %w", err)
	}
	return &Publisher{pub: pub}, nil
}

func (p *Publisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	md := messaging.Metadata(event)
	id := md[messaging.HeaderEventID]
	if id == "" {
		id = newMessageID()
	}
	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)
	for k, v := range md {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(MetadataPartitionKey, key)

	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.pub.Close()
}

func newMessageID() string {
	return uuid.New().String()
}

// ZapLogger adapts zap to watermill.LoggerAdapter.
type ZapLogger struct {
	logger *zap.Logger
}

func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *ZapLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (l *ZapLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *ZapLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, zapFields(fields)...)
}

// Trace maps to debug; zap has no lower level.
func (l *ZapLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *ZapLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &ZapLogger{logger: l.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
