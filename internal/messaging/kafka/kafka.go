// Package kafka publishes events with segmentio/kafka-go, traced through
// otel-kafka-konsumer.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/messaging"
)

// Producer is the subset of a kafka writer the publisher needs.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafkaGo.Message) error
	Close() error
}

type Options struct {
	ClientID       string
	BatchTimeout   time.Duration
	TracerProvider trace.TracerProvider
	Logger         *zap.Logger
}

type Option func(opt *Options) error

func WithClientID(id string) Option {
	return func(opt *Options) error {
		opt.ClientID = id
		return nil
	}
}

func WithBatchTimeout(d time.Duration) Option {
	return func(opt *Options) error {
		if d <= 0 {
			return fmt.Errorf("batch timeout must be positive, got %s", d)
		}
		opt.BatchTimeout = d
		return nil
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(opt *Options) error {
		opt.TracerProvider = tp
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opt *Options) error {
		opt.Logger = logger
		return nil
	}
}

// Publisher implements messaging.Publisher on a single long-lived writer. The topic is
// set per message.
type Publisher struct {
	producer Producer
	logger   *zap.Logger
}

var _ messaging.Publisher = (*Publisher)(nil)

// NewPublisher creates a traced writer for brokers.
func NewPublisher(brokers []string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	o := Options{
		ClientID:       "ecommerce-orders",
		BatchTimeout:   10 * time.Millisecond,
		TracerProvider: otel.GetTracerProvider(),
		Logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	base := &kafkaGo.Writer{
		Addr:         kafkaGo.TCP(brokers...),
		Balancer:     &kafkaGo.Hash{},
		BatchTimeout: o.BatchTimeout,
		RequiredAcks: kafkaGo.RequireAll,
	}
	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(o.TracerProvider),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingSystemKafka,
				attribute.String("messaging.kafka.client_id", o.ClientID),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka writer: %w", err)
	}
	return &Publisher{producer: writer, logger: o.Logger}, nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(p Producer, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{producer: p, logger: logger}
}

func (p *Publisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	md := messaging.Metadata(event)
	names := make([]string, 0, len(md))
	for k := range md {
		names = append(names, k)
	}
	sort.Strings(names)
	headers := make([]kafkaGo.Header, 0, len(md))
	for _, k := range names {
		headers = append(headers, kafkaGo.Header{Key: k, Value: []byte(md[k])})
	}

	err = p.producer.WriteMessage(ctx, kafkaGo.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}
	p.logger.Debug("Published event", zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
