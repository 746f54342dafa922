package main

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/config"
	"github.com/egannguyen/ecommerce-orders/internal/messaging"
	"github.com/egannguyen/ecommerce-orders/internal/messaging/kafka"
	"github.com/egannguyen/ecommerce-orders/internal/messaging/watermill"
	"github.com/egannguyen/ecommerce-orders/internal/outbox"
	"github.com/egannguyen/ecommerce-orders/internal/repository/sqlstore"
)

type traceProvider = *sdktrace.TracerProvider

// closablePublisher is what the relay publishes through and main closes on exit.
type closablePublisher interface {
	messaging.Publisher
	Close() error
}

type discardPublisher struct{ messaging.Discard }

func (discardPublisher) Close() error { return nil }

// newPublisher picks the broker transport from cfg.Broker.
func newPublisher(cfg *config.Config, logger *zap.Logger, tp traceProvider) (closablePublisher, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		opts := []kafka.Option{kafka.WithClientID(cfg.KafkaClientID), kafka.WithLogger(logger)}
		if tp != nil {
			opts = append(opts, kafka.WithTracerProvider(tp))
		}
		logger.Info("Publishing outbox events to Kafka", zap.Strings("brokers", cfg.KafkaBrokers))
		return kafka.NewPublisher(cfg.KafkaBrokers, opts...)
	case config.BrokerWatermill:
		logger.Info("Publishing outbox events through Watermill", zap.Strings("brokers", cfg.KafkaBrokers))
		return watermill.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaClientID, logger)
	default:
		logger.Warn("No broker configured, outbox events are marked sent without publishing")
		return discardPublisher{}, nil
	}
}

// newOutboxStore reads Postgres outboxes over a dedicated pgx pool and everything else
// through the workflow store.
func newOutboxStore(ctx context.Context, cfg *config.Config, store *sqlstore.Store) (outbox.Store, func(), error) {
	if store.Dialect() != sqlstore.Postgres {
		return store.Outbox(), func() {}, nil
	}
	pgx, err := outbox.NewPgxStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pgx, pgx.Close, nil
}
