// Package outbox moves committed domain events from the outbox table to a broker.
package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/messaging"
	"github.com/egannguyen/ecommerce-orders/internal/metrics"
)

// Store reads unsent events and marks them delivered.
type Store interface {
	FetchPending(ctx context.Context, limit int) ([]entity.OutboxRecord, error)
	MarkSent(ctx context.Context, ids []int64, at time.Time) error
}

// Topics maps event types to broker topics.
type Topics struct {
	Prefix string
}

func (t Topics) For(eventType string) string {
	var suffix string
	switch eventType {
	case "OrderCreated":
		suffix = "orders.created"
	case "OrderStatusChanged":
		suffix = "orders.status_changed"
	case "ProductStockUpdated":
		suffix = "inventory.stock_updated"
	default:
		suffix = "events.unrouted"
	}
	if t.Prefix == "" {
		return suffix
	}
	return t.Prefix + "." + suffix
}

type Options struct {
	Topics       Topics
	PollInterval time.Duration
	BatchSize    int
	Logger       *zap.Logger
	Metrics      *metrics.Workflow
}

type Option func(opt *Options) error

func WithTopicPrefix(prefix string) Option {
	return func(opt *Options) error {
		opt.Topics = Topics{Prefix: prefix}
		return nil
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(opt *Options) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive, got %s", d)
		}
		opt.PollInterval = d
		return nil
	}
}

func WithBatchSize(n int) Option {
	return func(opt *Options) error {
		if n <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		opt.BatchSize = n
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opt *Options) error {
		opt.Logger = logger
		return nil
	}
}

func WithMetrics(m *metrics.Workflow) Option {
	return func(opt *Options) error {
		opt.Metrics = m
		return nil
	}
}

// Relay polls the store and publishes events in insertion order. An event is marked
// sent only after the broker accepted it, so a crash between the two redelivers it.
type Relay struct {
	store     Store
	publisher messaging.Publisher
	opts      Options
}

func NewRelay(store Store, publisher messaging.Publisher, opts ...Option) (*Relay, error) {
	if store == nil || publisher == nil {
		return nil, fmt.Errorf("outbox store and publisher are required")
	}
	o := Options{
		PollInterval: time.Second,
		BatchSize:    100,
		Logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Relay{store: store, publisher: publisher, opts: o}, nil
}

// Run flushes until ctx is cancelled. Flush errors are logged and retried on the
// next tick.
func (r *Relay) Run(ctx context.Context) error {
	r.opts.Logger.Info("Outbox relay started",
		zap.Duration("poll_interval", r.opts.PollInterval),
		zap.Int("batch_size", r.opts.BatchSize),
	)
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.Flush(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.opts.Logger.Error("Outbox flush failed", zap.Error(err))
				}
				break
			}
			// a full batch means more may be waiting
			if n < r.opts.BatchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			r.opts.Logger.Info("Outbox relay shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch and returns how many events were delivered. It stops at
// the first publish failure so later events of the same stream are not sent ahead of
// it.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.store.FetchPending(ctx, r.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending events: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	sent := make([]int64, 0, len(records))
	var publishErr error
	for _, rec := range records {
		topic := r.opts.Topics.For(rec.EventType)
		env := messaging.Envelope{
			EventID:    rec.EventID,
			EventType:  rec.EventType,
			StreamType: rec.StreamType,
			StreamID:   rec.StreamID,
			OccurredAt: rec.CreatedAt,
			Payload:    rec.Payload,
		}
		if err := r.publisher.PublishEvent(ctx, topic, rec.StreamID, env); err != nil {
			r.opts.Metrics.PublishFailed()
			publishErr = fmt.Errorf("failed to publish event %s: %w", rec.EventID, err)
			break
		}
		r.opts.Metrics.Published(topic)
		sent = append(sent, rec.ID)
	}

	if len(sent) > 0 {
		if err := r.store.MarkSent(ctx, sent, time.Now()); err != nil {
			return 0, fmt.Errorf("failed to mark events sent: %w", err)
		}
		r.opts.Logger.Debug("Outbox batch delivered", zap.Int("count", len(sent)))
	}
	return len(sent), publishErr
}
