package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/messaging"
	"github.com/egannguyen/ecommerce-orders/internal/metrics"
	"github.com/egannguyen/ecommerce-orders/internal/repository"
	"github.com/egannguyen/ecommerce-orders/internal/repository/sqlstore"
)

type memoryStore struct {
	mu      sync.Mutex
	records []entity.OutboxRecord
	sent    map[int64]bool
}

func newMemoryStore(records ...entity.OutboxRecord) *memoryStore {
	return &memoryStore{records: records, sent: map[int64]bool{}}
}

func (s *memoryStore) FetchPending(_ context.Context, limit int) ([]entity.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.OutboxRecord
	for _, r := range s.records {
		if !s.sent[r.ID] && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) MarkSent(_ context.Context, ids []int64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.sent[id] = true
	}
	return nil
}

type published struct {
	topic string
	key   string
	env   messaging.Envelope
}

type recordingPublisher struct {
	mu     sync.Mutex
	out    []published
	failAt string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	env := event.(messaging.Envelope)
	if env.EventID == p.failAt {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, published{topic: topic, key: key, env: env})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.out)
}

func record(id int64, eventType, streamID string) entity.OutboxRecord {
	return entity.OutboxRecord{
		ID:         id,
		EventID:    eventType + "-" + streamID,
		StreamType: "order",
		StreamID:   streamID,
		EventType:  eventType,
		Payload:    []byte(`{}`),
		CreatedAt:  time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
	}
}

func TestTopicsFor(t *testing.T) {
	topics := Topics{Prefix: "shop"}
	assert.Equal(t, "shop.orders.created", topics.For("OrderCreated"))
	assert.Equal(t, "shop.orders.status_changed", topics.For("OrderStatusChanged"))
	assert.Equal(t, "shop.inventory.stock_updated", topics.For("ProductStockUpdated"))
	assert.Equal(t, "shop.events.unrouted", topics.For("Something"))
	assert.Equal(t, "orders.created", Topics{}.For("OrderCreated"))
}

func TestFlush_PublishesInOrderAndMarksSent(t *testing.T) {
	store := newMemoryStore(
		record(1, "OrderCreated", "ORD-1"),
		record(2, "ProductStockUpdated", "7"),
		record(3, "OrderStatusChanged", "ORD-1"),
	)
	pub := &recordingPublisher{}
	m := metrics.NewWorkflow(prometheus.NewRegistry())
	relay, err := NewRelay(store, pub, WithTopicPrefix("shop"), WithMetrics(m), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, pub.out, 3)
	assert.Equal(t, "shop.orders.created", pub.out[0].topic)
	assert.Equal(t, "ORD-1", pub.out[0].key)
	assert.Equal(t, "shop.inventory.stock_updated", pub.out[1].topic)
	assert.Equal(t, "7", pub.out[1].key)
	assert.Equal(t, "OrderStatusChanged-ORD-1", pub.out[2].env.EventID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxPublished.WithLabelValues("shop.orders.created")))

	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlush_StopsAtFirstFailure(t *testing.T) {
	store := newMemoryStore(
		record(1, "OrderCreated", "ORD-1"),
		record(2, "OrderStatusChanged", "ORD-1"),
		record(3, "OrderStatusChanged", "ORD-2"),
	)
	pub := &recordingPublisher{failAt: "OrderStatusChanged-ORD-1"}
	m := metrics.NewWorkflow(prometheus.NewRegistry())
	relay, err := NewRelay(store, pub, WithMetrics(m))
	require.NoError(t, err)

	n, err := relay.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.sent[1])
	assert.False(t, store.sent[2])
	assert.False(t, store.sent[3])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxFailures))

	pub.failAt = ""
	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRun_DrainsUntilCancelled(t *testing.T) {
	var records []entity.OutboxRecord
	for i := int64(1); i <= 5; i++ {
		records = append(records, record(i, "OrderCreated", "ORD"))
	}
	store := newMemoryStore(records...)
	pub := &recordingPublisher{}
	relay, err := NewRelay(store, pub, WithBatchSize(2), WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() == 5 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestNewRelay_ValidatesOptions(t *testing.T) {
	_, err := NewRelay(nil, &recordingPublisher{})
	assert.Error(t, err)
	_, err = NewRelay(newMemoryStore(), &recordingPublisher{}, WithBatchSize(0))
	assert.Error(t, err)
	_, err = NewRelay(newMemoryStore(), &recordingPublisher{}, WithPollInterval(-time.Second))
	assert.Error(t, err)
}

func TestFlush_FromSQLiteOutbox(t *testing.T) {
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer store.Close()

	event := entity.OrderStatusChanged{
		OrderID:     1,
		OrderNumber: "ORD-20240603-ABCDEF12",
		OldStatus:   entity.OrderPending,
		NewStatus:   entity.OrderConfirmed,
		ChangedAt:   time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repository.RunInTx(ctx, store, func(tx repository.Tx) error {
		return tx.Outbox().Append(ctx, event)
	}))

	pub := &recordingPublisher{}
	relay, err := NewRelay(store.Outbox(), pub, WithTopicPrefix("shop"))
	require.NoError(t, err)

	n, err := relay.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got := pub.out[0]
	assert.Equal(t, "shop.orders.status_changed", got.topic)
	assert.Equal(t, "ORD-20240603-ABCDEF12", got.key)
	var payload entity.OrderStatusChanged
	require.NoError(t, json.Unmarshal(got.env.Payload, &payload))
	assert.Equal(t, entity.OrderConfirmed, payload.NewStatus)

	pending, err := store.Outbox().FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
