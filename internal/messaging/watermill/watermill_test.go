package watermill

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/egannguyen/ecommerce-orders/internal/messaging"
)

func TestPublishEvent_DeliversThroughGoChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, NewZapLogger(zap.NewNop()))
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, "shop.inventory.stock_updated")
	require.NoError(t, err)

	pub := NewPublisher(pubSub)
	env := messaging.Envelope{
		EventID:    "2b7f3f55-9d2e-4f7e-8d35-5b8e0a1c2d3e",
		EventType:  "ProductStockUpdated",
		StreamType: "product",
		StreamID:   "7",
		Payload:    json.RawMessage(`{"product_id":7,"new_stock":3}`),
	}
	require.NoError(t, pub.PublishEvent(ctx, "shop.inventory.stock_updated", "7", env))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, env.EventID, msg.UUID)
		assert.Equal(t, "7", msg.Metadata.Get(MetadataPartitionKey))
		assert.Equal(t, "ProductStockUpdated", msg.Metadata.Get(messaging.HeaderEventType))

		var got messaging.Envelope
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, "product", got.StreamType)
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}

func TestPublishEvent_GeneratesIDForPlainEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()
	messages, err := pubSub.Subscribe(ctx, "plain")
	require.NoError(t, err)

	require.NoError(t, NewPublisher(pubSub).PublishEvent(ctx, "plain", "k", map[string]string{"hello": "world"}))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.NotEmpty(t, msg.UUID)
		assert.Empty(t, msg.Metadata.Get(messaging.HeaderEventID))
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("closed") }
func (failingPublisher) Close() error                              { return nil }

func TestPublishEvent_WrapsPublishError(t *testing.T) {
	err := NewPublisher(failingPublisher{}).PublishEvent(context.Background(), "t", "k", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish message to t")
}

func TestZapLogger_ForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core)).With(watermill.LogFields{"topic": "orders"})

	logger.Info("publishing", watermill.LogFields{"uuid": "abc"})
	logger.Trace("tracing", nil)
	logger.Error("failed", errors.New("boom"), nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "publishing", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "orders", fields["topic"])
	assert.Equal(t, "abc", fields["uuid"])
	assert.Equal(t, zap.DebugLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "orders", nil)
	assert.Error(t, err)
}
