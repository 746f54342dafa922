package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/egannguyen/ecommerce-orders/internal/config"
	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/repository/sqlstore"
)

func TestRulesConfig_AppliesOverrides(t *testing.T) {
	cfg := &config.Config{
		Currency:               "IRR",
		HomeCountry:            "IR",
		ShippingBaseFee:        decimal.NewFromInt(7),
		ShippingPerKg:          decimal.NewFromInt(2),
		InternationalSurcharge: decimal.NewFromInt(20),
		TaxRateIndividual:      decimal.NewFromInt(8),
		TaxRateBusiness:        decimal.NewFromInt(12),
	}
	rules := rulesConfig(cfg)

	assert.Equal(t, "IRR", rules.Currency)
	assert.Equal(t, "IR", rules.HomeCountry)
	assert.True(t, rules.ShippingBaseFee.Equal(decimal.NewFromInt(7)))
	assert.True(t, rules.TaxRates[entity.CustomerBusiness].Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 3, rules.DeliveryDays[entity.ShippingStandard])
}

func TestNewPublisher_NoneDiscards(t *testing.T) {
	pub, err := newPublisher(&config.Config{Broker: config.BrokerNone}, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	assert.NoError(t, pub.PublishEvent(context.Background(), "orders.created", "k", struct{}{}))
	assert.NoError(t, pub.Close())
}

func TestNewOutboxStore_SQLiteUsesWorkflowStore(t *testing.T) {
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer store.Close()

	outboxStore, closeFn, err := newOutboxStore(ctx, &config.Config{}, store)
	require.NoError(t, err)
	defer closeFn()

	pending, err := outboxStore.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
