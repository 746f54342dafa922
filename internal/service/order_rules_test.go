package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

func ruleProduct(t *testing.T, id int64, price string, stock int, weight string) *entity.Product {
	t.Helper()
	p, err := entity.NewProduct(entity.ProductParams{
		Name:          "Item",
		SKU:           "ITEM-1",
		Price:         entity.MustMoney(price, "USD"),
		StockQuantity: stock,
		Weight:        decimal.RequireFromString(weight),
	})
	require.NoError(t, err)
	p.ID = id
	return p
}

func TestOrderRules_ValidateOrderCreation(t *testing.T) {
	rules := NewOrderRules(DefaultRulesConfig("USD"))
	active := &entity.Customer{ID: 1, IsActive: true}
	p := ruleProduct(t, 1, "10", 5, "1")

	require.NoError(t, rules.ValidateOrderCreation(active, []ProductLine{{Product: p, Quantity: 5}}))

	err := rules.ValidateOrderCreation(active, nil)
	de, ok := entity.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, entity.RuleEmptyOrder, de.Rule)

	err = rules.ValidateOrderCreation(&entity.Customer{ID: 2, IsActive: false}, []ProductLine{{Product: p, Quantity: 1}})
	de, _ = entity.AsDomainError(err)
	assert.Equal(t, entity.RuleCustomerInactive, de.Rule)

	err = rules.ValidateOrderCreation(&entity.Customer{ID: 3, IsActive: true, IsBlocked: true}, []ProductLine{{Product: p, Quantity: 1}})
	de, _ = entity.AsDomainError(err)
	assert.Equal(t, entity.RuleCustomerBlocked, de.Rule)
}

func TestOrderRules_ValidateMergesDuplicateLines(t *testing.T) {
	rules := NewOrderRules(DefaultRulesConfig("USD"))
	active := &entity.Customer{ID: 1, IsActive: true}
	p := ruleProduct(t, 1, "10", 5, "1")

	err := rules.ValidateOrderCreation(active, []ProductLine{{Product: p, Quantity: 3}, {Product: p, Quantity: 3}})
	require.True(t, errors.Is(err, entity.ErrInsufficientStock))
	de, _ := entity.AsDomainError(err)
	assert.Equal(t, 6, de.Requested)
	assert.Equal(t, 5, de.Available)
}

func TestOrderRules_ShippingCost(t *testing.T) {
	cfg := DefaultRulesConfig("USD")
	cfg.HomeCountry = "US"
	cfg.InternationalSurcharge = decimal.NewFromInt(20)
	rules := NewOrderRules(cfg)

	lines := []ProductLine{
		{Product: ruleProduct(t, 1, "10", 5, "1.5"), Quantity: 2},
		{Product: ruleProduct(t, 2, "10", 5, "0.5"), Quantity: 1},
	}
	home := entity.Address{Country: "US"}
	abroad := entity.Address{Country: "DE"}

	// weight 3.5kg: (5 + 3.5) × coefficient
	cost, err := rules.CalculateShippingCost(home, lines, entity.ShippingStandard)
	require.NoError(t, err)
	assert.True(t, cost.Equal(entity.MustMoney("8.5", "USD")))

	cost, err = rules.CalculateShippingCost(home, lines, entity.ShippingExpress)
	require.NoError(t, err)
	assert.True(t, cost.Equal(entity.MustMoney("17", "USD")))

	cost, err = rules.CalculateShippingCost(abroad, lines, entity.ShippingPremium)
	require.NoError(t, err)
	assert.True(t, cost.Equal(entity.MustMoney("32.75", "USD")))

	_, err = rules.CalculateShippingCost(home, lines, "drone")
	assert.Error(t, err)
}

func TestOrderRules_Tax(t *testing.T) {
	rules := NewOrderRules(DefaultRulesConfig("USD"))
	subtotal := entity.MustMoney("200", "USD")

	tax, err := rules.CalculateTaxAmount(subtotal, entity.CustomerIndividual)
	require.NoError(t, err)
	assert.True(t, tax.Equal(entity.MustMoney("18", "USD")))

	tax, err = rules.CalculateTaxAmount(subtotal, entity.CustomerBusiness)
	require.NoError(t, err)
	assert.True(t, tax.Equal(entity.MustMoney("20", "USD")))
}

func TestOrderRules_EstimatedDeliveryDate(t *testing.T) {
	rules := NewOrderRules(DefaultRulesConfig("USD"))
	friday := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC), rules.CalculateEstimatedDeliveryDate(entity.ShippingExpress, friday))
	assert.Equal(t, time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC), rules.CalculateEstimatedDeliveryDate(entity.ShippingPremium, friday))
	assert.Equal(t, time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC), rules.CalculateEstimatedDeliveryDate(entity.ShippingStandard, friday))

	monday := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 16, 9, 0, 0, 0, time.UTC), rules.CalculateEstimatedDeliveryDate(entity.ShippingStandard, monday))

	cfg := DefaultRulesConfig("USD")
	cfg.Weekend = []time.Weekday{time.Friday, time.Saturday}
	gulf := NewOrderRules(cfg)
	thursday := time.Date(2024, 5, 9, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC), gulf.CalculateEstimatedDeliveryDate(entity.ShippingExpress, thursday))
}

func TestOrderRules_CancelAndRefundEligibility(t *testing.T) {
	rules := NewOrderRules(DefaultRulesConfig("USD"))
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	addr := entity.Address{Street: "s", City: "c", State: "st", PostalCode: "12345", Country: "US"}
	o, err := entity.NewOrder(entity.NewOrderParams{
		CustomerID: 1, ShippingAddress: addr, BillingAddress: addr,
		PaymentMethod: entity.PaymentWallet, ShippingMethod: entity.ShippingStandard,
		Currency: "USD", CreatedAt: start,
	})
	require.NoError(t, err)
	require.NoError(t, o.AddItem(1, 1, entity.MustMoney("10", "USD")))
	require.NoError(t, o.Place(start))

	assert.True(t, rules.CanCancelOrder(o))
	assert.False(t, rules.CanRefundOrder(o, start))

	for _, s := range []entity.OrderStatus{entity.OrderConfirmed, entity.OrderProcessing} {
		require.NoError(t, o.ChangeStatus(s, start))
	}
	assert.False(t, rules.CanCancelOrder(o))
	require.NoError(t, o.Ship("TRK", start))
	require.NoError(t, o.ChangeStatus(entity.OrderDelivered, start))

	assert.True(t, rules.CanRefundOrder(o, start.Add(7*24*time.Hour)))
	assert.False(t, rules.CanRefundOrder(o, start.Add(7*24*time.Hour+time.Second)))
}
