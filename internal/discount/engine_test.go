package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

var now = time.Date(2024, 12, 20, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func product(t *testing.T, price string, stock int, created time.Time) *entity.Product {
	t.Helper()
	brand := int64(3)
	p, err := entity.NewProduct(entity.ProductParams{
		Name:          "Headphones",
		SKU:           "HP-100",
		Price:         entity.MustMoney(price, "USD"),
		StockQuantity: stock,
		CategoryID:    2,
		BrandID:       &brand,
		CreatedAt:     created,
	})
	require.NoError(t, err)
	return p
}

func pct(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestEngine_NoEligiblePolicy(t *testing.T) {
	e := NewEngine(fixedClock, Category{CategoryID: 99, Percent: pct(50)})
	res := e.CalculateBestDiscount(product(t, "100", 50, now.AddDate(-1, 0, 0)))

	assert.True(t, res.Amount.IsZero())
	assert.Equal(t, "USD", res.Amount.Currency())
	assert.Empty(t, res.Policy)
}

func TestEngine_PicksLargest(t *testing.T) {
	e := NewEngine(fixedClock,
		ExpensiveProduct{Threshold: entity.MustMoney("500", "USD"), Percent: pct(5)},
		LowStockClearance{Threshold: 10, Percent: pct(15)},
		Brand{BrandID: 3, Percent: pct(8)},
	)
	res := e.CalculateBestDiscount(product(t, "1000", 4, now.AddDate(-1, 0, 0)))

	assert.Equal(t, "low_stock_clearance", res.Policy)
	assert.True(t, res.Amount.Equal(entity.MustMoney("150", "USD")))
}

func TestEngine_TieGoesToFirstRegistered(t *testing.T) {
	e := NewEngine(fixedClock,
		Category{CategoryID: 2, Percent: pct(10)},
		Brand{BrandID: 3, Percent: pct(10)},
	)
	res := e.CalculateBestDiscount(product(t, "80", 50, now.AddDate(-1, 0, 0)))
	assert.Equal(t, "category", res.Policy)
}

func TestEngine_Deterministic(t *testing.T) {
	e := NewEngine(fixedClock,
		NewProduct{MaxAge: 7 * 24 * time.Hour, Percent: pct(3)},
		Seasonal{Label: "winter", Start: now.AddDate(0, 0, -5), End: now.AddDate(0, 0, 5), Percent: pct(7)},
	)
	p := product(t, "59.99", 50, now.AddDate(0, 0, -2))

	first := e.CalculateBestDiscount(p)
	second := e.CalculateBestDiscount(p)
	assert.Equal(t, first, second)
	assert.Equal(t, "seasonal:winter", first.Policy)
	assert.True(t, first.Amount.Equal(entity.MustMoney("4.20", "USD")))
}

func TestEngine_TotalDiscountForOrder(t *testing.T) {
	e := NewEngine(fixedClock, LowStockClearance{Threshold: 10, Percent: pct(10)})
	lines := []Line{
		{Product: product(t, "20", 5, now), Quantity: 3},
		{Product: product(t, "50", 100, now), Quantity: 1},
	}

	total, err := e.CalculateTotalDiscountForOrder("USD", lines)
	require.NoError(t, err)
	assert.True(t, total.Equal(entity.MustMoney("6", "USD")))

	_, err = e.CalculateTotalDiscountForOrder("EUR", lines)
	assert.Error(t, err)
}

func TestPolicies_Eligibility(t *testing.T) {
	old := product(t, "10", 50, now.AddDate(0, -2, 0))
	fresh := product(t, "10", 50, now.AddDate(0, 0, -1))

	np := NewProduct{MaxAge: 30 * 24 * time.Hour}
	assert.False(t, np.IsEligible(old, now))
	assert.True(t, np.IsEligible(fresh, now))

	s := Seasonal{Start: now, End: now.Add(time.Hour)}
	assert.True(t, s.IsEligible(old, now))
	assert.False(t, s.IsEligible(old, now.Add(2*time.Hour)))

	noBrand, err := entity.NewProduct(entity.ProductParams{Name: "Cable", SKU: "CBL-1", Price: entity.MustMoney("5", "USD"), StockQuantity: 1})
	require.NoError(t, err)
	assert.False(t, Brand{BrandID: 3}.IsEligible(noBrand, now))

	assert.False(t, LowStockClearance{Threshold: 10}.IsEligible(old, now))
}

func TestDefaultPolicies(t *testing.T) {
	policies, err := DefaultPolicies("USD", decimal.NewFromInt(1000), entity.DefaultLowStockThreshold)
	require.NoError(t, err)
	e := NewEngine(fixedClock, policies...)
	assert.Equal(t, []string{"expensive_product", "low_stock_clearance", "new_product"}, e.Policies())
}
