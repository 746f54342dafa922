package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// Policy decides whether a product qualifies for a discount and how large the
// per-unit discount is.
type Policy interface {
	Name() string
	IsEligible(p *entity.Product, at time.Time) bool
	CalculateDiscount(p *entity.Product) entity.Money
}

// ExpensiveProduct discounts products priced at or above Threshold.
type ExpensiveProduct struct {
	Threshold entity.Money
	Percent   decimal.Decimal
}

func (ExpensiveProduct) Name() string { return "expensive_product" }

func (d ExpensiveProduct) IsEligible(p *entity.Product, _ time.Time) bool {
	return p.Price.Currency() == d.Threshold.Currency() && !d.Threshold.GreaterThan(p.Price)
}

func (d ExpensiveProduct) CalculateDiscount(p *entity.Product) entity.Money {
	return p.Price.Percentage(d.Percent)
}

// LowStockClearance discounts products whose stock is low but not exhausted.
type LowStockClearance struct {
	Threshold int
	Percent   decimal.Decimal
}

func (LowStockClearance) Name() string { return "low_stock_clearance" }

func (d LowStockClearance) IsEligible(p *entity.Product, _ time.Time) bool {
	return p.IsLowStock(d.Threshold)
}

func (d LowStockClearance) CalculateDiscount(p *entity.Product) entity.Money {
	return p.Price.Percentage(d.Percent)
}

// NewProduct discounts products created within MaxAge of the evaluation time.
type NewProduct struct {
	MaxAge  time.Duration
	Percent decimal.Decimal
}

func (NewProduct) Name() string { return "new_product" }

func (d NewProduct) IsEligible(p *entity.Product, at time.Time) bool {
	if p.CreatedAt.IsZero() || p.CreatedAt.After(at) {
		return false
	}
	return at.Sub(p.CreatedAt) <= d.MaxAge
}

func (d NewProduct) CalculateDiscount(p *entity.Product) entity.Money {
	return p.Price.Percentage(d.Percent)
}

// Category discounts every product in one category.
type Category struct {
	CategoryID int64
	Percent    decimal.Decimal
}

func (d Category) Name() string { return "category" }

func (d Category) IsEligible(p *entity.Product, _ time.Time) bool {
	return p.CategoryID == d.CategoryID
}

func (d Category) CalculateDiscount(p *entity.Product) entity.Money {
	return p.Price.Percentage(d.Percent)
}

// Brand discounts every product of one brand. Products without a brand never qualify.
type Brand struct {
	BrandID int64
	Percent decimal.Decimal
}

func (d Brand) Name() string { return "brand" }

func (d Brand) IsEligible(p *entity.Product, _ time.Time) bool {
	return p.BrandID != nil && *p.BrandID == d.BrandID
}

func (d Brand) CalculateDiscount(p *entity.Product) entity.Money {
	return p.Price.Percentage(d.Percent)
}

// Seasonal discounts everything inside the [Start, End] window.
type Seasonal struct {
	Label   string
	Start   time.Time
	End     time.Time
	Percent decimal.Decimal
}

func (d Seasonal) Name() string {
	if d.Label != "" {
		return "seasonal:" + d.Label
	}
	return "seasonal"
}

func (d Seasonal) IsEligible(_ *entity.Product, at time.Time) bool {
	return !at.Before(d.Start) && !at.After(d.End)
}

func (d Seasonal) CalculateDiscount(p *entity.Product) entity.Money {
	return p.Price.Percentage(d.Percent)
}
