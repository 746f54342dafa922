package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the catalog availability of a product.
type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductOutOfStock   ProductStatus = "out_of_stock"
	ProductDiscontinued ProductStatus = "discontinued"
	ProductComingSoon   ProductStatus = "coming_soon"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductActive, ProductInactive, ProductOutOfStock, ProductDiscontinued, ProductComingSoon:
		return true
	}
	return false
}

// DefaultLowStockThreshold is the stock level at or below which a product counts as low.
const DefaultLowStockThreshold = 10

// ProductParams carries the fields needed to build or restore a Product.
type ProductParams struct {
	Name          string
	SKU           string
	Price         Money
	StockQuantity int
	Status        ProductStatus
	CategoryID    int64
	BrandID       *int64
	Weight        decimal.Decimal // kilograms
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Product is a catalog item together with its stock counter. Stock and status are only
// changed through DecreaseStock and IncreaseStock so they never drift apart.
type Product struct {
	AggregateBase
	Name       ProductName
	SKU        SKU
	Price      Money
	CategoryID int64
	BrandID    *int64
	Weight     decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time

	stock  int
	status ProductStatus
}

// NewProduct validates params. An Active product with zero stock is stored as OutOfStock.
func NewProduct(params ProductParams) (*Product, error) {
	name, err := NewProductName(params.Name)
	if err != nil {
		return nil, err
	}
	sku, err := NewSKU(params.SKU)
	if err != nil {
		return nil, err
	}
	if params.Price.Currency() == "" {
		return nil, NewRuleViolation(RuleInvalidPrice, "product price is required")
	}
	if params.StockQuantity < 0 {
		return nil, NewRuleViolation(RuleInvalidQuantity, "stock quantity must not be negative")
	}
	if params.Weight.IsNegative() {
		return nil, NewRuleViolation(RuleInvalidValue, "weight must not be negative")
	}
	status := params.Status
	if status == "" {
		status = ProductActive
	}
	if !status.Valid() {
		return nil, NewRuleViolation(RuleInvalidValue, "unknown product status %q", status)
	}

	p := &Product{
		Name:       name,
		SKU:        sku,
		Price:      params.Price,
		CategoryID: params.CategoryID,
		BrandID:    params.BrandID,
		Weight:     params.Weight,
		CreatedAt:  params.CreatedAt,
		UpdatedAt:  params.UpdatedAt,
		stock:      params.StockQuantity,
		status:     status,
	}
	p.syncStatus()
	return p, nil
}

func (p *Product) StockQuantity() int    { return p.stock }
func (p *Product) Status() ProductStatus { return p.status }
func (p *Product) IsOutOfStock() bool    { return p.stock == 0 }
func (p *Product) IsInStock() bool       { return p.status == ProductActive && p.stock > 0 }
func (p *Product) IsPurchasable() bool   { return p.IsInStock() }
func (p *Product) IsLowStock(threshold int) bool {
	return p.stock > 0 && p.stock <= threshold
}

// DecreaseStock reserves qty units for the order identified by ref.
func (p *Product) DecreaseStock(qty int, ref OrderNumber, at time.Time) error {
	if qty <= 0 {
		return NewRuleViolation(RuleInvalidQuantity, "quantity must be positive, got %d", qty)
	}
	if !p.IsPurchasable() || qty > p.stock {
		return NewInsufficientStockError(p.ID, p.Name.String(), qty, p.availableForSale())
	}
	p.changeStock(p.stock-qty, StockReasonOrderPlaced, ref, at)
	return nil
}

// IncreaseStock returns or adds qty units.
func (p *Product) IncreaseStock(qty int, reason string, ref OrderNumber, at time.Time) error {
	if qty <= 0 {
		return NewRuleViolation(RuleInvalidQuantity, "quantity must be positive, got %d", qty)
	}
	p.changeStock(p.stock+qty, reason, ref, at)
	return nil
}

func (p *Product) availableForSale() int {
	if !p.IsPurchasable() {
		return 0
	}
	return p.stock
}

func (p *Product) changeStock(newStock int, reason string, ref OrderNumber, at time.Time) {
	old := p.stock
	p.stock = newStock
	p.syncStatus()
	p.UpdatedAt = at
	p.record(ProductStockUpdated{
		ProductID:   p.ID,
		SKU:         p.SKU,
		OldStock:    old,
		NewStock:    newStock,
		Status:      p.status,
		Reason:      reason,
		OrderNumber: ref,
		UpdatedAt:   at,
	})
}

func (p *Product) syncStatus() {
	switch {
	case p.status == ProductActive && p.stock == 0:
		p.status = ProductOutOfStock
	case p.status == ProductOutOfStock && p.stock > 0:
		p.status = ProductActive
	}
}
