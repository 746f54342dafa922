package http

import (
	"time"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// Amounts travel as decimal strings so clients never round through float64.

type OrderItemBody struct {
	ID         int64  `json:"id"`
	ProductID  int64  `json:"product_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

type OrderBody struct {
	ID                    int64           `json:"id"`
	Version               int64           `json:"version"`
	OrderNumber           string          `json:"order_number"`
	CustomerID            int64           `json:"customer_id"`
	Status                string          `json:"status"`
	Items                 []OrderItemBody `json:"items"`
	ShippingAddress       AddressBody     `json:"shipping_address"`
	BillingAddress        AddressBody     `json:"billing_address"`
	PaymentMethod         string          `json:"payment_method"`
	ShippingMethod        string          `json:"shipping_method"`
	Currency              string          `json:"currency"`
	TotalAmount           string          `json:"total_amount"`
	ShippingCost          string          `json:"shipping_cost"`
	TaxAmount             string          `json:"tax_amount"`
	DiscountAmount        string          `json:"discount_amount"`
	FinalAmount           string          `json:"final_amount"`
	Notes                 string          `json:"notes,omitempty"`
	TrackingNumber        string          `json:"tracking_number,omitempty"`
	EstimatedDeliveryDate *time.Time      `json:"estimated_delivery_date,omitempty"`
	ShippedAt             *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt           *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type ProductBody struct {
	ID            int64     `json:"id"`
	Version       int64     `json:"version"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	Price         string    `json:"price"`
	Currency      string    `json:"currency"`
	StockQuantity int       `json:"stock_quantity"`
	Status        string    `json:"status"`
	CategoryID    int64     `json:"category_id"`
	BrandID       *int64    `json:"brand_id,omitempty"`
	Weight        string    `json:"weight"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toOrderBody(o *entity.Order) OrderBody {
	s := o.State()
	items := make([]OrderItemBody, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, OrderItemBody{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.StringFixed(2),
			TotalPrice: it.TotalPrice.StringFixed(2),
		})
	}
	return OrderBody{
		ID:                    s.ID,
		Version:               s.Version,
		OrderNumber:           s.OrderNumber.String(),
		CustomerID:            s.CustomerID,
		Status:                string(s.Status),
		Items:                 items,
		ShippingAddress:       fromAddress(s.ShippingAddress),
		BillingAddress:        fromAddress(s.BillingAddress),
		PaymentMethod:         string(s.PaymentMethod),
		ShippingMethod:        string(s.ShippingMethod),
		Currency:              s.Currency,
		TotalAmount:           s.TotalAmount.StringFixed(2),
		ShippingCost:          s.ShippingCost.StringFixed(2),
		TaxAmount:             s.TaxAmount.StringFixed(2),
		DiscountAmount:        s.DiscountAmount.StringFixed(2),
		FinalAmount:           s.FinalAmount.StringFixed(2),
		Notes:                 s.Notes,
		TrackingNumber:        s.TrackingNumber,
		EstimatedDeliveryDate: s.EstimatedDeliveryDate,
		ShippedAt:             s.ShippedAt,
		DeliveredAt:           s.DeliveredAt,
		CancelledAt:           s.CancelledAt,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func toProductBody(p *entity.Product) ProductBody {
	return ProductBody{
		ID:            p.ID,
		Version:       p.Version,
		Name:          string(p.Name),
		SKU:           p.SKU.String(),
		Price:         p.Price.Amount().StringFixed(2),
		Currency:      p.Price.Currency(),
		StockQuantity: p.StockQuantity(),
		Status:        string(p.Status()),
		CategoryID:    p.CategoryID,
		BrandID:       p.BrandID,
		Weight:        p.Weight.String(),
		UpdatedAt:     p.UpdatedAt,
	}
}

func toAddress(b AddressBody) (entity.Address, error) {
	return entity.NewAddress(b.Street, b.City, b.State, b.PostalCode, b.Country,
		entity.WithDistrict(b.District),
		entity.WithBuilding(b.Building),
		entity.WithUnit(b.Unit),
	)
}

func fromAddress(a entity.Address) AddressBody {
	return AddressBody{
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		District:   a.District,
		Building:   a.Building,
		Unit:       a.Unit,
	}
}
