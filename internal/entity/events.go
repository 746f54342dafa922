package entity

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StreamOrder   = "order"
	StreamProduct = "product"
)

// OrderCreated is emitted once the order and its stock decrements are persisted.
type OrderCreated struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber OrderNumber     `json:"order_number"`
	CustomerID  int64           `json:"customer_id"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (e OrderCreated) EventType() string  { return "OrderCreated" }
func (e OrderCreated) StreamType() string { return StreamOrder }
func (e OrderCreated) StreamID() string   { return e.OrderNumber.String() }

// OrderStatusChanged is emitted on every accepted status transition.
type OrderStatusChanged struct {
	OrderID     int64       `json:"order_id"`
	OrderNumber OrderNumber `json:"order_number"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	ChangedAt   time.Time   `json:"changed_at"`
}

func (e OrderStatusChanged) EventType() string  { return "OrderStatusChanged" }
func (e OrderStatusChanged) StreamType() string { return StreamOrder }
func (e OrderStatusChanged) StreamID() string   { return e.OrderNumber.String() }

// Stock change reasons.
const (
	StockReasonOrderPlaced    = "order_placed"
	StockReasonOrderCancelled = "order_cancelled"
	StockReasonRestock        = "restock"
)

// ProductStockUpdated is emitted when product stock changes.
type ProductStockUpdated struct {
	ProductID   int64         `json:"product_id"`
	SKU         SKU           `json:"sku"`
	OldStock    int           `json:"old_stock"`
	NewStock    int           `json:"new_stock"`
	Status      ProductStatus `json:"status"`
	Reason      string        `json:"reason"`
	OrderNumber OrderNumber   `json:"order_number,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (e ProductStockUpdated) EventType() string  { return "ProductStockUpdated" }
func (e ProductStockUpdated) StreamType() string { return StreamProduct }
func (e ProductStockUpdated) StreamID() string   { return strconv.FormatInt(e.ProductID, 10) }
