package service

import (
	"context"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

type ChangeStatusCommand struct {
	OrderID int64
	Status  entity.OrderStatus
}

type ShipOrderCommand struct {
	OrderID        int64
	TrackingNumber string
}

type CancelOrderCommand struct {
	OrderID int64
	Reason  string
}

type RefundOrderCommand struct {
	OrderID int64
}

type RestockCommand struct {
	ProductID int64
	Quantity  int
}

// Commands maps each write request type to its handler. Callers depend on this struct
// instead of the services so transports can be tested with plain functions.
type Commands struct {
	CreateOrder  func(ctx context.Context, cmd CreateOrderCommand) (*entity.Order, error)
	ChangeStatus func(ctx context.Context, cmd ChangeStatusCommand) (*entity.Order, error)
	ShipOrder    func(ctx context.Context, cmd ShipOrderCommand) (*entity.Order, error)
	CancelOrder  func(ctx context.Context, cmd CancelOrderCommand) (*entity.Order, error)
	RefundOrder  func(ctx context.Context, cmd RefundOrderCommand) (*entity.Order, error)
	Restock      func(ctx context.Context, cmd RestockCommand) (*entity.Product, error)
}

// Queries maps each read request to its handler.
type Queries struct {
	GetOrder         func(ctx context.Context, id int64) (*entity.Order, error)
	GetOrderByNumber func(ctx context.Context, number string) (*entity.Order, error)
	RecentOrders     func(ctx context.Context, limit int) ([]*entity.Order, error)
	Products         func(ctx context.Context) ([]*entity.Product, error)
	Product          func(ctx context.Context, id int64) (*entity.Product, error)
	LowStock         func(ctx context.Context) ([]*entity.Product, error)
}

func NewCommands(orders *OrderService, inventory *InventoryService) Commands {
	return Commands{
		CreateOrder: orders.CreateOrder,
		ChangeStatus: func(ctx context.Context, cmd ChangeStatusCommand) (*entity.Order, error) {
			return orders.ChangeStatus(ctx, cmd.OrderID, cmd.Status)
		},
		ShipOrder: func(ctx context.Context, cmd ShipOrderCommand) (*entity.Order, error) {
			return orders.ShipOrder(ctx, cmd.OrderID, cmd.TrackingNumber)
		},
		CancelOrder: func(ctx context.Context, cmd CancelOrderCommand) (*entity.Order, error) {
			return orders.CancelOrder(ctx, cmd.OrderID, cmd.Reason)
		},
		RefundOrder: func(ctx context.Context, cmd RefundOrderCommand) (*entity.Order, error) {
			return orders.RefundOrder(ctx, cmd.OrderID)
		},
		Restock: func(ctx context.Context, cmd RestockCommand) (*entity.Product, error) {
			return inventory.Restock(ctx, cmd.ProductID, cmd.Quantity)
		},
	}
}

func NewQueries(orders *OrderService, inventory *InventoryService) Queries {
	return Queries{
		GetOrder:         orders.GetOrder,
		GetOrderByNumber: orders.GetOrderByNumber,
		RecentOrders:     orders.GetRecentOrders,
		Products:         inventory.GetProducts,
		Product:          inventory.GetProduct,
		LowStock:         inventory.LowStock,
	}
}
