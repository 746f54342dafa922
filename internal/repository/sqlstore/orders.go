package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

const orderColumns = `id, order_number, customer_id, status, shipping_address, billing_address, payment_method,
	shipping_method, currency, shipping_cost, tax_amount, discount_amount, notes, tracking_number,
	estimated_delivery_date, shipped_at, delivered_at, cancelled_at, version, created_at, updated_at`

type orderRepository struct {
	c conn
}

func scanOrderState(row rowScanner) (entity.OrderState, error) {
	var (
		s                                      entity.OrderState
		shipping, billing                      jsonAddress
		eta, shippedAt, deliveredAt, cancelled nullTime
		created, updated                       nullTime
	)
	err := row.Scan(
		&s.ID, &s.OrderNumber, &s.CustomerID, &s.Status, &shipping, &billing, &s.PaymentMethod,
		&s.ShippingMethod, &s.Currency, &s.ShippingCost, &s.TaxAmount, &s.DiscountAmount, &s.Notes, &s.TrackingNumber,
		&eta, &shippedAt, &deliveredAt, &cancelled, &s.Version, &created, &updated,
	)
	if err != nil {
		return s, err
	}
	s.ShippingAddress = shipping.Address
	s.BillingAddress = billing.Address
	s.EstimatedDeliveryDate = eta.ptr()
	s.ShippedAt = shippedAt.ptr()
	s.DeliveredAt = deliveredAt.ptr()
	s.CancelledAt = cancelled.ptr()
	s.CreatedAt = created.Time
	s.UpdatedAt = updated.Time
	return s, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]entity.OrderItemState, error) {
	rows, err := r.c.query(ctx,
		"SELECT id, order_id, product_id, quantity, unit_price, total_price FROM order_items WHERE order_id = ? ORDER BY id",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []entity.OrderItemState
	for rows.Next() {
		var it entity.OrderItemState
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepository) restore(ctx context.Context, s entity.OrderState) (*entity.Order, error) {
	items, err := r.loadItems(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Items = items
	o, err := entity.RestoreOrder(s)
	if err != nil {
		return nil, fmt.Errorf("stored order %d is invalid: %w", s.ID, err)
	}
	return o, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*entity.Order, error) {
	s, err := scanOrderState(r.c.queryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if err != nil {
		return nil, translate(notFoundOr(err, "order", id), "load order", "order", id)
	}
	return r.restore(ctx, s)
}

func (r *orderRepository) FindByNumber(ctx context.Context, number entity.OrderNumber) (*entity.Order, error) {
	s, err := scanOrderState(r.c.queryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE order_number = ?", number.String()))
	if err != nil {
		return nil, translate(notFoundOr(err, "order", number), "load order", "order", number)
	}
	return r.restore(ctx, s)
}

func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Order, error) {
	var orderID int64
	err := r.c.queryRow(ctx, "SELECT order_id FROM order_idempotency WHERE idempotency_key = ?", key).Scan(&orderID)
	if err != nil {
		return nil, translate(notFoundOr(err, "idempotency key", key), "load idempotency key", "idempotency key", key)
	}
	return r.FindByID(ctx, orderID)
}

func (r *orderRepository) SaveIdempotencyKey(ctx context.Context, key string, orderID int64, at time.Time) error {
	_, err := r.c.exec(ctx,
		"INSERT INTO order_idempotency (idempotency_key, order_id, created_at) VALUES (?, ?, ?)",
		key, orderID, utc(at),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewConcurrencyConflict("idempotency key", key)
		}
		return translate(err, "save idempotency key", "idempotency key", key)
	}
	return nil
}

func (r *orderRepository) FindRecent(ctx context.Context, limit int) ([]*entity.Order, error) {
	rows, err := r.c.query(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	var states []entity.OrderState
	for rows.Next() {
		s, err := scanOrderState(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	rows.Close()

	// items are loaded after the header cursor is closed; SQLite runs on one connection
	orders := make([]*entity.Order, 0, len(states))
	for _, s := range states {
		o, err := r.restore(ctx, s)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *orderRepository) Create(ctx context.Context, o *entity.Order) error {
	s := o.State()
	var id int64
	err := r.c.queryRow(ctx,
		`INSERT INTO orders (order_number, customer_id, status, shipping_address, billing_address, payment_method,
			shipping_method, currency, total_amount, shipping_cost, tax_amount, discount_amount, final_amount, notes,
			tracking_number, estimated_delivery_date, shipped_at, delivered_at, cancelled_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?) RETURNING id`,
		s.OrderNumber.String(), s.CustomerID, string(s.Status), jsonAddress{s.ShippingAddress}, jsonAddress{s.BillingAddress},
		string(s.PaymentMethod), string(s.ShippingMethod), s.Currency, s.TotalAmount, s.ShippingCost, s.TaxAmount,
		s.DiscountAmount, s.FinalAmount, s.Notes, s.TrackingNumber, utcPtr(s.EstimatedDeliveryDate), utcPtr(s.ShippedAt),
		utcPtr(s.DeliveredAt), utcPtr(s.CancelledAt), utc(s.CreatedAt), utc(s.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return translate(err, "insert order", "order", s.OrderNumber)
	}

	itemIDs := make([]int64, 0, len(s.Items))
	for _, it := range s.Items {
		var itemID int64
		err := r.c.queryRow(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price) VALUES (?, ?, ?, ?, ?) RETURNING id",
			id, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice,
		).Scan(&itemID)
		if err != nil {
			return translate(err, "insert order item", "order", s.OrderNumber)
		}
		itemIDs = append(itemIDs, itemID)
	}

	o.AssignIdentity(id, itemIDs)
	o.Version = 1
	return nil
}

// Update persists the mutable header fields under the order version. Items and
// amounts are fixed at creation.
func (r *orderRepository) Update(ctx context.Context, o *entity.Order) error {
	res, err := r.c.exec(ctx,
		`UPDATE orders
		SET status = ?, notes = ?, tracking_number = ?, estimated_delivery_date = ?, shipped_at = ?, delivered_at = ?,
			cancelled_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(o.Status()), o.Notes(), o.TrackingNumber(), utcPtr(o.EstimatedDeliveryDate()), utcPtr(o.ShippedAt()),
		utcPtr(o.DeliveredAt()), utcPtr(o.CancelledAt()), utc(o.UpdatedAt), o.ID, o.Version,
	)
	if err != nil {
		return translate(err, "update order", "order", o.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return entity.NewConcurrencyConflict("order", o.ID)
	}
	o.Version++
	return nil
}
