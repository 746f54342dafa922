package sqlstore

import (
	"context"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

type customerRepository struct {
	c conn
}

func (r *customerRepository) FindByID(ctx context.Context, id int64) (*entity.Customer, error) {
	var (
		cust    entity.Customer
		created nullTime
	)
	err := r.c.queryRow(ctx,
		"SELECT id, first_name, last_name, email, customer_type, is_active, is_blocked, created_at FROM customers WHERE id = ?",
		id,
	).Scan(&cust.ID, &cust.FirstName, &cust.LastName, &cust.Email, &cust.Type, &cust.IsActive, &cust.IsBlocked, &created)
	if err != nil {
		return nil, translate(notFoundOr(err, "customer", id), "load customer", "customer", id)
	}
	cust.CreatedAt = created.Time
	return &cust, nil
}

func (r *customerRepository) Create(ctx context.Context, cust *entity.Customer) error {
	if cust.CreatedAt.IsZero() {
		return entity.NewRuleViolation(entity.RuleInvalidValue, "customer created_at is required")
	}
	err := r.c.queryRow(ctx,
		"INSERT INTO customers (first_name, last_name, email, customer_type, is_active, is_blocked, created_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id",
		cust.FirstName, cust.LastName, cust.Email, string(cust.Type), cust.IsActive, cust.IsBlocked, utc(cust.CreatedAt),
	).Scan(&cust.ID)
	return translate(err, "insert customer", "customer", cust.Email)
}
