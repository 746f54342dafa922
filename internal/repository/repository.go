package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// CustomerRepository handles persistence for Customers.
type CustomerRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Customer, error)
	Create(ctx context.Context, c *entity.Customer) error
}

// ProductRepository handles persistence for Products.
// Update is a compare-and-swap on the product version and bumps it on success.
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Product, error)
	FindAll(ctx context.Context) ([]*entity.Product, error)
	Create(ctx context.Context, p *entity.Product) error
	Update(ctx context.Context, p *entity.Product) error
}

// OrderRepository handles persistence for Orders.
// Create stores the order with its items and assigns ids; Update persists header
// fields (status, notes, tracking, timestamps) under the order version.
// SaveIdempotencyKey fails with a ConcurrencyConflict when key is already taken.
type OrderRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Order, error)
	FindByNumber(ctx context.Context, number entity.OrderNumber) (*entity.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.Order, error)
	FindRecent(ctx context.Context, limit int) ([]*entity.Order, error)
	Create(ctx context.Context, o *entity.Order) error
	Update(ctx context.Context, o *entity.Order) error
	SaveIdempotencyKey(ctx context.Context, key string, orderID int64, at time.Time) error
}

// EventOutbox stores domain events in the same transaction as the state change that
// produced them.
type EventOutbox interface {
	Append(ctx context.Context, events ...entity.Event) error
}

// Tx is one open transaction and the repositories bound to it.
type Tx interface {
	Customers() CustomerRepository
	Products() ProductRepository
	Orders() OrderRepository
	Outbox() EventOutbox
	Commit() error
	Rollback() error
}

// UnitOfWork opens transactions.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// RunInTx runs fn inside a transaction. The transaction is committed only when fn
// returns nil; an error or a panic rolls it back.
func RunInTx(ctx context.Context, uow UnitOfWork, fn func(tx Tx) error) (err error) {
	tx, err := uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	committed = true
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
