// Package seed fills an empty database with a demo catalog and customers.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/repository"
)

type product struct {
	name     string
	sku      string
	price    string
	weight   string
	category int64
	stock    int
}

var catalog = []product{
	{"Wireless Noise-Cancelling Headphones", "HEAD-WNC-001", "349.99", "0.35", 1, 50},
	{"Mechanical Keyboard RGB", "KEYB-RGB-002", "179.99", "1.10", 1, 120},
	{"Ultrawide Curved Monitor 34in", "MON-UW34-003", "699.99", "7.80", 1, 30},
	{"Ergonomic Office Chair", "CHAIR-ERG-004", "549.99", "18.50", 2, 25},
	{"Smart LED Desk Lamp", "LAMP-LED-005", "89.99", "1.20", 3, 200},
	{"Premium Laptop Backpack", "BAG-LAP-006", "129.99", "0.90", 4, 8},
}

var customers = []entity.Customer{
	{FirstName: "Ava", LastName: "Nguyen", Email: "ava@example.com", Type: entity.CustomerIndividual, IsActive: true},
	{FirstName: "Northwind", LastName: "Traders", Email: "orders@northwind.example.com", Type: entity.CustomerBusiness, IsActive: true},
	{FirstName: "Liam", LastName: "Park", Email: "liam@example.com", Type: entity.CustomerIndividual, IsActive: false},
}

// Run seeds products and customers priced in currency. It does nothing when the
// catalog already has products.
func Run(ctx context.Context, uow repository.UnitOfWork, currency string, now time.Time, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	seeded := 0
	err := repository.RunInTx(ctx, uow, func(tx repository.Tx) error {
		existing, err := tx.Products().FindAll(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}

		for _, p := range catalog {
			price, err := decimal.NewFromString(p.price)
			if err != nil {
				return err
			}
			money, err := entity.NewMoney(price, currency)
			if err != nil {
				return err
			}
			prod, err := entity.NewProduct(entity.ProductParams{
				Name:          p.name,
				SKU:           p.sku,
				Price:         money,
				StockQuantity: p.stock,
				CategoryID:    p.category,
				Weight:        decimal.RequireFromString(p.weight),
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return fmt.Errorf("invalid seed product %s: %w", p.sku, err)
			}
			if err := tx.Products().Create(ctx, prod); err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.sku, err)
			}
			seeded++
		}

		for _, c := range customers {
			c.CreatedAt = now
			if err := tx.Customers().Create(ctx, &c); err != nil {
				return fmt.Errorf("failed to seed customer %s: %w", c.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if seeded > 0 {
		logger.Info("Seeded catalog", zap.Int("products", seeded), zap.Int("customers", len(customers)))
	}
	return nil
}
