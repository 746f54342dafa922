package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

const productColumns = "id, name, sku, price, currency, stock_quantity, status, category_id, brand_id, weight, version, created_at, updated_at"

type productRepository struct {
	c conn
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var (
		id, version, categoryID int64
		name, sku, currency     string
		status                  string
		stock                   int
		price, weight           decimal.Decimal
		brandID                 sql.NullInt64
		created, updated        nullTime
	)
	if err := row.Scan(&id, &name, &sku, &price, &currency, &stock, &status, &categoryID, &brandID, &weight, &version, &created, &updated); err != nil {
		return nil, err
	}

	money, err := entity.NewMoney(price, currency)
	if err != nil {
		return nil, err
	}
	params := entity.ProductParams{
		Name:          name,
		SKU:           sku,
		Price:         money,
		StockQuantity: stock,
		Status:        entity.ProductStatus(status),
		CategoryID:    categoryID,
		Weight:        weight,
		CreatedAt:     created.Time,
		UpdatedAt:     updated.Time,
	}
	if brandID.Valid {
		b := brandID.Int64
		params.BrandID = &b
	}
	p, err := entity.NewProduct(params)
	if err != nil {
		return nil, fmt.Errorf("stored product %d is invalid: %w", id, err)
	}
	p.ID = id
	p.Version = version
	return p, nil
}

func (r *productRepository) FindByID(ctx context.Context, id int64) (*entity.Product, error) {
	p, err := scanProduct(r.c.queryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if err != nil {
		return nil, translate(notFoundOr(err, "product", id), "load product", "product", id)
	}
	return p, nil
}

func (r *productRepository) FindAll(ctx context.Context) ([]*entity.Product, error) {
	rows, err := r.c.query(ctx, "SELECT "+productColumns+" FROM products ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	err := r.c.queryRow(ctx,
		"INSERT INTO products (name, sku, price, currency, stock_quantity, status, category_id, brand_id, weight, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?) RETURNING id",
		p.Name.String(), p.SKU.String(), p.Price.Amount(), p.Price.Currency(), p.StockQuantity(), string(p.Status()),
		p.CategoryID, p.BrandID, p.Weight, utc(p.CreatedAt), utc(p.UpdatedAt),
	).Scan(&p.ID)
	if err != nil {
		return translate(err, "insert product", "product", p.SKU)
	}
	p.Version = 1
	return nil
}

// Update writes the product if nobody else changed it since it was loaded.
func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	res, err := r.c.exec(ctx,
		`UPDATE products
		SET name = ?, price = ?, currency = ?, stock_quantity = ?, status = ?, category_id = ?, brand_id = ?, weight = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.Name.String(), p.Price.Amount(), p.Price.Currency(), p.StockQuantity(), string(p.Status()), p.CategoryID, p.BrandID, p.Weight,
		utc(p.UpdatedAt), p.ID, p.Version,
	)
	if err != nil {
		return translate(err, "update product", "product", p.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return entity.NewConcurrencyConflict("product", p.ID)
	}
	p.Version++
	return nil
}
