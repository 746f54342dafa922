package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/metrics"
	"github.com/egannguyen/ecommerce-orders/internal/repository"
)

// InventoryService covers stock changes that do not come from an order.
type InventoryService struct {
	uow repository.UnitOfWork

	lowStockThreshold int
	logger            *zap.Logger
	tracer            trace.Tracer
	metrics           *metrics.Workflow
	now               Clock
}

func NewInventoryService(uow repository.UnitOfWork, lowStockThreshold int, opts ...Option) (*InventoryService, error) {
	if uow == nil {
		return nil, fmt.Errorf("unit of work is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = entity.DefaultLowStockThreshold
	}
	return &InventoryService{
		uow:               uow,
		lowStockThreshold: lowStockThreshold,
		logger:            o.Logger,
		tracer:            o.Tracer,
		metrics:           o.Metrics,
		now:               o.Now,
	}, nil
}

// Restock adds qty units to a product under the same version check as order
// reservations.
func (s *InventoryService) Restock(ctx context.Context, productID int64, qty int) (*entity.Product, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.restock", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("stock.quantity", qty),
	))
	defer span.End()
	started := time.Now()

	var product *entity.Product
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		p, err := tx.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := p.IncreaseStock(qty, entity.StockReasonRestock, "", s.now()); err != nil {
			return err
		}
		if err := tx.Products().Update(ctx, p); err != nil {
			return err
		}
		if err := tx.Outbox().Append(ctx, p.PullEvents()...); err != nil {
			return err
		}
		product = p
		return nil
	})
	kind := endSpan(span, err)
	s.metrics.Observe("inventory.restock", kind, started)
	if err != nil {
		s.logger.Warn("Service: Restock rejected", zap.Int64("product_id", productID), zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	s.metrics.StockMoved(entity.StockReasonRestock, qty)
	s.logger.Info("Service: Product restocked", zap.Int64("product_id", productID), zap.Int("stock", product.StockQuantity()))
	return product, nil
}

// GetProducts returns the whole catalog.
func (s *InventoryService) GetProducts(ctx context.Context) ([]*entity.Product, error) {
	var products []*entity.Product
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		var err error
		products, err = tx.Products().FindAll(ctx)
		return err
	})
	return products, err
}

func (s *InventoryService) GetProduct(ctx context.Context, productID int64) (*entity.Product, error) {
	var product *entity.Product
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		var err error
		product, err = tx.Products().FindByID(ctx, productID)
		return err
	})
	return product, err
}

// LowStock returns products that are in stock but at or under the threshold.
func (s *InventoryService) LowStock(ctx context.Context) ([]*entity.Product, error) {
	products, err := s.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	var low []*entity.Product
	for _, p := range products {
		if p.IsLowStock(s.lowStockThreshold) {
			low = append(low, p)
		}
	}
	return low, nil
}
