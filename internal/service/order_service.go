package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/discount"
	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/metrics"
	"github.com/egannguyen/ecommerce-orders/internal/repository"
)

const tracerName = "github.com/egannguyen/ecommerce-orders/internal/service"

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

// Options configures the workflow services.
type Options struct {
	Logger  *zap.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Workflow
	Now     Clock
}

// Option sets one service option.
type Option func(opt *Options) error

func WithLogger(logger *zap.Logger) Option {
	return func(opt *Options) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		opt.Logger = logger
		return nil
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(opt *Options) error {
		opt.Tracer = tracer
		return nil
	}
}

func WithMetrics(m *metrics.Workflow) Option {
	return func(opt *Options) error {
		opt.Metrics = m
		return nil
	}
}

// WithClock replaces time.Now as the source of workflow timestamps.
func WithClock(now Clock) Option {
	return func(opt *Options) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		opt.Now = now
		return nil
	}
}

func buildOptions(opts []Option) (Options, error) {
	o := Options{
		Logger: zap.NewNop(),
		Tracer: otel.Tracer(tracerName),
		Now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return Options{}, err
		}
	}
	return o, nil
}

// OrderLine is one requested product line with the price the customer was shown.
type OrderLine struct {
	ProductID int64
	Quantity  int
	UnitPrice entity.Money
}

// CreateOrderCommand carries everything needed to place an order.
type CreateOrderCommand struct {
	CustomerID      int64
	ShippingAddress entity.Address
	BillingAddress  entity.Address
	PaymentMethod   entity.PaymentMethod
	ShippingMethod  entity.ShippingMethod
	Notes           string
	Lines           []OrderLine
	// IdempotencyKey makes retries of the same request return the first order
	// instead of placing a second one.
	IdempotencyKey  string
}

// OrderService is the only entry point that creates orders or changes their
// stock-affecting state. Every operation runs in one transaction.
type OrderService struct {
	uow       repository.UnitOfWork
	rules     *OrderRules
	discounts *discount.Engine
	currency  string

	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *metrics.Workflow
	now     Clock
}

// NewOrderService wires the workflow. discounts may be nil, in which case no
// discount is applied.
func NewOrderService(uow repository.UnitOfWork, rules *OrderRules, discounts *discount.Engine, opts ...Option) (*OrderService, error) {
	if uow == nil || rules == nil {
		return nil, fmt.Errorf("unit of work and order rules are required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &OrderService{
		uow:       uow,
		rules:     rules,
		discounts: discounts,
		currency:  rules.cfg.Currency,
		logger:    o.Logger,
		tracer:    o.Tracer,
		metrics:   o.Metrics,
		now:       o.Now,
	}, nil
}

// CreateOrder validates the request, reserves stock and stores the order. Nothing is
// written unless every step succeeds.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*entity.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.create", trace.WithAttributes(
		attribute.Int64("customer.id", cmd.CustomerID),
		attribute.Int("order.lines", len(cmd.Lines)),
	))
	defer span.End()
	started := time.Now()

	s.logger.Info("Service: Placing order", zap.Int64("customer_id", cmd.CustomerID), zap.Int("lines", len(cmd.Lines)))

	var (
		order    *entity.Order
		reserved int
		replayed bool
	)
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		if cmd.IdempotencyKey != "" {
			existing, err := tx.Orders().FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
			if err == nil {
				order, replayed = existing, true
				return nil
			}
			if !errors.Is(err, entity.ErrNotFound) {
				return err
			}
		}

		var err error
		order, reserved, err = s.placeOrder(ctx, tx, cmd)
		if err != nil {
			return err
		}
		if cmd.IdempotencyKey != "" {
			return tx.Orders().SaveIdempotencyKey(ctx, cmd.IdempotencyKey, order.ID, order.CreatedAt)
		}
		return nil
	})
	if err != nil && cmd.IdempotencyKey != "" && errors.Is(err, entity.ErrConcurrencyConflict) {
		// a concurrent request with the same key won; hand back its order
		if existing, lookupErr := s.findByIdempotencyKey(ctx, cmd.IdempotencyKey); lookupErr == nil {
			order, replayed, err = existing, true, nil
		}
	}
	kind := endSpan(span, err)
	s.metrics.Observe("order.create", kind, started)
	if err != nil {
		s.metrics.OrderRejected(kind)
		s.logger.Warn("Service: Order rejected", zap.Int64("customer_id", cmd.CustomerID), zap.String("kind", kind), zap.Error(err))
		return nil, err
	}

	if replayed {
		span.SetAttributes(attribute.Bool("order.replayed", true))
		s.logger.Info("Service: Replaying order for idempotency key",
			zap.Int64("order_id", order.ID),
			zap.String("order_number", order.OrderNumber.String()),
		)
		return order, nil
	}

	s.metrics.OrderCreated()
	s.metrics.StockMoved(entity.StockReasonOrderPlaced, reserved)
	span.SetAttributes(attribute.Int64("order.id", order.ID), attribute.String("order.number", order.OrderNumber.String()))
	s.logger.Info("Service: Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber.String()),
		zap.String("final_amount", order.FinalAmount().String()),
	)
	return order, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, key string) (*entity.Order, error) {
	var order *entity.Order
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().FindByIdempotencyKey(ctx, key)
		return err
	})
	return order, err
}

func (s *OrderService) placeOrder(ctx context.Context, tx repository.Tx, cmd CreateOrderCommand) (*entity.Order, int, error) {
	now := s.now()

	customer, err := tx.Customers().FindByID(ctx, cmd.CustomerID)
	if err != nil {
		return nil, 0, err
	}

	products := make(map[int64]*entity.Product, len(cmd.Lines))
	lines := make([]ProductLine, 0, len(cmd.Lines))
	for _, l := range cmd.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			p, err = tx.Products().FindByID(ctx, l.ProductID)
			if err != nil {
				return nil, 0, err
			}
			products[l.ProductID] = p
		}
		lines = append(lines, ProductLine{Product: p, Quantity: l.Quantity})
	}
	if err := s.rules.ValidateOrderCreation(customer, lines); err != nil {
		return nil, 0, err
	}
	for _, l := range cmd.Lines {
		if p := products[l.ProductID]; !l.UnitPrice.Equal(p.Price) {
			return nil, 0, entity.NewRuleViolation(entity.RuleConflictingPrice,
				"product %d declared at %s, catalog price is %s", l.ProductID, l.UnitPrice, p.Price)
		}
	}

	order, err := entity.NewOrder(entity.NewOrderParams{
		CustomerID:      customer.ID,
		ShippingAddress: cmd.ShippingAddress,
		BillingAddress:  cmd.BillingAddress,
		PaymentMethod:   cmd.PaymentMethod,
		ShippingMethod:  cmd.ShippingMethod,
		Currency:        s.currency,
		Notes:           cmd.Notes,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, 0, err
	}
	for _, l := range cmd.Lines {
		if err := order.AddItem(l.ProductID, l.Quantity, l.UnitPrice); err != nil {
			return nil, 0, err
		}
	}

	// discounts read the stock as loaded, so price before reserving
	merged := MergeLines(lines)
	if err := s.price(order, customer, merged, now); err != nil {
		return nil, 0, err
	}

	reserved := 0
	for _, l := range merged {
		if err := l.Product.DecreaseStock(l.Quantity, order.OrderNumber, now); err != nil {
			return nil, 0, err
		}
		if err := tx.Products().Update(ctx, l.Product); err != nil {
			return nil, 0, err
		}
		reserved += l.Quantity
	}

	if err := tx.Orders().Create(ctx, order); err != nil {
		return nil, 0, err
	}
	if err := order.Place(now); err != nil {
		return nil, 0, err
	}

	events := order.PullEvents()
	for _, l := range merged {
		events = append(events, l.Product.PullEvents()...)
	}
	if err := tx.Outbox().Append(ctx, events...); err != nil {
		return nil, 0, err
	}
	return order, reserved, nil
}

// price attaches shipping, tax, discount and the delivery estimate.
func (s *OrderService) price(order *entity.Order, customer *entity.Customer, lines []ProductLine, now time.Time) error {
	shipping, err := s.rules.CalculateShippingCost(order.ShippingAddress, lines, order.ShippingMethod)
	if err != nil {
		return err
	}
	if err := order.SetShippingCost(shipping); err != nil {
		return err
	}

	tax, err := s.rules.CalculateTaxAmount(order.TotalAmount(), customer.Type)
	if err != nil {
		return err
	}
	if err := order.SetTaxAmount(tax); err != nil {
		return err
	}

	if s.discounts != nil {
		discountLines := make([]discount.Line, 0, len(lines))
		for _, l := range lines {
			discountLines = append(discountLines, discount.Line{Product: l.Product, Quantity: l.Quantity})
		}
		amount, err := s.discounts.CalculateTotalDiscountForOrder(order.Currency, discountLines)
		if err != nil {
			return err
		}
		if err := order.ApplyDiscount(amount); err != nil {
			return err
		}
	}

	order.SetEstimatedDeliveryDate(s.rules.CalculateEstimatedDeliveryDate(order.ShippingMethod, now))
	return nil
}

// ChangeStatus moves the order to target. Cancellation returns stock and refunds are
// checked against the refund window.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID int64, target entity.OrderStatus) (*entity.Order, error) {
	switch target {
	case entity.OrderCancelled:
		return s.cancel(ctx, orderID, "", true)
	case entity.OrderRefunded:
		return s.refund(ctx, orderID, true)
	}
	return s.transition(ctx, "order.change_status", orderID, func(o *entity.Order, now time.Time) error {
		return o.ChangeStatus(target, now)
	})
}

// ShipOrder moves a Processing order to Shipped with a tracking number.
func (s *OrderService) ShipOrder(ctx context.Context, orderID int64, trackingNumber string) (*entity.Order, error) {
	return s.transition(ctx, "order.ship", orderID, func(o *entity.Order, now time.Time) error {
		return o.Ship(trackingNumber, now)
	})
}

// CancelOrder cancels a Pending or Confirmed order and returns its stock. A non-empty
// reason is appended to the order notes.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64, reason string) (*entity.Order, error) {
	return s.cancel(ctx, orderID, reason, false)
}

// RefundOrder refunds a delivered order inside the refund window. Stock is not
// returned.
func (s *OrderService) RefundOrder(ctx context.Context, orderID int64) (*entity.Order, error) {
	return s.refund(ctx, orderID, false)
}

// transition runs a status change that touches only the order.
func (s *OrderService) transition(ctx context.Context, operation string, orderID int64, change func(o *entity.Order, now time.Time) error) (*entity.Order, error) {
	ctx, span := s.tracer.Start(ctx, operation, trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()
	started := time.Now()

	var (
		order *entity.Order
		from  entity.OrderStatus
	)
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		o, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status()
		if err := change(o, s.now()); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}
		if err := tx.Outbox().Append(ctx, o.PullEvents()...); err != nil {
			return err
		}
		order = o
		return nil
	})
	kind := endSpan(span, err)
	s.metrics.Observe(operation, kind, started)
	if err != nil {
		s.logger.Warn("Service: Status change rejected", zap.Int64("order_id", orderID), zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	s.statusChanged(order, from)
	return order, nil
}

func (s *OrderService) cancel(ctx context.Context, orderID int64, reason string, viaStatus bool) (*entity.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.cancel", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()
	started := time.Now()

	var (
		order    *entity.Order
		from     entity.OrderStatus
		returned int
	)
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		o, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status()
		if viaStatus && !entity.CanTransition(from, entity.OrderCancelled) {
			return entity.NewInvalidTransitionError(o.ID, from, entity.OrderCancelled)
		}
		if !s.rules.CanCancelOrder(o) {
			return entity.NewRuleViolation(entity.RuleCannotCancel, "order %s cannot be cancelled while %s", o.OrderNumber, from)
		}

		now := s.now()
		if reason = strings.TrimSpace(reason); reason != "" {
			if err := o.UpdateNotes(appendNote(o.Notes(), "Cancelled: "+reason), now); err != nil {
				return err
			}
		}
		if err := o.ChangeStatus(entity.OrderCancelled, now); err != nil {
			return err
		}

		events := o.PullEvents()
		for _, item := range o.Items() {
			p, err := tx.Products().FindByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := p.IncreaseStock(item.Quantity, entity.StockReasonOrderCancelled, o.OrderNumber, now); err != nil {
				return err
			}
			if err := tx.Products().Update(ctx, p); err != nil {
				return err
			}
			events = append(events, p.PullEvents()...)
			returned += item.Quantity
		}

		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}
		if err := tx.Outbox().Append(ctx, events...); err != nil {
			return err
		}
		order = o
		return nil
	})
	kind := endSpan(span, err)
	s.metrics.Observe("order.cancel", kind, started)
	if err != nil {
		s.logger.Warn("Service: Cancellation rejected", zap.Int64("order_id", orderID), zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	s.metrics.StockMoved(entity.StockReasonOrderCancelled, returned)
	s.statusChanged(order, from)
	return order, nil
}

func (s *OrderService) refund(ctx context.Context, orderID int64, viaStatus bool) (*entity.Order, error) {
	return s.transition(ctx, "order.refund", orderID, func(o *entity.Order, now time.Time) error {
		if viaStatus && !entity.CanTransition(o.Status(), entity.OrderRefunded) {
			return entity.NewInvalidTransitionError(o.ID, o.Status(), entity.OrderRefunded)
		}
		if !s.rules.CanRefundOrder(o, now) {
			return entity.NewRuleViolation(entity.RuleCannotRefund, "order %s is not refundable", o.OrderNumber)
		}
		return o.ChangeStatus(entity.OrderRefunded, now)
	})
}

func (s *OrderService) statusChanged(o *entity.Order, from entity.OrderStatus) {
	s.metrics.StatusChanged(string(from), string(o.Status()))
	s.logger.Info("Service: Order status changed",
		zap.Int64("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status())),
	)
}

// GetOrder loads one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*entity.Order, error) {
	var order *entity.Order
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, orderID)
		return err
	})
	return order, err
}

// GetOrderByNumber loads an order by its business number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*entity.Order, error) {
	n, err := entity.ParseOrderNumber(number)
	if err != nil {
		return nil, err
	}
	var order *entity.Order
	err = repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().FindByNumber(ctx, n)
		return err
	})
	return order, err
}

// GetRecentOrders returns the latest orders.
func (s *OrderService) GetRecentOrders(ctx context.Context, limit int) ([]*entity.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []*entity.Order
	err := repository.RunInTx(ctx, s.uow, func(tx repository.Tx) error {
		var err error
		orders, err = tx.Orders().FindRecent(ctx, limit)
		return err
	})
	return orders, err
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}

// endSpan records err on span and returns its error kind, or "" on success.
func endSpan(span trace.Span, err error) string {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return ""
	}
	kind := ErrorKind(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
	span.SetAttributes(attribute.String("error.kind", kind))
	return kind
}

// ErrorKind names the domain error kind of err, or "internal" for anything else.
func ErrorKind(err error) string {
	if de, ok := entity.AsDomainError(err); ok {
		return de.Kind.String()
	}
	return "internal"
}
