package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/metrics"
	"github.com/egannguyen/ecommerce-orders/internal/service"
)

// Handler exposes the order workflow over HTTP.
type Handler struct {
	commands service.Commands
	queries  service.Queries
	currency string
	logger   *zap.Logger
	metrics  *metrics.Server
}

func NewHandler(commands service.Commands, queries service.Queries, currency string, logger *zap.Logger, m *metrics.Server) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		commands: commands,
		queries:  queries,
		currency: currency,
		logger:   logger,
		metrics:  m,
	}
}

// Register adds the middleware and every operation to api.
func (h *Handler) Register(api huma.API) {
	api.UseMiddleware(h.observe)

	huma.Register(api, huma.Operation{
		OperationID:   "create-order",
		Summary:       "Place an order",
		Description:   "Validates stock, reserves it and stores the order in one transaction.",
		Method:        http.MethodPost,
		Path:          "/api/orders",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Orders"},
	}, h.CreateOrder)

	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Summary:     "List recent orders",
		Method:      http.MethodGet,
		Path:        "/api/orders",
		Tags:        []string{"Orders"},
	}, h.ListOrders)

	huma.Register(api, huma.Operation{
		OperationID: "get-order",
		Summary:     "Get an order",
		Method:      http.MethodGet,
		Path:        "/api/orders/{id}",
		Tags:        []string{"Orders"},
	}, h.GetOrder)

	huma.Register(api, huma.Operation{
		OperationID: "get-order-by-number",
		Summary:     "Get an order by its order number",
		Method:      http.MethodGet,
		Path:        "/api/orders/by-number/{number}",
		Tags:        []string{"Orders"},
	}, h.GetOrderByNumber)

	huma.Register(api, huma.Operation{
		OperationID: "change-order-status",
		Summary:     "Move an order to another status",
		Method:      http.MethodPatch,
		Path:        "/api/orders/{id}/status",
		Tags:        []string{"Orders"},
	}, h.ChangeStatus)

	huma.Register(api, huma.Operation{
		OperationID: "ship-order",
		Summary:     "Ship an order",
		Method:      http.MethodPost,
		Path:        "/api/orders/{id}/ship",
		Tags:        []string{"Orders"},
	}, h.ShipOrder)

	huma.Register(api, huma.Operation{
		OperationID: "cancel-order",
		Summary:     "Cancel an order and return its stock",
		Method:      http.MethodPost,
		Path:        "/api/orders/{id}/cancel",
		Tags:        []string{"Orders"},
	}, h.CancelOrder)

	huma.Register(api, huma.Operation{
		OperationID: "refund-order",
		Summary:     "Refund a delivered order",
		Method:      http.MethodPost,
		Path:        "/api/orders/{id}/refund",
		Tags:        []string{"Orders"},
	}, h.RefundOrder)

	huma.Register(api, huma.Operation{
		OperationID: "list-products",
		Summary:     "List the catalog",
		Method:      http.MethodGet,
		Path:        "/api/products",
		Tags:        []string{"Products"},
	}, h.ListProducts)

	huma.Register(api, huma.Operation{
		OperationID: "list-low-stock-products",
		Summary:     "List products running low",
		Method:      http.MethodGet,
		Path:        "/api/products/low-stock",
		Tags:        []string{"Products"},
	}, h.ListLowStock)

	huma.Register(api, huma.Operation{
		OperationID: "get-product",
		Summary:     "Get a product",
		Method:      http.MethodGet,
		Path:        "/api/products/{id}",
		Tags:        []string{"Products"},
	}, h.GetProduct)

	huma.Register(api, huma.Operation{
		OperationID: "restock-product",
		Summary:     "Add stock to a product",
		Method:      http.MethodPost,
		Path:        "/api/products/{id}/restock",
		Tags:        []string{"Products"},
	}, h.Restock)
}

func (h *Handler) observe(ctx huma.Context, next func(huma.Context)) {
	started := time.Now()
	next(ctx)
	op := ctx.Operation().OperationID
	h.metrics.Observe(op, ctx.Status(), started)
	h.logger.Debug("HTTP request",
		zap.String("operation", op),
		zap.Int("status", ctx.Status()),
		zap.Duration("duration", time.Since(started)),
	)
}

// --- Orders ---

type AddressBody struct {
	Street     string `json:"street" minLength:"1"`
	City       string `json:"city" minLength:"1"`
	State      string `json:"state" minLength:"1"`
	PostalCode string `json:"postal_code" minLength:"1"`
	Country    string `json:"country" minLength:"1"`
	District   string `json:"district,omitempty" required:"false"`
	Building   string `json:"building,omitempty" required:"false"`
	Unit       string `json:"unit,omitempty" required:"false"`
}

type OrderLineBody struct {
	ProductID int64  `json:"product_id" minimum:"1"`
	Quantity  int    `json:"quantity" minimum:"1"`
	UnitPrice string `json:"unit_price" doc:"Price per unit the customer agreed to, as a decimal string" example:"19.99"`
}

type CreateOrderRequest struct {
	IdempotencyKey string `header:"Idempotency-Key" required:"false" maxLength:"200" doc:"Retries with the same key return the first order"`
	Body           struct {
		CustomerID      int64           `json:"customer_id" minimum:"1"`
		ShippingAddress AddressBody     `json:"shipping_address"`
		BillingAddress  AddressBody     `json:"billing_address"`
		PaymentMethod   string          `json:"payment_method" enum:"credit_card,bank_transfer,cash_on_delivery,wallet"`
		ShippingMethod  string          `json:"shipping_method" enum:"standard,premium,express"`
		Notes           string          `json:"notes,omitempty" required:"false" maxLength:"1000"`
		Items           []OrderLineBody `json:"items" minItems:"1"`
	}
}

type OrderIDRequest struct {
	ID int64 `path:"id" minimum:"1"`
}

type OrderNumberRequest struct {
	Number string `path:"number" example:"ORD-20240603-9F86D081"`
}

type ListOrdersRequest struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500"`
}

type ChangeStatusRequest struct {
	ID   int64 `path:"id" minimum:"1"`
	Body struct {
		Status string `json:"status" enum:"pending,confirmed,processing,shipped,delivered,cancelled,refunded,returned"`
	}
}

type ShipOrderRequest struct {
	ID   int64 `path:"id" minimum:"1"`
	Body struct {
		TrackingNumber string `json:"tracking_number" minLength:"1"`
	}
}

type CancelOrderRequest struct {
	ID   int64 `path:"id" minimum:"1"`
	Body *struct {
		Reason string `json:"reason,omitempty" required:"false" maxLength:"500"`
	}
}

type OrderResponse struct {
	Body OrderBody
}

type OrderListResponse struct {
	Body []OrderBody
}

func (h *Handler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	shipping, err := toAddress(req.Body.ShippingAddress)
	if err != nil {
		return nil, SchemaError(err)
	}
	billing, err := toAddress(req.Body.BillingAddress)
	if err != nil {
		return nil, SchemaError(err)
	}
	lines := make([]service.OrderLine, 0, len(req.Body.Items))
	for _, it := range req.Body.Items {
		amount, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("unit_price must be a decimal number", err)
		}
		price, err := entity.NewMoney(amount, h.currency)
		if err != nil {
			return nil, SchemaError(err)
		}
		lines = append(lines, service.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: price})
	}

	order, err := h.commands.CreateOrder(ctx, service.CreateOrderCommand{
		CustomerID:      req.Body.CustomerID,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		PaymentMethod:   entity.PaymentMethod(req.Body.PaymentMethod),
		ShippingMethod:  entity.ShippingMethod(req.Body.ShippingMethod),
		Notes:           req.Body.Notes,
		Lines:           lines,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		return nil, SchemaError(err)
	}
	return &OrderResponse{Body: toOrderBody(order)}, nil
}

func (h *Handler) ListOrders(ctx context.Context, req *ListOrdersRequest) (*OrderListResponse, error) {
	orders, err := h.queries.RecentOrders(ctx, req.Limit)
	if err != nil {
		return nil, SchemaError(err)
	}
	out := make([]OrderBody, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderBody(o))
	}
	return &OrderListResponse{Body: out}, nil
}

func (h *Handler) GetOrder(ctx context.Context, req *OrderIDRequest) (*OrderResponse, error) {
	return orderResponse(h.queries.GetOrder(ctx, req.ID))
}

func (h *Handler) GetOrderByNumber(ctx context.Context, req *OrderNumberRequest) (*OrderResponse, error) {
	return orderResponse(h.queries.GetOrderByNumber(ctx, req.Number))
}

func (h *Handler) ChangeStatus(ctx context.Context, req *ChangeStatusRequest) (*OrderResponse, error) {
	return orderResponse(h.commands.ChangeStatus(ctx, service.ChangeStatusCommand{
		OrderID: req.ID,
		Status:  entity.OrderStatus(req.Body.Status),
	}))
}

func (h *Handler) ShipOrder(ctx context.Context, req *ShipOrderRequest) (*OrderResponse, error) {
	return orderResponse(h.commands.ShipOrder(ctx, service.ShipOrderCommand{
		OrderID:        req.ID,
		TrackingNumber: req.Body.TrackingNumber,
	}))
}

func (h *Handler) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*OrderResponse, error) {
	cmd := service.CancelOrderCommand{OrderID: req.ID}
	if req.Body != nil {
		cmd.Reason = req.Body.Reason
	}
	return orderResponse(h.commands.CancelOrder(ctx, cmd))
}

func (h *Handler) RefundOrder(ctx context.Context, req *OrderIDRequest) (*OrderResponse, error) {
	return orderResponse(h.commands.RefundOrder(ctx, service.RefundOrderCommand{OrderID: req.ID}))
}

func orderResponse(o *entity.Order, err error) (*OrderResponse, error) {
	if err != nil {
		return nil, SchemaError(err)
	}
	return &OrderResponse{Body: toOrderBody(o)}, nil
}

// --- Products ---

type ProductIDRequest struct {
	ID int64 `path:"id" minimum:"1"`
}

type RestockRequest struct {
	ID   int64 `path:"id" minimum:"1"`
	Body struct {
		Quantity int `json:"quantity" minimum:"1"`
	}
}

type ProductResponse struct {
	Body ProductBody
}

type ProductListResponse struct {
	Body []ProductBody
}

func (h *Handler) ListProducts(ctx context.Context, _ *struct{}) (*ProductListResponse, error) {
	return productList(h.queries.Products(ctx))
}

func (h *Handler) ListLowStock(ctx context.Context, _ *struct{}) (*ProductListResponse, error) {
	return productList(h.queries.LowStock(ctx))
}

func (h *Handler) GetProduct(ctx context.Context, req *ProductIDRequest) (*ProductResponse, error) {
	p, err := h.queries.Product(ctx, req.ID)
	if err != nil {
		return nil, SchemaError(err)
	}
	return &ProductResponse{Body: toProductBody(p)}, nil
}

func (h *Handler) Restock(ctx context.Context, req *RestockRequest) (*ProductResponse, error) {
	p, err := h.commands.Restock(ctx, service.RestockCommand{ProductID: req.ID, Quantity: req.Body.Quantity})
	if err != nil {
		return nil, SchemaError(err)
	}
	return &ProductResponse{Body: toProductBody(p)}, nil
}

func productList(products []*entity.Product, err error) (*ProductListResponse, error) {
	if err != nil {
		return nil, SchemaError(err)
	}
	out := make([]ProductBody, 0, len(products))
	for _, p := range products {
		out = append(out, toProductBody(p))
	}
	return &ProductListResponse{Body: out}, nil
}

// --- Error Handling ---

// SchemaError maps workflow errors to HTTP problems. Rejections that depend on current
// state (stock, status, concurrent writers) are conflicts; rule violations on the
// request itself are unprocessable.
func SchemaError(err error) error {
	if err == nil {
		return nil
	}
	de, ok := entity.AsDomainError(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return huma.Error503ServiceUnavailable("request cancelled", err)
		}
		return huma.Error500InternalServerError("internal server error")
	}
	switch de.Kind {
	case entity.KindNotFound:
		return huma.Error404NotFound(de.Error())
	case entity.KindInsufficientStock:
		return huma.Error409Conflict(de.Error(), &huma.ErrorDetail{
			Location: "body.items",
			Message:  "only the available quantity can be ordered",
			Value:    map[string]any{"product_id": de.ProductID, "requested": de.Requested, "available": de.Available},
		})
	case entity.KindInvalidStatusTransition, entity.KindConcurrencyConflict:
		return huma.Error409Conflict(de.Error())
	case entity.KindBusinessRule:
		return huma.Error422UnprocessableEntity(de.Error(), &huma.ErrorDetail{Location: "body", Message: de.Rule})
	default:
		return huma.Error500InternalServerError("internal server error")
	}
}
