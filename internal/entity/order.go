package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays; processing happens outside this service.
type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentWallet         PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentBankTransfer, PaymentCashOnDelivery, PaymentWallet:
		return true
	}
	return false
}

// ShippingMethod selects the carrier tier.
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingPremium  ShippingMethod = "premium"
	ShippingExpress  ShippingMethod = "express"
)

func (m ShippingMethod) Valid() bool {
	switch m {
	case ShippingStandard, ShippingPremium, ShippingExpress:
		return true
	}
	return false
}

// MaxDiscountRatio caps the order discount relative to its item total.
var MaxDiscountRatio = decimal.RequireFromString("0.30")

const maxNotesLength = 1000

// OrderItem is a line of an order. It is owned by the order and never shared.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice Money
}

// TotalPrice is UnitPrice × Quantity.
func (i OrderItem) TotalPrice() Money {
	return i.UnitPrice.Multiply(i.Quantity)
}

// NewOrderParams are the inputs for starting an order.
type NewOrderParams struct {
	CustomerID      int64
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   PaymentMethod
	ShippingMethod  ShippingMethod
	Currency        string
	Notes           string
	CreatedAt       time.Time
}

// Order is the aggregate root for a customer order. While it is being built (before
// Place) items can be added; afterwards only guarded operations change it.
type Order struct {
	AggregateBase
	OrderNumber     OrderNumber
	CustomerID      int64
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   PaymentMethod
	ShippingMethod  ShippingMethod
	Currency        string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	status            OrderStatus
	items             []OrderItem
	shippingCost      Money
	taxAmount         Money
	discountAmount    Money
	notes             string
	trackingNumber    string
	estimatedDelivery *time.Time
	shippedAt         *time.Time
	deliveredAt       *time.Time
	cancelledAt       *time.Time
	placed            bool
}

// NewOrder starts a Pending order with no items.
func NewOrder(params NewOrderParams) (*Order, error) {
	if params.CustomerID <= 0 {
		return nil, NewRuleViolation(RuleInvalidValue, "customer id is required")
	}
	if params.ShippingAddress.IsZero() || params.BillingAddress.IsZero() {
		return nil, NewRuleViolation(RuleInvalidValue, "shipping and billing addresses are required")
	}
	if !params.PaymentMethod.Valid() {
		return nil, NewRuleViolation(RuleInvalidValue, "unknown payment method %q", params.PaymentMethod)
	}
	if !params.ShippingMethod.Valid() {
		return nil, NewRuleViolation(RuleInvalidValue, "unknown shipping method %q", params.ShippingMethod)
	}
	zero, err := NewMoney(decimal.Zero, params.Currency)
	if err != nil {
		return nil, err
	}
	if len(params.Notes) > maxNotesLength {
		return nil, NewRuleViolation(RuleInvalidValue, "notes exceed %d characters", maxNotesLength)
	}

	return &Order{
		OrderNumber:     NewOrderNumber(params.CreatedAt),
		CustomerID:      params.CustomerID,
		ShippingAddress: params.ShippingAddress,
		BillingAddress:  params.BillingAddress,
		PaymentMethod:   params.PaymentMethod,
		ShippingMethod:  params.ShippingMethod,
		Currency:        zero.Currency(),
		CreatedAt:       params.CreatedAt,
		UpdatedAt:       params.CreatedAt,
		status:          OrderPending,
		shippingCost:    zero,
		taxAmount:       zero,
		discountAmount:  zero,
		notes:           strings.TrimSpace(params.Notes),
	}, nil
}

func (o *Order) Status() OrderStatus     { return o.status }
func (o *Order) ShippingCost() Money     { return o.shippingCost }
func (o *Order) TaxAmount() Money        { return o.taxAmount }
func (o *Order) DiscountAmount() Money   { return o.discountAmount }
func (o *Order) Notes() string           { return o.notes }
func (o *Order) TrackingNumber() string  { return o.trackingNumber }
func (o *Order) IsPlaced() bool          { return o.placed }
func (o *Order) ShippedAt() *time.Time   { return o.shippedAt }
func (o *Order) DeliveredAt() *time.Time { return o.deliveredAt }
func (o *Order) CancelledAt() *time.Time { return o.cancelledAt }

func (o *Order) EstimatedDeliveryDate() *time.Time { return o.estimatedDelivery }

// Items returns a copy of the order lines.
func (o *Order) Items() []OrderItem {
	out := make([]OrderItem, len(o.items))
	copy(out, o.items)
	return out
}

// AssignIdentity records the ids storage gave the order and its items, in item order.
func (o *Order) AssignIdentity(id int64, itemIDs []int64) {
	o.ID = id
	for i := range o.items {
		o.items[i].OrderID = id
		if i < len(itemIDs) {
			o.items[i].ID = itemIDs[i]
		}
	}
}

func (o *Order) ensureBuilding() error {
	if o.placed || o.status != OrderPending {
		return NewRuleViolation(RuleOrderSealed, "order %s can no longer be modified", o.OrderNumber)
	}
	return nil
}

// AddItem adds a line, or adds qty to the existing line for the same product.
func (o *Order) AddItem(productID int64, qty int, unitPrice Money) error {
	if err := o.ensureBuilding(); err != nil {
		return err
	}
	if productID <= 0 {
		return NewRuleViolation(RuleInvalidValue, "product id is required")
	}
	if qty <= 0 {
		return NewRuleViolation(RuleInvalidQuantity, "quantity for product %d must be positive, got %d", productID, qty)
	}
	if unitPrice.Currency() != o.Currency {
		return NewRuleViolation(RuleCurrencyMismatch, "unit price currency %s does not match order currency %s", unitPrice.Currency(), o.Currency)
	}
	if unitPrice.IsZero() {
		return NewRuleViolation(RuleInvalidPrice, "unit price for product %d must be positive", productID)
	}

	for i := range o.items {
		if o.items[i].ProductID != productID {
			continue
		}
		if !o.items[i].UnitPrice.Equal(unitPrice) {
			return NewRuleViolation(RuleConflictingPrice, "product %d requested at both %s and %s", productID, o.items[i].UnitPrice, unitPrice)
		}
		o.items[i].Quantity += qty
		return nil
	}
	o.items = append(o.items, OrderItem{ProductID: productID, Quantity: qty, UnitPrice: unitPrice})
	return nil
}

// TotalAmount is the sum of item totals.
func (o *Order) TotalAmount() Money {
	sum := decimal.Zero
	for _, item := range o.items {
		sum = sum.Add(item.TotalPrice().Amount())
	}
	return Money{amount: sum, currency: o.Currency}
}

// FinalAmount is total + shipping + tax − discount.
func (o *Order) FinalAmount() Money {
	amount := o.TotalAmount().Amount().
		Add(o.shippingCost.Amount()).
		Add(o.taxAmount.Amount()).
		Sub(o.discountAmount.Amount())
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return Money{amount: amount, currency: o.Currency}
}

func (o *Order) checkCurrency(m Money) error {
	if m.Currency() != o.Currency {
		return NewRuleViolation(RuleCurrencyMismatch, "amount currency %s does not match order currency %s", m.Currency(), o.Currency)
	}
	return nil
}

func (o *Order) SetShippingCost(cost Money) error {
	if err := o.ensureBuilding(); err != nil {
		return err
	}
	if err := o.checkCurrency(cost); err != nil {
		return err
	}
	o.shippingCost = cost
	return nil
}

func (o *Order) SetTaxAmount(tax Money) error {
	if err := o.ensureBuilding(); err != nil {
		return err
	}
	if err := o.checkCurrency(tax); err != nil {
		return err
	}
	o.taxAmount = tax
	return nil
}

// MaxDiscount is the largest discount the order accepts.
func (o *Order) MaxDiscount() Money {
	return Money{amount: o.TotalAmount().Amount().Mul(MaxDiscountRatio), currency: o.Currency}
}

// ApplyDiscount sets the discount. A value above MaxDiscount is rejected and the
// current discount is kept.
func (o *Order) ApplyDiscount(discount Money) error {
	if err := o.ensureBuilding(); err != nil {
		return err
	}
	if err := o.checkCurrency(discount); err != nil {
		return err
	}
	if limit := o.MaxDiscount(); discount.GreaterThan(limit) {
		return NewRuleViolation(RuleDiscountCap, "discount %s exceeds the maximum of %s for order %s", discount, limit, o.OrderNumber)
	}
	o.discountAmount = discount
	return nil
}

func (o *Order) SetEstimatedDeliveryDate(at time.Time) {
	o.estimatedDelivery = &at
}

// UpdateNotes replaces the free-text notes. Terminal orders are frozen.
func (o *Order) UpdateNotes(notes string, at time.Time) error {
	if o.status.IsTerminal() {
		return NewRuleViolation(RuleOrderSealed, "order %s is %s", o.OrderNumber, o.status)
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return NewRuleViolation(RuleInvalidValue, "notes exceed %d characters", maxNotesLength)
	}
	o.notes = notes
	o.UpdatedAt = at
	return nil
}

// Place seals the item list and records OrderCreated. It is called once the order has
// been assigned its id.
func (o *Order) Place(at time.Time) error {
	if err := o.ensureBuilding(); err != nil {
		return err
	}
	if len(o.items) == 0 {
		return NewRuleViolation(RuleEmptyOrder, "order must have at least one item")
	}
	o.placed = true
	o.record(OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		ItemCount:   len(o.items),
		TotalAmount: o.TotalAmount().Amount(),
		FinalAmount: o.FinalAmount().Amount(),
		Currency:    o.Currency,
		CreatedAt:   at,
	})
	return nil
}

// ChangeStatus moves the order along the lifecycle. Rejected moves leave it unchanged.
func (o *Order) ChangeStatus(target OrderStatus, at time.Time) error {
	if !CanTransition(o.status, target) {
		return NewInvalidTransitionError(o.ID, o.status, target)
	}
	old := o.status
	o.status = target
	o.UpdatedAt = at
	switch target {
	case OrderShipped:
		o.shippedAt = &at
	case OrderDelivered:
		o.deliveredAt = &at
	case OrderCancelled:
		o.cancelledAt = &at
	}
	o.record(OrderStatusChanged{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		OldStatus:   old,
		NewStatus:   target,
		ChangedAt:   at,
	})
	return nil
}

// Ship moves a Processing order to Shipped with a carrier tracking number.
func (o *Order) Ship(trackingNumber string, at time.Time) error {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return NewRuleViolation(RuleMissingTracking, "tracking number is required to ship order %s", o.OrderNumber)
	}
	if err := o.ChangeStatus(OrderShipped, at); err != nil {
		return err
	}
	o.trackingNumber = trackingNumber
	return nil
}

// OrderItemState is the flat form of an OrderItem.
type OrderItemState struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderState is the flat form of an Order used by repositories and API responses.
type OrderState struct {
	ID                    int64            `json:"id"`
	Version               int64            `json:"version"`
	OrderNumber           OrderNumber      `json:"order_number"`
	CustomerID            int64            `json:"customer_id"`
	Status                OrderStatus      `json:"status"`
	Items                 []OrderItemState `json:"items"`
	ShippingAddress       Address          `json:"shipping_address"`
	BillingAddress        Address          `json:"billing_address"`
	PaymentMethod         PaymentMethod    `json:"payment_method"`
	ShippingMethod        ShippingMethod   `json:"shipping_method"`
	Currency              string           `json:"currency"`
	TotalAmount           decimal.Decimal  `json:"total_amount"`
	ShippingCost          decimal.Decimal  `json:"shipping_cost"`
	TaxAmount             decimal.Decimal  `json:"tax_amount"`
	DiscountAmount        decimal.Decimal  `json:"discount_amount"`
	FinalAmount           decimal.Decimal  `json:"final_amount"`
	Notes                 string           `json:"notes,omitempty"`
	TrackingNumber        string           `json:"tracking_number,omitempty"`
	EstimatedDeliveryDate *time.Time       `json:"estimated_delivery_date,omitempty"`
	ShippedAt             *time.Time       `json:"shipped_at,omitempty"`
	DeliveredAt           *time.Time       `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// State flattens the order.
func (o *Order) State() OrderState {
	items := make([]OrderItemState, 0, len(o.items))
	for _, it := range o.items {
		items = append(items, OrderItemState{
			ID:         it.ID,
			OrderID:    it.OrderID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.Amount(),
			TotalPrice: it.TotalPrice().Amount(),
		})
	}
	return OrderState{
		ID:                    o.ID,
		Version:               o.Version,
		OrderNumber:           o.OrderNumber,
		CustomerID:            o.CustomerID,
		Status:                o.status,
		Items:                 items,
		ShippingAddress:       o.ShippingAddress,
		BillingAddress:        o.BillingAddress,
		PaymentMethod:         o.PaymentMethod,
		ShippingMethod:        o.ShippingMethod,
		Currency:              o.Currency,
		TotalAmount:           o.TotalAmount().Amount(),
		ShippingCost:          o.shippingCost.Amount(),
		TaxAmount:             o.taxAmount.Amount(),
		DiscountAmount:        o.discountAmount.Amount(),
		FinalAmount:           o.FinalAmount().Amount(),
		Notes:                 o.notes,
		TrackingNumber:        o.trackingNumber,
		EstimatedDeliveryDate: o.estimatedDelivery,
		ShippedAt:             o.shippedAt,
		DeliveredAt:           o.deliveredAt,
		CancelledAt:           o.cancelledAt,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

// RestoreOrder rebuilds a persisted order. The result is already placed.
func RestoreOrder(s OrderState) (*Order, error) {
	if _, err := ParseOrderStatus(string(s.Status)); err != nil {
		return nil, err
	}
	money := func(d decimal.Decimal) (Money, error) { return NewMoney(d, s.Currency) }

	o := &Order{
		OrderNumber:       s.OrderNumber,
		CustomerID:        s.CustomerID,
		ShippingAddress:   s.ShippingAddress,
		BillingAddress:    s.BillingAddress,
		PaymentMethod:     s.PaymentMethod,
		ShippingMethod:    s.ShippingMethod,
		Currency:          s.Currency,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		status:            s.Status,
		notes:             s.Notes,
		trackingNumber:    s.TrackingNumber,
		estimatedDelivery: s.EstimatedDeliveryDate,
		shippedAt:         s.ShippedAt,
		deliveredAt:       s.DeliveredAt,
		cancelledAt:       s.CancelledAt,
		placed:            true,
	}
	o.ID = s.ID
	o.Version = s.Version

	var err error
	if o.shippingCost, err = money(s.ShippingCost); err != nil {
		return nil, err
	}
	if o.taxAmount, err = money(s.TaxAmount); err != nil {
		return nil, err
	}
	if o.discountAmount, err = money(s.DiscountAmount); err != nil {
		return nil, err
	}
	for _, it := range s.Items {
		price, err := money(it.UnitPrice)
		if err != nil {
			return nil, err
		}
		o.items = append(o.items, OrderItem{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: price,
		})
	}
	return o, nil
}
