package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// RulesConfig holds the rates and windows used by OrderRules.
type RulesConfig struct {
	Currency               string
	ShippingBaseFee        decimal.Decimal
	ShippingPerKg          decimal.Decimal
	ShippingCoefficients   map[entity.ShippingMethod]decimal.Decimal
	HomeCountry            string
	InternationalSurcharge decimal.Decimal
	TaxRates               map[entity.CustomerType]decimal.Decimal // percent
	DeliveryDays           map[entity.ShippingMethod]int
	Weekend                []time.Weekday
	RefundWindow           time.Duration
}

// DefaultRulesConfig returns the standard rates for currency.
func DefaultRulesConfig(currency string) RulesConfig {
	return RulesConfig{
		Currency:        currency,
		ShippingBaseFee: decimal.NewFromInt(5),
		ShippingPerKg:   decimal.NewFromInt(1),
		ShippingCoefficients: map[entity.ShippingMethod]decimal.Decimal{
			entity.ShippingStandard: decimal.NewFromInt(1),
			entity.ShippingPremium:  decimal.RequireFromString("1.5"),
			entity.ShippingExpress:  decimal.NewFromInt(2),
		},
		InternationalSurcharge: decimal.Zero,
		TaxRates: map[entity.CustomerType]decimal.Decimal{
			entity.CustomerIndividual: decimal.NewFromInt(9),
			entity.CustomerBusiness:   decimal.NewFromInt(10),
		},
		DeliveryDays: map[entity.ShippingMethod]int{
			entity.ShippingExpress:  1,
			entity.ShippingPremium:  2,
			entity.ShippingStandard: 3,
		},
		Weekend:      []time.Weekday{time.Saturday, time.Sunday},
		RefundWindow: 7 * 24 * time.Hour,
	}
}

// ProductLine is a requested quantity of a loaded product.
type ProductLine struct {
	Product  *entity.Product
	Quantity int
}

// OrderRules holds the business rules that span customers, products and orders.
// All methods are pure.
type OrderRules struct {
	cfg     RulesConfig
	weekend map[time.Weekday]bool
}

func NewOrderRules(cfg RulesConfig) *OrderRules {
	weekend := make(map[time.Weekday]bool, len(cfg.Weekend))
	for _, d := range cfg.Weekend {
		weekend[d] = true
	}
	if len(weekend) == 7 {
		weekend = nil
	}
	return &OrderRules{cfg: cfg, weekend: weekend}
}

// MergeLines folds lines that reference the same product into one, keeping first-seen order.
func MergeLines(lines []ProductLine) []ProductLine {
	merged := make([]ProductLine, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.Product.ID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.Product.ID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// ValidateOrderCreation checks the customer may order and every product can cover the
// requested quantity.
func (r *OrderRules) ValidateOrderCreation(c *entity.Customer, lines []ProductLine) error {
	if len(lines) == 0 {
		return entity.NewRuleViolation(entity.RuleEmptyOrder, "order must have at least one item")
	}
	if c.IsBlocked {
		return entity.NewRuleViolation(entity.RuleCustomerBlocked, "customer %d is blocked", c.ID)
	}
	if !c.IsActive {
		return entity.NewRuleViolation(entity.RuleCustomerInactive, "customer %d is not active", c.ID)
	}
	for _, l := range MergeLines(lines) {
		if l.Quantity <= 0 {
			return entity.NewRuleViolation(entity.RuleInvalidQuantity, "quantity for product %d must be positive, got %d", l.Product.ID, l.Quantity)
		}
		if !l.Product.IsPurchasable() {
			return entity.NewInsufficientStockError(l.Product.ID, l.Product.Name.String(), l.Quantity, 0)
		}
		if l.Quantity > l.Product.StockQuantity() {
			return entity.NewInsufficientStockError(l.Product.ID, l.Product.Name.String(), l.Quantity, l.Product.StockQuantity())
		}
	}
	return nil
}

// CalculateShippingCost is (base fee + total weight × per-kg rate) × method coefficient,
// plus the international surcharge when shipping abroad.
func (r *OrderRules) CalculateShippingCost(to entity.Address, lines []ProductLine, method entity.ShippingMethod) (entity.Money, error) {
	coefficient, ok := r.cfg.ShippingCoefficients[method]
	if !ok {
		return entity.Money{}, entity.NewRuleViolation(entity.RuleInvalidValue, "no shipping rate for method %q", method)
	}
	weight := decimal.Zero
	for _, l := range lines {
		weight = weight.Add(l.Product.Weight.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	cost := r.cfg.ShippingBaseFee.Add(weight.Mul(r.cfg.ShippingPerKg)).Mul(coefficient)
	if r.cfg.HomeCountry != "" && to.Country != r.cfg.HomeCountry {
		cost = cost.Add(r.cfg.InternationalSurcharge)
	}
	return entity.NewMoney(cost.Round(2), r.cfg.Currency)
}

// CalculateTaxAmount applies the customer type's rate to subtotal.
func (r *OrderRules) CalculateTaxAmount(subtotal entity.Money, customerType entity.CustomerType) (entity.Money, error) {
	rate, ok := r.cfg.TaxRates[customerType]
	if !ok {
		return entity.Money{}, entity.NewRuleViolation(entity.RuleInvalidValue, "no tax rate for customer type %q", customerType)
	}
	return subtotal.Percentage(rate), nil
}

// CanCancelOrder reports whether the order has not entered fulfilment yet.
func (r *OrderRules) CanCancelOrder(o *entity.Order) bool {
	s := o.Status()
	return s == entity.OrderPending || s == entity.OrderConfirmed
}

// CanRefundOrder reports whether a delivered order is still inside the refund window.
func (r *OrderRules) CanRefundOrder(o *entity.Order, now time.Time) bool {
	if o.Status() != entity.OrderDelivered || o.DeliveredAt() == nil {
		return false
	}
	return now.Sub(*o.DeliveredAt()) <= r.cfg.RefundWindow
}

// CalculateEstimatedDeliveryDate counts the method's business days forward from from,
// skipping weekend days.
func (r *OrderRules) CalculateEstimatedDeliveryDate(method entity.ShippingMethod, from time.Time) time.Time {
	days, ok := r.cfg.DeliveryDays[method]
	if !ok {
		days = r.cfg.DeliveryDays[entity.ShippingStandard]
	}
	at := from
	for days > 0 {
		at = at.AddDate(0, 0, 1)
		if !r.weekend[at.Weekday()] {
			days--
		}
	}
	return at
}
