// Package discount picks the most favorable discount for catalog products.
package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// Clock returns the evaluation time.
type Clock func() time.Time

// Result is the outcome of evaluating all policies for one product.
type Result struct {
	Policy string
	Amount entity.Money
}

// Line is a product together with the ordered quantity.
type Line struct {
	Product  *entity.Product
	Quantity int
}

// Engine evaluates a fixed, ordered set of policies. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	policies []Policy
	now      Clock
}

func NewEngine(now Clock, policies ...Policy) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{policies: policies, now: now}
}

// Policies lists the registered policy names in evaluation order.
func (e *Engine) Policies() []string {
	names := make([]string, 0, len(e.policies))
	for _, p := range e.policies {
		names = append(names, p.Name())
	}
	return names
}

// CalculateBestDiscount returns the largest per-unit discount among eligible policies.
// Ties go to the policy registered first. With no eligible policy the amount is zero.
func (e *Engine) CalculateBestDiscount(p *entity.Product) Result {
	return e.bestAt(p, e.now())
}

func (e *Engine) bestAt(p *entity.Product, at time.Time) Result {
	best := Result{Amount: entity.ZeroMoney(p.Price.Currency())}
	for _, policy := range e.policies {
		if !policy.IsEligible(p, at) {
			continue
		}
		amount := policy.CalculateDiscount(p)
		if amount.Currency() != p.Price.Currency() {
			continue
		}
		if amount.GreaterThan(best.Amount) {
			best = Result{Policy: policy.Name(), Amount: amount}
		}
	}
	return best
}

// CalculateTotalDiscountForOrder sums best-per-unit × quantity over lines. The clock is
// read once so every line is judged at the same instant. The result is not capped.
func (e *Engine) CalculateTotalDiscountForOrder(currency string, lines []Line) (entity.Money, error) {
	total, err := entity.NewMoney(decimal.Zero, currency)
	if err != nil {
		return entity.Money{}, err
	}
	at := e.now()
	for _, line := range lines {
		best := e.bestAt(line.Product, at)
		total, err = total.Add(best.Amount.Multiply(line.Quantity))
		if err != nil {
			return entity.Money{}, err
		}
	}
	return total, nil
}
