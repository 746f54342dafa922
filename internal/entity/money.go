package entity

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var hundred = decimal.NewFromInt(100)

// Money is an immutable non-negative amount in a single currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney validates and builds a Money value.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyPattern.MatchString(currency) {
		return Money{}, NewRuleViolation(RuleInvalidValue, "invalid currency code %q", currency)
	}
	if amount.IsNegative() {
		return Money{}, NewRuleViolation(RuleInvalidValue, "money amount must not be negative: %s", amount)
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney is NewMoney for constants and fixtures; it panics on invalid input.
func MustMoney(amount string, currency string) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	m, err := NewMoney(d, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// ZeroMoney returns a zero amount in currency.
func ZeroMoney(currency string) Money {
	return Money{amount: decimal.Zero, currency: strings.ToUpper(currency)}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }

func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}

// Equal compares by value; 1.50 and 1.5 in the same currency are equal.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

func (m Money) GreaterThan(o Money) bool {
	return m.amount.GreaterThan(o.amount)
}

func (m Money) sameCurrency(o Money) error {
	if m.currency != o.currency {
		return NewRuleViolation(RuleCurrencyMismatch, "currency mismatch: %s vs %s", m.currency, o.currency)
	}
	return nil
}

func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(o.amount), currency: m.currency}, nil
}

// Subtract fails when the result would be negative.
func (m Money) Subtract(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	result := m.amount.Sub(o.amount)
	if result.IsNegative() {
		return Money{}, NewRuleViolation(RuleInvalidValue, "subtracting %s from %s yields a negative amount", o, m)
	}
	return Money{amount: result, currency: m.currency}, nil
}

// Multiply scales the amount by a non-negative quantity.
func (m Money) Multiply(quantity int) Money {
	if quantity < 0 {
		quantity = 0
	}
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(quantity))), currency: m.currency}
}

// Percentage returns pct percent of the amount, rounded to two places.
func (m Money) Percentage(pct decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(pct).Div(hundred).Round(2), currency: m.currency}
}

// ApplyDiscount returns the amount reduced by pct percent.
func (m Money) ApplyDiscount(pct decimal.Decimal) (Money, error) {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return Money{}, NewRuleViolation(RuleInvalidValue, "discount percentage out of range: %s", pct)
	}
	return m.Subtract(m.Percentage(pct))
}

// ApplyTax returns the amount increased by pct percent.
func (m Money) ApplyTax(pct decimal.Decimal) (Money, error) {
	if pct.IsNegative() {
		return Money{}, NewRuleViolation(RuleInvalidValue, "tax percentage must not be negative: %s", pct)
	}
	return m.Add(m.Percentage(pct))
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := NewMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
