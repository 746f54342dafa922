package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("12.50"), " usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency())
	assert.True(t, m.Amount().Equal(decimal.RequireFromString("12.5")))

	_, err = NewMoney(decimal.NewFromInt(-1), "USD")
	assert.True(t, errors.Is(err, ErrBusinessRule))

	_, err = NewMoney(decimal.NewFromInt(1), "US")
	assert.True(t, errors.Is(err, ErrBusinessRule))
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustMoney("10.00", "USD")
	b := MustMoney("2.50", "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustMoney("12.50", "USD")))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustMoney("7.5", "USD")))

	_, err = b.Subtract(a)
	assert.True(t, errors.Is(err, ErrBusinessRule), "negative result must fail")

	assert.True(t, b.Multiply(4).Equal(MustMoney("10", "USD")))
	assert.True(t, a.Percentage(decimal.NewFromInt(9)).Equal(MustMoney("0.90", "USD")))

	discounted, err := a.ApplyDiscount(decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.True(t, discounted.Equal(MustMoney("7.50", "USD")))

	_, err = a.ApplyDiscount(decimal.NewFromInt(101))
	assert.Error(t, err)

	taxed, err := a.ApplyTax(decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, taxed.Equal(MustMoney("11", "USD")))
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	_, err := MustMoney("1", "USD").Add(MustMoney("1", "EUR"))
	require.Error(t, err)

	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, KindBusinessRule, de.Kind)
	assert.Equal(t, RuleCurrencyMismatch, de.Rule)
}

func TestMoney_JSON(t *testing.T) {
	raw, err := json.Marshal(MustMoney("19.99", "EUR"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"19.99","currency":"EUR"}`, string(raw))

	var m Money
	require.Error(t, json.Unmarshal([]byte(`{"amount":"-1","currency":"EUR"}`), &m))
}
