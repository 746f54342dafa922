package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("failed to create order: %w", NewNotFoundError("product", 12))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConcurrencyConflict))

	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "product", de.Entity)
	assert.Equal(t, "12", de.EntityID)
	assert.Equal(t, "product 12 not found", de.Error())
}

func TestDomainError_Messages(t *testing.T) {
	assert.Equal(t,
		"insufficient stock for product 3 (Lamp): requested 5, available 2",
		NewInsufficientStockError(3, "Lamp", 5, 2).Error())
	assert.Equal(t,
		"order 8 cannot move from shipped to cancelled",
		NewInvalidTransitionError(8, OrderShipped, OrderCancelled).Error())
	assert.Equal(t, "customer 4 is blocked", NewRuleViolation(RuleCustomerBlocked, "customer %d is blocked", 4).Error())
	assert.Equal(t, "concurrent update of order 1", NewConcurrencyConflict("order", 1).Error())
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "business_rule_violation", KindBusinessRule.String())
	assert.Equal(t, "unknown", ErrorKind(0).String())
}
