package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError. The set is closed; callers switch on it.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindInsufficientStock
	KindInvalidStatusTransition
	KindBusinessRule
	KindConcurrencyConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidStatusTransition:
		return "invalid_status_transition"
	case KindBusinessRule:
		return "business_rule_violation"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound                = &DomainError{Kind: KindNotFound}
	ErrInsufficientStock       = &DomainError{Kind: KindInsufficientStock}
	ErrInvalidStatusTransition = &DomainError{Kind: KindInvalidStatusTransition}
	ErrBusinessRule            = &DomainError{Kind: KindBusinessRule}
	ErrConcurrencyConflict     = &DomainError{Kind: KindConcurrencyConflict}
)

// Rule codes carried by KindBusinessRule errors.
const (
	RuleInvalidValue     = "invalid_value"
	RuleCurrencyMismatch = "currency_mismatch"
	RuleEmptyOrder       = "empty_order"
	RuleCustomerInactive = "customer_inactive"
	RuleCustomerBlocked  = "customer_blocked"
	RuleDiscountCap      = "discount_cap_exceeded"
	RuleInvalidQuantity  = "invalid_quantity"
	RuleInvalidPrice     = "invalid_price"
	RuleOrderSealed      = "order_sealed"
	RuleCannotCancel     = "cannot_cancel"
	RuleCannotRefund     = "cannot_refund"
	RuleConflictingPrice = "conflicting_unit_price"
	RuleMissingTracking  = "missing_tracking_number"
)

// DomainError is the single error type returned by the order workflow.
// Only the payload fields relevant to Kind are populated.
type DomainError struct {
	Kind    ErrorKind
	Message string

	// NotFound / ConcurrencyConflict
	Entity   string
	EntityID string

	// InsufficientStock
	ProductID   int64
	ProductName string
	Requested   int
	Available   int

	// InvalidStatusTransition
	OrderID         int64
	CurrentStatus   OrderStatus
	RequestedStatus OrderStatus

	// BusinessRule
	Rule string
}

func (e *DomainError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("%s %s not found", e.Entity, e.EntityID)
	case KindInsufficientStock:
		return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
			e.ProductID, e.ProductName, e.Requested, e.Available)
	case KindInvalidStatusTransition:
		return fmt.Sprintf("order %d cannot move from %s to %s", e.OrderID, e.CurrentStatus, e.RequestedStatus)
	case KindConcurrencyConflict:
		return fmt.Sprintf("concurrent update of %s %s", e.Entity, e.EntityID)
	default:
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.String()
	}
}

// Is matches any DomainError of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of payload.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// AsDomainError unwraps err into a *DomainError.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func NewNotFoundError(entity string, id any) *DomainError {
	return &DomainError{Kind: KindNotFound, Entity: entity, EntityID: fmt.Sprint(id)}
}

func NewInsufficientStockError(productID int64, productName string, requested, available int) *DomainError {
	return &DomainError{
		Kind:        KindInsufficientStock,
		ProductID:   productID,
		ProductName: productName,
		Requested:   requested,
		Available:   available,
	}
}

func NewInvalidTransitionError(orderID int64, current, requested OrderStatus) *DomainError {
	return &DomainError{
		Kind:            KindInvalidStatusTransition,
		OrderID:         orderID,
		CurrentStatus:   current,
		RequestedStatus: requested,
	}
}

func NewRuleViolation(rule, format string, args ...any) *DomainError {
	return &DomainError{Kind: KindBusinessRule, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func NewConcurrencyConflict(entity string, id any) *DomainError {
	return &DomainError{Kind: KindConcurrencyConflict, Entity: entity, EntityID: fmt.Sprint(id)}
}
