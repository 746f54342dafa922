package entity

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)
	skuPattern         = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,48}[A-Z0-9]$`)
)

// OrderNumber is the business identifier of an order, distinct from its primary key.
type OrderNumber string

// NewOrderNumber generates ORD-YYYYMMDD-XXXXXXXX for the given creation time.
func NewOrderNumber(at time.Time) OrderNumber {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return OrderNumber("ORD-" + at.UTC().Format("20060102") + "-" + suffix)
}

// ParseOrderNumber validates an order number read from storage or input.
func ParseOrderNumber(s string) (OrderNumber, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !orderNumberPattern.MatchString(s) {
		return "", NewRuleViolation(RuleInvalidValue, "malformed order number %q", s)
	}
	return OrderNumber(s), nil
}

func (n OrderNumber) String() string { return string(n) }

// SKU is a product stock keeping unit.
type SKU string

func NewSKU(s string) (SKU, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !skuPattern.MatchString(s) {
		return "", NewRuleViolation(RuleInvalidValue, "malformed sku %q", s)
	}
	return SKU(s), nil
}

func (s SKU) String() string { return string(s) }

// ProductName is a trimmed, non-empty product display name.
type ProductName string

const maxProductNameLength = 200

func NewProductName(s string) (ProductName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewRuleViolation(RuleInvalidValue, "product name is required")
	}
	if utf8.RuneCountInString(s) > maxProductNameLength {
		return "", NewRuleViolation(RuleInvalidValue, "product name exceeds %d characters", maxProductNameLength)
	}
	return ProductName(s), nil
}

func (n ProductName) String() string { return string(n) }
