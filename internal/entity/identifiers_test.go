package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderNumber(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)
	n := NewOrderNumber(at)
	assert.True(t, strings.HasPrefix(n.String(), "ORD-20240309-"))

	parsed, err := ParseOrderNumber(strings.ToLower(n.String()))
	require.NoError(t, err)
	assert.Equal(t, n, parsed)

	assert.NotEqual(t, n, NewOrderNumber(at), "suffix is random")

	for _, bad := range []string{"", "ORD-2024-ABCDEF12", "ORD-20240309-XYZ", "INV-20240309-ABCDEF12"} {
		_, err := ParseOrderNumber(bad)
		assert.Error(t, err, bad)
	}
}

func TestSKU(t *testing.T) {
	sku, err := NewSKU("  lap-001 ")
	require.NoError(t, err)
	assert.Equal(t, SKU("LAP-001"), sku)

	for _, bad := range []string{"", "AB", "-ABC", "ABC-", "AB C", strings.Repeat("A", 51)} {
		_, err := NewSKU(bad)
		assert.Error(t, err, bad)
	}
}

func TestProductName(t *testing.T) {
	n, err := NewProductName("  Mechanical Keyboard ")
	require.NoError(t, err)
	assert.Equal(t, "Mechanical Keyboard", n.String())

	_, err = NewProductName("   ")
	assert.Error(t, err)
	_, err = NewProductName(strings.Repeat("é", 201))
	assert.Error(t, err)
}

func TestNewAddress(t *testing.T) {
	a, err := NewAddress("1 Main St", "Springfield", "IL", "62701", "us", WithUnit("4B"))
	require.NoError(t, err)
	assert.Equal(t, "US", a.Country)
	assert.Equal(t, "4B", a.Unit)
	assert.Equal(t, "1 Main St, 4B, Springfield, IL, 62701, US", a.String())

	b, err := NewAddress("1 Main St", "Springfield", "IL", "62701", "US", WithUnit("4B"))
	require.NoError(t, err)
	assert.Equal(t, a, b, "addresses compare structurally")

	_, err = NewAddress("", "Springfield", "IL", "62701", "US")
	assert.Error(t, err)
	_, err = NewAddress("1 Main St", "Springfield", "IL", "1", "US")
	assert.Error(t, err)
}
