package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// DefaultPolicies is the catalog-wide policy set used by the service binary.
func DefaultPolicies(currency string, expensiveThreshold decimal.Decimal, lowStockThreshold int) ([]Policy, error) {
	threshold, err := entity.NewMoney(expensiveThreshold, currency)
	if err != nil {
		return nil, err
	}
	return []Policy{
		ExpensiveProduct{Threshold: threshold, Percent: decimal.NewFromInt(5)},
		LowStockClearance{Threshold: lowStockThreshold, Percent: decimal.NewFromInt(10)},
		NewProduct{MaxAge: 30 * 24 * time.Hour, Percent: decimal.NewFromInt(3)},
	}, nil
}
