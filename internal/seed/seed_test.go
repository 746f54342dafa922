package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/repository"
	"github.com/egannguyen/ecommerce-orders/internal/repository/sqlstore"
)

func TestRun_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	logger := zaptest.NewLogger(t)
	require.NoError(t, Run(ctx, store, "EUR", now, logger))
	require.NoError(t, Run(ctx, store, "EUR", now, logger))

	var products []*entity.Product
	var first *entity.Customer
	require.NoError(t, repository.RunInTx(ctx, store, func(tx repository.Tx) error {
		var err error
		if products, err = tx.Products().FindAll(ctx); err != nil {
			return err
		}
		first, err = tx.Customers().FindByID(ctx, 1)
		return err
	}))

	assert.Len(t, products, len(catalog))
	for _, p := range products {
		assert.Equal(t, "EUR", p.Price.Currency())
		assert.Equal(t, entity.ProductActive, p.Status())
	}
	assert.Equal(t, "ava@example.com", first.Email)
	assert.True(t, first.CanPlaceOrders())
}
