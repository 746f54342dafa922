package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflow(reg)

	m.OrderCreated()
	m.OrderCreated()
	m.OrderRejected("insufficient_stock")
	m.StatusChanged("pending", "confirmed")
	m.StockMoved("order_placed", 3)
	m.StockMoved("order_placed", 0)
	m.Published("shop.orders.created")
	m.PublishFailed()
	m.Observe("order.create", "", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersRejected.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("pending", "confirmed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.StockUnits.WithLabelValues("order_placed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxPublished.WithLabelValues("shop.orders.created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestNilWorkflowIsNoop(t *testing.T) {
	var m *Workflow
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.OrderRejected("not_found")
		m.StockMoved("restock", 1)
		m.Observe("order.cancel", "", time.Now())
	})
}

func TestHandlerExposesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(reg)
	s.Observe("create-order", http.StatusCreated, time.Now())

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `orders_http_requests_total{operation="create-order",status="201"} 1`), body)
}
