// Package metrics holds the Prometheus collectors for the order workflow and the HTTP
// server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orders"

// Workflow counts the outcomes of order workflow operations. A nil *Workflow is valid
// and records nothing.
type Workflow struct {
	OrdersCreated     prometheus.Counter
	OrdersRejected    *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	StockUnits        *prometheus.CounterVec
	Duration          *prometheus.HistogramVec
	OutboxPublished   *prometheus.CounterVec
	OutboxFailures    prometheus.Counter
}

func NewWorkflow(reg prometheus.Registerer) *Workflow {
	m := &Workflow{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Orders committed by the create workflow.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "Order creations rolled back, by error kind.",
		}, []string{"kind"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Committed order status transitions.",
		}, []string{"from", "to"}),
		StockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "stock_units_total",
			Help:      "Stock units moved by committed workflows, by reason.",
		}, []string{"reason"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_ms",
			Help:      "Workflow latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"operation", "outcome"}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events delivered to the broker, by topic.",
		}, []string{"topic"}),
		OutboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_failures_total",
			Help:      "Outbox publish attempts that failed and will be retried.",
		}),
	}
	reg.MustRegister(m.OrdersCreated, m.OrdersRejected, m.StatusTransitions, m.StockUnits,
		m.Duration, m.OutboxPublished, m.OutboxFailures)
	return m
}

// Observe records the latency of one workflow call. kind is empty on success.
func (m *Workflow) Observe(operation, kind string, started time.Time) {
	if m == nil {
		return
	}
	outcome := "ok"
	if kind != "" {
		outcome = kind
	}
	m.Duration.WithLabelValues(operation, outcome).Observe(float64(time.Since(started).Milliseconds()))
}

func (m *Workflow) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

func (m *Workflow) OrderRejected(kind string) {
	if m == nil {
		return
	}
	m.OrdersRejected.WithLabelValues(kind).Inc()
}

func (m *Workflow) StatusChanged(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Workflow) StockMoved(reason string, units int) {
	if m == nil || units <= 0 {
		return
	}
	m.StockUnits.WithLabelValues(reason).Add(float64(units))
}

func (m *Workflow) Published(topic string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(topic).Inc()
}

func (m *Workflow) PublishFailed() {
	if m == nil {
		return
	}
	m.OutboxFailures.Inc()
}

// Server holds the HTTP request collectors.
type Server struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServer(reg prometheus.Registerer) *Server {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"operation", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"operation"})

	reg.MustRegister(requests, latency)
	return &Server{Requests: requests, LatencyMS: latency}
}

func (s *Server) Observe(operation string, status int, started time.Time) {
	if s == nil {
		return
	}
	s.Requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	s.LatencyMS.WithLabelValues(operation).Observe(float64(time.Since(started).Milliseconds()))
}

// Handler serves the collectors registered on gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
