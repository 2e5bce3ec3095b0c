package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the gateway client.
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Callbacks counts inbound payment callbacks by wire format and outcome.
	Callbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "payment_callbacks_total", Help: "Inbound payment callbacks by format and outcome."},
		[]string{"format", "outcome"},
	)
	// TokenRefreshes counts access-token refresh attempts by outcome.
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "access_token_refreshes_total", Help: "Access token refresh attempts by outcome."},
		[]string{"outcome"},
	)
	// OrdersCreated counts order-create calls against the merchant API.
	OrdersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "merchant_orders_created_total", Help: "Order creation attempts by outcome."},
		[]string{"outcome"},
	)
	// NotificationDeliveries counts merchant notification deliveries by event type and status
	NotificationDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notification_deliveries_total", Help: "Merchant notification deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// NotificationLatency tracks notification delivery latencies in milliseconds
	NotificationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "notification_delivery_latency_ms", Help: "Notification delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the package registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Callbacks)
		Registry.MustRegister(TokenRefreshes)
		Registry.MustRegister(OrdersCreated)
		Registry.MustRegister(NotificationDeliveries)
		Registry.MustRegister(NotificationLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
