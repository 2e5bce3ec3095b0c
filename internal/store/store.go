package store

import (
	"context"
	"errors"
	"time"
)

// OrderState is the local order state driven by gateway callbacks.
type OrderState string

const (
	StatePending  OrderState = "pending"
	StatePaid     OrderState = "paid"
	StateCanceled OrderState = "canceled"
	StateError    OrderState = "error"
)

var ErrNotFound = errors.New("not found")

// Order is the locally tracked payment state for a platform order.
type Order struct {
	OrderID   string     `json:"orderId"`
	State     OrderState `json:"state"`
	UpdatedAt time.Time  `json:"updatedAt"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

// CallbackRecord is the audit trail entry for one processed callback.
type CallbackRecord struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	Format     string    `json:"format"` // "json" or "form"
	Status     string    `json:"status"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Notification is one pending merchant notification delivery.
type Notification struct {
	ID        string
	EventType string
	URL       string
	Secret    string
	Payload   []byte
	Attempts  int
}

// Store is the persistence interface behind callback processing and the
// notification worker. State transitions are idempotent overwrites.
type Store interface {
	// Orders
	GetOrder(ctx context.Context, orderID string) (Order, error)
	// MarkPaid transitions the order to paid and reports whether the
	// transition was newly applied; it gates the one-time notification.
	MarkPaid(ctx context.Context, orderID string) (first bool, err error)
	MarkCanceled(ctx context.Context, orderID string) error
	MarkFailed(ctx context.Context, orderID string) error

	// Callback audit trail
	RecordCallback(ctx context.Context, rec CallbackRecord) error
	ListCallbacks(ctx context.Context, orderID string, limit int) ([]CallbackRecord, error)

	// Notification deliveries
	EnqueueNotification(ctx context.Context, eventType, url, secret string, payload []byte) (string, error)
	FetchDueNotifications(ctx context.Context, limit int) ([]Notification, error)
	MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailNotification(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
}
