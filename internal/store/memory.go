package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	orders    map[string]Order
	callbacks []CallbackRecord
	// notification queue state
	deliveries map[string]*memDelivery
	order      []string // enqueue order, for stable fetch
}

func NewMemory() *Memory {
	return &Memory{
		orders:     map[string]Order{},
		deliveries: map[string]*memDelivery{},
	}
}

type memDelivery struct {
	Notification
	Delivered     bool
	Failed        bool
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

func (m *Memory) GetOrder(ctx context.Context, orderID string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (m *Memory) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	o, ok := m.orders[orderID]
	if ok && o.State == StatePaid {
		return false, nil
	}
	m.orders[orderID] = Order{OrderID: orderID, State: StatePaid, UpdatedAt: now, PaidAt: &now}
	return true, nil
}

func (m *Memory) MarkCanceled(ctx context.Context, orderID string) error {
	return m.setState(orderID, StateCanceled)
}

func (m *Memory) MarkFailed(ctx context.Context, orderID string) error {
	return m.setState(orderID, StateError)
}

func (m *Memory) setState(orderID string, st OrderState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[orderID]
	o.OrderID = orderID
	o.State = st
	o.UpdatedAt = time.Now()
	m.orders[orderID] = o
	return nil
}

func (m *Memory) RecordCallback(ctx context.Context, rec CallbackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}
	m.callbacks = append(m.callbacks, rec)
	return nil
}

func (m *Memory) ListCallbacks(ctx context.Context, orderID string, limit int) ([]CallbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := []CallbackRecord{}
	for i := len(m.callbacks) - 1; i >= 0 && len(out) < limit; i-- {
		if orderID == "" || m.callbacks[i].OrderID == orderID {
			out = append(out, m.callbacks[i])
		}
	}
	return out, nil
}

func (m *Memory) EnqueueNotification(ctx context.Context, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		Notification: Notification{ID: id, EventType: eventType, URL: url, Secret: secret, Payload: payload},
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) FetchDueNotifications(ctx context.Context, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []Notification{}
	for _, id := range m.order {
		d := m.deliveries[id]
		if d == nil || d.Delivered || d.Failed || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.Notification)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Delivered = true
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailNotification(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Failed = true
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}
