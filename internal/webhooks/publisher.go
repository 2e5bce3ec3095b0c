// Package webhooks delivers payment event notifications to the merchant's own
// endpoint, signed with a shared HMAC secret and retried with backoff.
package webhooks

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"cryptopay/internal/store"
)

// Publisher enqueues one notification per emitted payment event. The target
// URL and secret come from merchant configuration; an empty URL disables
// notifications entirely.
type Publisher struct {
	Store  store.Store
	URL    string
	Secret string
}

func NewPublisher(s store.Store, url, secret string) *Publisher {
	return &Publisher{Store: s, URL: url, Secret: secret}
}

// Emit enqueues an event for delivery. Events are fire-and-forget; delivery
// failures are the worker's problem.
func (p *Publisher) Emit(ctx context.Context, eventType string, data any) {
	if p.URL == "" {
		return
	}
	payload := map[string]any{
		"id":   "evt_" + uuid.New().String(),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notification payload marshal failed: %v", err)
		return
	}
	if _, err := p.Store.EnqueueNotification(ctx, eventType, p.URL, p.Secret, body); err != nil {
		log.Printf("notification enqueue failed: %v", err)
	}
}
