package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptopay/internal/store"
)

func TestEmitAndDeliver(t *testing.T) {
	var got struct {
		body      []byte
		eventType string
		signature string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.body = body
		got.eventType = r.Header.Get("X-Event-Type")
		got.signature = r.Header.Get("X-Signature")
	}))
	defer srv.Close()

	st := store.NewMemory()
	pub := NewPublisher(st, srv.URL, "topsecret")
	pub.Emit(context.Background(), "order.paid", map[string]any{"orderId": "42"})

	w := NewWorker(st, 3)
	w.processOnce()

	if got.eventType != "order.paid" {
		t.Fatalf("event type header: %q", got.eventType)
	}
	if !VerifyHMAC("topsecret", got.body, got.signature) {
		t.Fatal("delivery signature does not verify against the payload")
	}
	var payload struct {
		ID   string         `json:"id"`
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(got.body, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Type != "order.paid" || payload.Data["orderId"] != "42" || payload.ID == "" {
		t.Errorf("payload: %+v", payload)
	}

	// delivered notifications leave the queue
	due, err := st.FetchDueNotifications(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Fatalf("expected empty queue after delivery, got %d", len(due))
	}
}

func TestEmitDisabledWithoutURL(t *testing.T) {
	st := store.NewMemory()
	pub := NewPublisher(st, "", "secret")
	pub.Emit(context.Background(), "order.paid", map[string]any{"orderId": "42"})

	due, err := st.FetchDueNotifications(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Fatalf("no URL configured: expected nothing enqueued, got %d", len(due))
	}
}

func TestFailedDeliveryBacksOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	st := store.NewMemory()
	pub := NewPublisher(st, srv.URL, "")
	pub.Emit(context.Background(), "order.paid", map[string]any{"orderId": "42"})

	w := NewWorker(st, 3)
	w.processOnce()

	// backed off: not due again immediately, but not failed either
	due, err := st.FetchDueNotifications(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Fatalf("expected backoff to defer the retry, got %d due", len(due))
	}
}

func TestDeliveryFailsAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	st := store.NewMemory()
	pub := NewPublisher(st, srv.URL, "")
	pub.Emit(context.Background(), "order.paid", map[string]any{"orderId": "42"})

	due, err := st.FetchDueNotifications(context.Background(), 1)
	if err != nil || len(due) != 1 {
		t.Fatalf("due=%v err=%v", due, err)
	}
	id := due[0].ID

	w := NewWorker(st, 1)
	w.processOnce()

	// a dead notification never comes due again, even with the attempt
	// window forced open
	past := time.Now().Add(-time.Hour)
	_ = st.MarkNotification(context.Background(), id, false, &past, "", 0, 0)
	due, _ = st.FetchDueNotifications(context.Background(), 10)
	for _, d := range due {
		if d.ID == id {
			t.Fatal("failed notification came due again")
		}
	}
}

func TestNextBackoff(t *testing.T) {
	if nextBackoff(0) != time.Second {
		t.Errorf("attempt 0: %v", nextBackoff(0))
	}
	if nextBackoff(3) != 8*time.Second {
		t.Errorf("attempt 3: %v", nextBackoff(3))
	}
	if nextBackoff(50) != time.Hour {
		t.Errorf("large attempt count must cap at an hour, got %v", nextBackoff(50))
	}
	if nextBackoff(-2) != time.Second {
		t.Errorf("negative attempts: %v", nextBackoff(-2))
	}
}

func TestSignAndVerifyHMAC(t *testing.T) {
	payload := []byte(`{"orderId":"42"}`)
	sig := SignHMAC("secret", payload)
	if !VerifyHMAC("secret", payload, sig) {
		t.Fatal("signature does not verify")
	}
	if VerifyHMAC("other", payload, sig) {
		t.Fatal("wrong secret verified")
	}
	if VerifyHMAC("secret", []byte(`{"orderId":"43"}`), sig) {
		t.Fatal("altered payload verified")
	}
}
