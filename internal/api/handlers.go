package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"cryptopay/internal/metrics"
	"cryptopay/internal/model"
	"cryptopay/internal/store"
)

// CallbackHandler handles POST /callback in both supported wire formats,
// distinguished by Content-Type. Responses stay deliberately terse: the
// gateway only needs "*ok*" or a status code, and failure detail goes to the
// log, not the body.
func (s *Server) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		log.Printf("callback: invalid request method: %s", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.limiters.allow(r.RemoteAddr) {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	var (
		orderID string
		status  string
		format  string
		err     error
	)
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		format = "json"
		orderID, status, err = s.callbackFromJSON(r)
	} else {
		format = "form"
		orderID, status, err = s.callbackFromForm(r)
	}
	if err != nil {
		s.rejectCallback(w, r, format, orderID, status, err)
		return
	}

	if err := s.applyStatus(r, format, orderID, status); err != nil {
		s.rejectCallback(w, r, format, orderID, status, err)
		return
	}

	metrics.Callbacks.WithLabelValues(format, "ok").Inc()
	_ = s.Store.RecordCallback(r.Context(), store.CallbackRecord{
		OrderID: orderID, Format: format, Status: status, Outcome: "ok",
	})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("*ok*"))
}

// callbackFromJSON resolves the new-style callback: the raw body carries only
// a UUID and merchant API id, and the trusted status comes from the order
// lookup — a status field in the raw JSON is never read.
func (s *Server) callbackFromJSON(r *http.Request) (orderID, status string, err error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return "", "", model.NewAPIError(model.CodeTransportError, err.Error())
	}
	if len(body) == 0 {
		return "", "", &model.ValidationError{Fields: []string{"empty JSON callback payload"}}
	}
	var in struct {
		ID            string `json:"id"`
		MerchantAPIID string `json:"merchantApiId"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return "", "", &model.ValidationError{Fields: []string{"body is not valid JSON"}}
	}
	cb, err := model.NewOrderCallback(in.ID, in.MerchantAPIID)
	if err != nil {
		return "", "", err
	}
	info, apiErr := s.Client.GetOrderByID(r.Context(), cb.UUID)
	if apiErr != nil {
		return "", "", apiErr
	}
	return info.OrderID, info.Status, nil
}

// callbackFromForm resolves the deprecated signed form callback; its embedded
// status is trusted only after signature verification.
func (s *Server) callbackFromForm(r *http.Request) (orderID, status string, err error) {
	if err := r.ParseForm(); err != nil {
		return "", "", &model.ValidationError{Fields: []string{"body is not valid form data"}}
	}
	if len(r.PostForm) == 0 {
		return "", "", &model.ValidationError{Fields: []string{"no data received in callback"}}
	}
	cb, err := s.Client.ProcessCallback(r.PostForm)
	if err != nil {
		return "", "", err
	}
	return cb.OrderID, cb.Status, nil
}

// applyStatus drives exactly one local state transition per callback.
// NEW and PENDING are deliberate no-ops so repeats stay safe.
func (s *Server) applyStatus(r *http.Request, format, orderID, rawStatus string) error {
	st, err := model.ParseOrderStatus(rawStatus)
	if err != nil {
		return err
	}
	ctx := r.Context()
	switch st {
	case model.StatusNew, model.StatusPending:
		// no change
	case model.StatusExpired:
		if err := s.Store.MarkCanceled(ctx, orderID); err != nil {
			return err
		}
		s.publishTransition(orderID, st)
	case model.StatusFailed:
		if err := s.Store.MarkFailed(ctx, orderID); err != nil {
			return err
		}
		s.publishTransition(orderID, st)
	case model.StatusPaid:
		first, err := s.Store.MarkPaid(ctx, orderID)
		if err != nil {
			return err
		}
		s.publishTransition(orderID, st)
		if first {
			s.Pub.Emit(ctx, "order.paid", map[string]any{"orderId": orderID, "status": string(st)})
		}
	}
	return nil
}

func (s *Server) publishTransition(orderID string, st model.OrderStatus) {
	s.Broker.Publish("orders", Event{
		Type: "order.status",
		Data: map[string]any{"orderId": orderID, "status": string(st)},
	})
}

// rejectCallback maps the failure to 400 or 500, logs the detail and records
// the audit entry. The response body never carries internal detail.
func (s *Server) rejectCallback(w http.ResponseWriter, r *http.Request, format, orderID, status string, err error) {
	code := http.StatusInternalServerError
	outcome := "error"

	var vErr *model.ValidationError
	var sErr *model.SignatureError
	var uErr *model.UnknownStatusError
	switch {
	case errors.As(err, &vErr), errors.As(err, &sErr), errors.As(err, &uErr):
		code = http.StatusBadRequest
		outcome = "rejected"
	}
	log.Printf("callback rejected (%s): %v", format, err)
	metrics.Callbacks.WithLabelValues(format, outcome).Inc()
	_ = s.Store.RecordCallback(r.Context(), store.CallbackRecord{
		OrderID: orderID, Format: format, Status: status, Outcome: outcome, Detail: err.Error(),
	})
	w.WriteHeader(code)
}

// OrdersHandler handles POST /v1/orders: the host platform asks for a new
// payment order at the gateway.
func (s *Server) OrdersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in model.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	req, err := model.NewCreateOrderRequest(in)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid order", err.Error(), r.URL.Path)
		return
	}
	resp, apiErr := s.Client.CreateOrder(r.Context(), req)
	if apiErr != nil {
		status := http.StatusBadGateway
		if apiErr.Code == model.CodeValidationError {
			status = http.StatusBadRequest
		}
		writeProblem(w, status, "Order creation failed", apiErr.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// OrderStateHandler handles GET /v1/orders/{orderId}: local payment state.
func (s *Server) OrderStateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/orders/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusBadRequest, "Bad order id", "", r.URL.Path)
		return
	}
	o, err := s.Store.GetOrder(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Order not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Lookup failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// CallbackLogHandler handles GET /v1/admin/callbacks: the processed-callback
// audit trail, optionally filtered by orderId.
func (s *Server) CallbackLogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := s.Store.ListCallbacks(r.Context(), r.URL.Query().Get("orderId"), 100)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// CancelHandler handles GET /cancel: the shopper backed out at the gateway;
// send them back to the shop.
func (s *Server) CancelHandler(w http.ResponseWriter, r *http.Request) {
	target := s.Cfg.CancelRedirectURL
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
