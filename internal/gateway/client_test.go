package gateway

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"cryptopay/internal/model"
	"cryptopay/internal/secure"
	"cryptopay/internal/token"
	"cryptopay/internal/tokencache"
)

func newTestClient(t *testing.T, apiURL, authURL string) *Client {
	t.Helper()
	tokens := token.NewManager(authURL, "cid", "csec", tokencache.NewMemory(), secure.DeriveKey("s"))
	return NewClient(apiURL, "proj-1", tokens, secure.NewStaticKeySource(nil))
}

func authHandler(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 300})
}

func mustRequest(t *testing.T) *model.CreateOrderRequest {
	t.Helper()
	req, err := model.NewCreateOrderRequest(model.CreateOrderInput{
		OrderID:             "41",
		Description:         "Order 41",
		ReceiveAmount:       "25.00",
		ReceiveCurrencyCode: "EUR",
		CallbackURL:         "https://shop.example/cb",
		SuccessURL:          "https://shop.example/ok",
		FailureURL:          "https://shop.example/fail",
	})
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestCreateOrderSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", authHandler)
	mux.HandleFunc("/merchants/orders/create", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization header: %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["projectId"] != "proj-1" {
			t.Errorf("projectId: %v", payload["projectId"])
		}
		// the platform's own URLs are never forwarded on this path
		if payload["callbackUrl"] != "http://localhost.com" {
			t.Errorf("callbackUrl: %v", payload["callbackUrl"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"depositAddress": "bc1qxyz", "memo": "", "orderId": "41",
			"payAmount": "0.0006", "payCurrencyCode": "BTC", "preOrderId": "p-41",
			"receiveAmount": "25.0", "receiveCurrencyCode": "EUR",
			"redirectUrl": "https://gw.example/invoice/p-41", "validUntil": "2026-01-01T00:00:00Z",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL+"/oauth/token")
	resp, apiErr := c.CreateOrder(context.Background(), mustRequest(t))
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if resp.OrderID != "41" || resp.RedirectURL == "" {
		t.Errorf("response: %+v", resp)
	}
}

func TestCreateOrderRemoteBusinessError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", authHandler)
	mux.HandleFunc("/merchants/orders/create", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"code": "E123", "message": "duplicate order"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL+"/oauth/token")
	resp, apiErr := c.CreateOrder(context.Background(), mustRequest(t))
	if resp != nil {
		t.Fatal("expected no response on business error")
	}
	if apiErr == nil || apiErr.Code != "E123" {
		t.Fatalf("expected remote error E123, got %v", apiErr)
	}
}

func TestCreateOrderAuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL+"/oauth/token")
	_, apiErr := c.CreateOrder(context.Background(), mustRequest(t))
	if apiErr == nil || apiErr.Code != model.CodeAuthError {
		t.Fatalf("expected AuthError, got %v", apiErr)
	}
}

func TestCreateOrderUnexpectedBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", authHandler)
	mux.HandleFunc("/merchants/orders/create", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway maintenance</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL+"/oauth/token")
	_, apiErr := c.CreateOrder(context.Background(), mustRequest(t))
	if apiErr == nil || apiErr.Code != model.CodeInvalidResponse {
		t.Fatalf("expected invalid response error, got %v", apiErr)
	}
}

func TestCreateOrderCurrencyAllowList(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	c.AcceptedCurrencies = []string{"EUR", "USD"}
	req, err := model.NewCreateOrderRequest(model.CreateOrderInput{
		OrderID: "1", Description: "d", ReceiveAmount: "1", ReceiveCurrencyCode: "JPY",
		CallbackURL: "https://s.example/a", SuccessURL: "https://s.example/b", FailureURL: "https://s.example/c",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, apiErr := c.CreateOrder(context.Background(), req)
	if apiErr == nil || apiErr.Code != model.CodeValidationError {
		t.Fatalf("expected validation error for JPY, got %v", apiErr)
	}
}

func TestGetOrderByID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", authHandler)
	mux.HandleFunc("/merchants/orders/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"orderId": "42", "status": "PAID"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL+"/oauth/token")
	info, apiErr := c.GetOrderByID(context.Background(), "abc-123")
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if info.OrderID != "42" || info.Status != "PAID" {
		t.Errorf("info: %+v", info)
	}
}

func TestGetOrderByIDMalformed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", authHandler)
	mux.HandleFunc("/merchants/orders/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"orderId": "42"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL+"/oauth/token")
	if _, apiErr := c.GetOrderByID(context.Background(), "abc-123"); apiErr == nil {
		t.Fatal("expected error for response missing status")
	}
}

func signedLegacyValues(t *testing.T, key *rsa.PrivateKey) url.Values {
	t.Helper()
	v := url.Values{
		"userId":          {"u1"},
		"merchantApiId":   {"m1"},
		"merchantId":      {"10"},
		"apiId":           {"20"},
		"orderId":         {"7"},
		"payCurrency":     {"BTC"},
		"payAmount":       {"0.1"},
		"receiveCurrency": {"EUR"},
		"receiveAmount":   {"50"},
		"receivedAmount":  {"0"},
		"description":     {"order"},
		"orderRequestId":  {"77"},
		"status":          {"3"},
		"sign":            {"placeholder"},
	}
	cb, err := model.NewOldOrderCallback(v)
	if err != nil {
		t.Fatal(err)
	}
	h := sha1.Sum([]byte(cb.CanonicalPayload()))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA1, h[:])
	if err != nil {
		t.Fatal(err)
	}
	v.Set("sign", base64.StdEncoding.EncodeToString(sig))
	return v
}

func TestProcessCallback(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	c := newTestClient(t, "http://unused", "http://unused")
	c.Keys = secure.NewStaticKeySource(&key.PublicKey)
	c.HTTP = &http.Client{Timeout: time.Second}

	v := signedLegacyValues(t, key)
	cb, err := c.ProcessCallback(v)
	if err != nil {
		t.Fatalf("valid signed callback rejected: %v", err)
	}
	if cb.OrderID != "7" || cb.Status != "3" {
		t.Errorf("callback: %+v", cb)
	}

	// altering any field must break the signature
	tampered := signedLegacyValues(t, key)
	tampered.Set("receiveAmount", "5000")
	if _, err := c.ProcessCallback(tampered); err == nil {
		t.Fatal("tampered callback accepted")
	}

	// field-level validation failures short-circuit before crypto
	missing := signedLegacyValues(t, key)
	missing.Del("merchantId")
	_, err = c.ProcessCallback(missing)
	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
