package model

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func legacyValues() url.Values {
	return url.Values{
		"userId":          {"u-9"},
		"merchantApiId":   {"m-api-1"},
		"merchantId":      {"1387551"},
		"apiId":           {"105548"},
		"orderId":         {"ORD-7"},
		"payCurrency":     {"BTC"},
		"payAmount":       {"0.5"},
		"receiveCurrency": {"EUR"},
		"receiveAmount":   {"100.00"},
		"receivedAmount":  {"0"},
		"description":     {"Test order"},
		"orderRequestId":  {"12345"},
		"status":          {"3"},
		"sign":            {"c2lnbmF0dXJl"},
	}
}

func TestNewOldOrderCallback(t *testing.T) {
	cb, err := NewOldOrderCallback(legacyValues())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.OrderID != "ORD-7" || cb.Status != "3" || cb.PayAmount != "0.5" {
		t.Errorf("fields not carried over: %+v", cb)
	}
}

func TestOldOrderCallbackListsAllFailures(t *testing.T) {
	v := legacyValues()
	v.Set("payCurrency", "BTCX")
	v.Set("receiveAmount", "-3")
	v.Set("orderRequestId", "0")
	_, err := NewOldOrderCallback(v)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Fields) != 3 {
		t.Fatalf("expected 3 failures, got %v", vErr.Fields)
	}
}

// Legacy status "6" accepts any numeric receivedAmount; every other status
// requires non-negative. Preserved as-is from the gateway's wire behavior.
func TestReceivedAmountStatusSixQuirk(t *testing.T) {
	v := legacyValues()
	v.Set("receivedAmount", "-1")
	if _, err := NewOldOrderCallback(v); err == nil {
		t.Fatal("negative receivedAmount must fail for status 3")
	}
	v.Set("status", "6")
	if _, err := NewOldOrderCallback(v); err != nil {
		t.Fatalf("negative receivedAmount must pass for status 6: %v", err)
	}
	v.Set("receivedAmount", "zz")
	if _, err := NewOldOrderCallback(v); err == nil {
		t.Fatal("non-numeric receivedAmount must fail even for status 6")
	}
}

// The canonical payload is a bit-exact contract: fixed field order, userId,
// merchantApiId and sign excluded, URL-encoded values.
func TestCanonicalPayload(t *testing.T) {
	cb, err := NewOldOrderCallback(legacyValues())
	if err != nil {
		t.Fatal(err)
	}
	want := "merchantId=1387551&apiId=105548&orderId=ORD-7&payCurrency=BTC" +
		"&payAmount=0.5&receiveCurrency=EUR&receiveAmount=100.00&receivedAmount=0" +
		"&description=Test+order&orderRequestId=12345&status=3"
	if got := cb.CanonicalPayload(); got != want {
		t.Errorf("canonical payload mismatch:\n got %s\nwant %s", got, want)
	}
	if strings.Contains(cb.CanonicalPayload(), "userId") {
		t.Error("userId must not appear in the canonical payload")
	}
}

// '~' survives text sanitization but the gateway signs RFC1738-urlencoded
// bytes, where it is percent-encoded. The encoding must match byte for byte.
func TestCanonicalPayloadEscapesTilde(t *testing.T) {
	v := legacyValues()
	v.Set("description", "order ~7")
	cb, err := NewOldOrderCallback(v)
	if err != nil {
		t.Fatal(err)
	}
	got := cb.CanonicalPayload()
	if !strings.Contains(got, "description=order+%7E7") {
		t.Errorf("tilde not percent-encoded: %s", got)
	}
	if strings.Contains(got, "~") {
		t.Errorf("raw tilde leaked into the canonical payload: %s", got)
	}
}

func TestNewOrderCallback(t *testing.T) {
	cb, err := NewOrderCallback("abc-123", "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.UUID != "abc-123" || cb.MerchantAPIID != "m1" {
		t.Errorf("fields: %+v", cb)
	}
	_, err = NewOrderCallback("", "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || len(vErr.Fields) != 2 {
		t.Fatalf("expected both fields flagged, got %v", err)
	}
}
