package model

import (
	"net/url"
	"strconv"
	"strings"

	"cryptopay/internal/sanitize"
)

// OrderCallback is the new JSON callback shape. It carries no payment data;
// authenticity comes from resolving the UUID against the merchant API.
type OrderCallback struct {
	UUID          string
	MerchantAPIID string
}

// NewOrderCallback sanitizes and validates the JSON callback fields, listing
// every failing field on error.
func NewOrderCallback(id, merchantAPIID string) (*OrderCallback, error) {
	c := &OrderCallback{
		UUID:          sanitize.Text(id),
		MerchantAPIID: sanitize.Text(merchantAPIID),
	}
	var failed []string
	if c.UUID == "" {
		failed = append(failed, "id is empty")
	}
	if c.MerchantAPIID == "" {
		failed = append(failed, "merchantApiId is empty")
	}
	if len(failed) > 0 {
		return nil, &ValidationError{Fields: failed}
	}
	return c, nil
}

// OldOrderCallback is the deprecated signed form-encoded callback. All fields
// hold their sanitized string form; the embedded status is trusted only after
// signature verification over CanonicalPayload.
type OldOrderCallback struct {
	UserID          string
	MerchantAPIID   string
	MerchantID      string
	APIID           string
	OrderID         string
	PayCurrency     string
	PayAmount       string
	ReceiveCurrency string
	ReceiveAmount   string
	ReceivedAmount  string
	Description     string
	OrderRequestID  string
	Status          string
	Sign            string
}

// NewOldOrderCallback sanitizes and validates the legacy callback fields from
// form values, listing every failing field on error.
func NewOldOrderCallback(values url.Values) (*OldOrderCallback, error) {
	c := &OldOrderCallback{
		UserID:          sanitize.Text(values.Get("userId")),
		MerchantAPIID:   sanitize.Text(values.Get("merchantApiId")),
		MerchantID:      sanitize.Text(values.Get("merchantId")),
		APIID:           sanitize.Text(values.Get("apiId")),
		OrderID:         sanitize.Text(values.Get("orderId")),
		PayCurrency:     sanitize.Text(values.Get("payCurrency")),
		PayAmount:       sanitize.AmountString(values.Get("payAmount")),
		ReceiveCurrency: sanitize.Text(values.Get("receiveCurrency")),
		ReceiveAmount:   sanitize.AmountString(values.Get("receiveAmount")),
		ReceivedAmount:  sanitize.AmountString(values.Get("receivedAmount")),
		Description:     sanitize.Text(values.Get("description")),
		OrderRequestID:  digitsOnly(values.Get("orderRequestId")),
		Status:          sanitize.Text(values.Get("status")),
		Sign:            sanitize.Text(values.Get("sign")),
	}

	var failed []string
	if c.UserID == "" {
		failed = append(failed, "userId is empty")
	}
	if c.MerchantAPIID == "" {
		failed = append(failed, "merchantApiId is empty")
	}
	if c.MerchantID == "" {
		failed = append(failed, "merchantId is empty")
	}
	if c.APIID == "" {
		failed = append(failed, "apiId is empty")
	}
	if len(c.PayCurrency) != 3 {
		failed = append(failed, "payCurrency is not 3 characters long")
	}
	if len(c.ReceiveCurrency) != 3 {
		failed = append(failed, "receiveCurrency is not 3 characters long")
	}
	if !positiveNumber(c.PayAmount) {
		failed = append(failed, "payAmount is not a valid positive number")
	}
	if !positiveNumber(c.ReceiveAmount) {
		failed = append(failed, "receiveAmount is not a valid positive number")
	}
	// Status "6" historically reports a test payment; for it any numeric
	// receivedAmount is accepted, otherwise it must be non-negative.
	if c.Status == "6" {
		if !isNumber(c.ReceivedAmount) {
			failed = append(failed, "receivedAmount is not a valid number")
		}
	} else if !nonNegativeNumber(c.ReceivedAmount) {
		failed = append(failed, "receivedAmount is not a valid non-negative number")
	}
	if !positiveInteger(c.OrderRequestID) {
		failed = append(failed, "orderRequestId is not a valid positive number")
	}
	if !positiveNumber(c.Status) {
		failed = append(failed, "status is not a valid positive number")
	}
	if c.Sign == "" {
		failed = append(failed, "sign is empty")
	}
	if len(failed) > 0 {
		return nil, &ValidationError{Fields: failed}
	}
	return c, nil
}

// CanonicalPayload returns the exact byte sequence the gateway signs: the
// URL-encoded field map in fixed insertion order, excluding userId,
// merchantApiId and sign. Any deviation here silently breaks verification.
func (c *OldOrderCallback) CanonicalPayload() string {
	pairs := [][2]string{
		{"merchantId", c.MerchantID},
		{"apiId", c.APIID},
		{"orderId", c.OrderID},
		{"payCurrency", c.PayCurrency},
		{"payAmount", c.PayAmount},
		{"receiveCurrency", c.ReceiveCurrency},
		{"receiveAmount", c.ReceiveAmount},
		{"receivedAmount", c.ReceivedAmount},
		{"description", c.Description},
		{"orderRequestId", c.OrderRequestID},
		{"status", c.Status},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, queryEscape(p[0])+"="+queryEscape(p[1]))
	}
	return strings.Join(parts, "&")
}

// queryEscape encodes with RFC1738 urlencode semantics, which the gateway
// signs with: like url.QueryEscape, except '~' is percent-encoded.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func positiveNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f > 0
}

func nonNegativeNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f >= 0
}

func positiveInteger(s string) bool {
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && n > 0
}

func digitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if (s[i] >= '0' && s[i] <= '9') || s[i] == '+' || s[i] == '-' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
