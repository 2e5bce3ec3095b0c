package model

import (
	"github.com/shopspring/decimal"

	"cryptopay/internal/sanitize"
)

// CreateOrderInput carries raw, untrusted order fields from the host platform.
type CreateOrderInput struct {
	OrderID             string `json:"orderId"`
	Description         string `json:"description"`
	ReceiveAmount       string `json:"receiveAmount"`
	ReceiveCurrencyCode string `json:"receiveCurrencyCode"`
	CallbackURL         string `json:"callbackUrl"`
	SuccessURL          string `json:"successUrl"`
	FailureURL          string `json:"failureUrl"`
}

// CreateOrderRequest is a fully sanitized, validated order-creation request.
// Construct only through NewCreateOrderRequest; immutable afterwards.
type CreateOrderRequest struct {
	orderID             string
	description         string
	receiveAmount       decimal.Decimal
	receiveCurrencyCode string
	callbackURL         string
	successURL          string
	failureURL          string
}

// NewCreateOrderRequest sanitizes and validates in. Construction is
// all-or-nothing: on any violation it returns a ValidationError naming every
// failing field.
func NewCreateOrderRequest(in CreateOrderInput) (*CreateOrderRequest, error) {
	r := &CreateOrderRequest{
		orderID:     sanitize.Text(in.OrderID),
		description: sanitize.Text(in.Description),
		callbackURL: sanitize.URL(in.CallbackURL),
		successURL:  sanitize.URL(in.SuccessURL),
		failureURL:  sanitize.URL(in.FailureURL),
	}

	var failed []string
	if r.orderID == "" {
		failed = append(failed, "orderId is required")
	}
	if r.description == "" {
		failed = append(failed, "description is required")
	}
	amount, ok := sanitize.Amount(in.ReceiveAmount)
	if !ok || amount.Sign() <= 0 {
		failed = append(failed, "receiveAmount must be greater than zero")
	} else {
		r.receiveAmount = amount
	}
	currency, ok := sanitize.Currency(in.ReceiveCurrencyCode)
	if !ok {
		failed = append(failed, "receiveCurrencyCode must be 3 characters long")
	} else {
		r.receiveCurrencyCode = currency
	}
	if r.callbackURL == "" || !sanitize.ValidURL(r.callbackURL) {
		failed = append(failed, "invalid callbackUrl")
	}
	if r.successURL == "" || !sanitize.ValidURL(r.successURL) {
		failed = append(failed, "invalid successUrl")
	}
	if r.failureURL == "" || !sanitize.ValidURL(r.failureURL) {
		failed = append(failed, "invalid failureUrl")
	}
	if len(failed) > 0 {
		return nil, &ValidationError{Fields: failed}
	}
	return r, nil
}

func (r *CreateOrderRequest) OrderID() string     { return r.orderID }
func (r *CreateOrderRequest) Description() string { return r.description }

// ReceiveAmount returns the amount formatted with trailing zeros trimmed and
// at least one fractional digit.
func (r *CreateOrderRequest) ReceiveAmount() string {
	return sanitize.FormatAmount(r.receiveAmount)
}

func (r *CreateOrderRequest) ReceiveCurrencyCode() string { return r.receiveCurrencyCode }
func (r *CreateOrderRequest) CallbackURL() string         { return r.callbackURL }
func (r *CreateOrderRequest) SuccessURL() string          { return r.successURL }
func (r *CreateOrderRequest) FailureURL() string          { return r.failureURL }

// ToMap projects the request into its named fields.
func (r *CreateOrderRequest) ToMap() map[string]string {
	return map[string]string{
		"orderId":             r.OrderID(),
		"description":         r.Description(),
		"receiveAmount":       r.ReceiveAmount(),
		"receiveCurrencyCode": r.ReceiveCurrencyCode(),
		"callbackUrl":         r.CallbackURL(),
		"successUrl":          r.SuccessURL(),
		"failureUrl":          r.FailureURL(),
	}
}

// CreateOrderResponse is the success projection of the remote order-create
// endpoint's JSON body.
type CreateOrderResponse struct {
	DepositAddress      string `json:"depositAddress"`
	Memo                string `json:"memo"`
	OrderID             string `json:"orderId"`
	PayAmount           string `json:"payAmount"`
	PayCurrencyCode     string `json:"payCurrencyCode"`
	PreOrderID          string `json:"preOrderId"`
	ReceiveAmount       string `json:"receiveAmount"`
	ReceiveCurrencyCode string `json:"receiveCurrencyCode"`
	RedirectURL         string `json:"redirectUrl"`
	ValidUntil          string `json:"validUntil"`
}

// OrderInfo is the trusted order projection returned by the order lookup
// endpoint; the new callback flow resolves status exclusively through it.
type OrderInfo struct {
	OrderID         string `json:"orderId"`
	Status          string `json:"status"`
	PayAmount       string `json:"payAmount,omitempty"`
	PayCurrencyCode string `json:"payCurrencyCode,omitempty"`
	ReceiveAmount   string `json:"receiveAmount,omitempty"`
	ReceiveCurrency string `json:"receiveCurrencyCode,omitempty"`
}
