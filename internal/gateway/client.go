// Package gateway implements the merchant-side client for the remote payment
// gateway: order creation, order lookup, and legacy callback processing.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptopay/internal/metrics"
	"cryptopay/internal/model"
	"cryptopay/internal/sanitize"
	"cryptopay/internal/secure"
	"cryptopay/internal/token"
)

// The legacy order-create path never forwards the platform's own callback
// URLs; the gateway keys callbacks to the merchant project instead. The
// placeholder below is part of the wire contract.
const placeholderURL = "http://localhost.com"

type Client struct {
	APIURL             string
	ProjectID          string
	Tokens             *token.Manager
	Keys               *secure.KeySource
	HTTP               *http.Client
	AcceptedCurrencies []string
}

func NewClient(apiURL, projectID string, tokens *token.Manager, keys *secure.KeySource) *Client {
	return &Client{
		APIURL:    strings.TrimRight(apiURL, "/"),
		ProjectID: projectID,
		Tokens:    tokens,
		Keys:      keys,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
}

// orderPayload is the order-create wire shape, project id included.
type orderPayload struct {
	OrderID             string `json:"orderId"`
	ProjectID           string `json:"projectId"`
	Description         string `json:"description"`
	ReceiveAmount       string `json:"receiveAmount"`
	ReceiveCurrencyCode string `json:"receiveCurrencyCode"`
	CallbackURL         string `json:"callbackUrl"`
	SuccessURL          string `json:"successUrl"`
	FailureURL          string `json:"failureUrl"`
}

// CreateOrder obtains a valid token, builds and re-validates the wire
// payload, POSTs it, and maps the result onto exactly one of the two
// outcomes. Transport failures never escape as raw errors.
func (c *Client) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResponse, *model.APIError) {
	if apiErr := c.checkCurrency(req.ReceiveCurrencyCode()); apiErr != nil {
		metrics.OrdersCreated.WithLabelValues("rejected").Inc()
		return nil, apiErr
	}

	tok, apiErr := c.Tokens.GetValidToken(ctx)
	if apiErr != nil {
		metrics.OrdersCreated.WithLabelValues("auth_error").Inc()
		return nil, model.NewAPIError(model.CodeAuthError, "Failed to obtain access token")
	}

	payload := orderPayload{
		OrderID:             req.OrderID(),
		ProjectID:           c.ProjectID,
		Description:         req.Description(),
		ReceiveAmount:       req.ReceiveAmount(),
		ReceiveCurrencyCode: req.ReceiveCurrencyCode(),
		CallbackURL:         placeholderURL,
		SuccessURL:          placeholderURL,
		FailureURL:          placeholderURL,
	}
	if err := validatePayload(payload); err != nil {
		metrics.OrdersCreated.WithLabelValues("rejected").Inc()
		return nil, model.NewAPIError(model.CodeValidationError, err.Error())
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, model.NewAPIError(model.CodeValidationError, err.Error())
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/merchants/orders/create", bytes.NewReader(body))
	if err != nil {
		return nil, model.NewAPIError(model.CodeTransportError, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		metrics.OrdersCreated.WithLabelValues("transport_error").Inc()
		return nil, model.NewAPIError(model.CodeTransportError, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.OrdersCreated.WithLabelValues("transport_error").Inc()
		return nil, model.NewAPIError(model.CodeTransportError, err.Error())
	}

	if resp.StatusCode == http.StatusOK && len(raw) > 0 {
		// A business error arrives as a JSON array of {code, message}.
		if firstByte(raw) == '[' {
			var remote []model.APIError
			if err := json.Unmarshal(raw, &remote); err == nil && len(remote) > 0 {
				metrics.OrdersCreated.WithLabelValues("remote_error").Inc()
				return nil, &remote[0]
			}
		} else {
			var out model.CreateOrderResponse
			if err := json.Unmarshal(raw, &out); err == nil && out.OrderID != "" {
				metrics.OrdersCreated.WithLabelValues("ok").Inc()
				return &out, nil
			}
		}
	}
	metrics.OrdersCreated.WithLabelValues("invalid_response").Inc()
	return nil, model.NewAPIError(model.CodeInvalidResponse, "No valid response received.")
}

// GetOrderById-style lookup: the new callback flow resolves trusted order
// state from the gateway instead of trusting client-supplied fields.
func (c *Client) GetOrderByID(ctx context.Context, id string) (*model.OrderInfo, *model.APIError) {
	tok, apiErr := c.Tokens.GetValidToken(ctx)
	if apiErr != nil {
		return nil, model.NewAPIError(model.CodeAuthError, "Failed to obtain access token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+"/merchants/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, model.NewAPIError(model.CodeTransportError, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, model.NewAPIError(model.CodeTransportError, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewAPIError(model.CodeInvalidResponse, fmt.Sprintf("order lookup returned status %d", resp.StatusCode))
	}
	var info model.OrderInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, model.NewAPIError(model.CodeInvalidResponse, err.Error())
	}
	if info.OrderID == "" || info.Status == "" {
		return nil, model.NewAPIError(model.CodeInvalidResponse, "order lookup response missing orderId or status")
	}
	return &info, nil
}

// ProcessCallback sanitizes, validates and signature-checks a legacy
// form-encoded callback. The error reports the failing stage; the embedded
// status may be trusted only on success.
func (c *Client) ProcessCallback(values url.Values) (*model.OldOrderCallback, error) {
	cb, err := model.NewOldOrderCallback(values)
	if err != nil {
		log.Printf("callback validation failed: %v", err)
		return nil, err
	}
	ok, verr := c.Keys.Verify(cb.CanonicalPayload(), cb.Sign)
	if !ok {
		if verr != nil {
			log.Printf("callback signature check failed: %v", verr)
			return nil, &model.SignatureError{Detail: verr.Error()}
		}
		return nil, &model.SignatureError{}
	}
	return cb, nil
}

func (c *Client) checkCurrency(code string) *model.APIError {
	if len(c.AcceptedCurrencies) == 0 {
		return nil
	}
	for _, accepted := range c.AcceptedCurrencies {
		if strings.EqualFold(code, accepted) {
			return nil
		}
	}
	return model.NewAPIError(model.CodeValidationError, fmt.Sprintf("currency %s is not accepted", code))
}

// validatePayload re-checks the sanitized wire payload just before the
// network call; a payload that fails here is rejected without one.
func validatePayload(p orderPayload) error {
	switch {
	case p.OrderID == "":
		return fmt.Errorf("orderId is empty")
	case p.ProjectID == "":
		return fmt.Errorf("projectId is empty")
	case p.Description == "":
		return fmt.Errorf("description is empty")
	case len(p.ReceiveCurrencyCode) != 3:
		return fmt.Errorf("receiveCurrencyCode is not 3 characters long")
	}
	amount, ok := sanitize.Amount(p.ReceiveAmount)
	if !ok || amount.Sign() <= 0 {
		return fmt.Errorf("receiveAmount is not positive")
	}
	for _, u := range []string{p.CallbackURL, p.SuccessURL, p.FailureURL} {
		if !sanitize.ValidURL(u) {
			return fmt.Errorf("invalid url in payload: %s", u)
		}
	}
	return nil
}

func firstByte(raw []byte) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}
