package model

import (
	"fmt"
	"strings"
)

// APIError is the failure half of every merchant API result. Auth, transport,
// parse and remote-reported business errors all collapse into this shape.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes used across the client.
const (
	CodeAuthError       = "AuthError"
	CodeTransportError  = "TransportError"
	CodeValidationError = "ValidationError"
	CodeInvalidResponse = "Invalid Response"
)

func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// ValidationError reports every failing field of a payload at once, never just
// the first.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid payload, failed fields: " + strings.Join(e.Fields, ", ")
}

// SignatureError marks a legacy callback whose RSA signature did not verify.
type SignatureError struct {
	Detail string
}

func (e *SignatureError) Error() string {
	if e.Detail == "" {
		return "callback signature verification failed"
	}
	return "callback signature verification failed: " + e.Detail
}

// UnknownStatusError marks a remote order status outside the known set.
type UnknownStatusError struct {
	Raw string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown order status %q", e.Raw)
}
