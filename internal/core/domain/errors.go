// Package domain holds the entities, state machine, and error taxonomy of
// the cart payment processor. It has no dependency on transport, storage,
// or the PSP client — those are reached through internal/core/ports.
package domain

import (
	"errors"
	"fmt"
)

// Error codes form the client-facing taxonomy from the service's error
// contract. They are carried on the wire, not Go type names.
const (
	ErrCodeCartPaymentNotFound       = "CART_PAYMENT_NOT_FOUND"
	ErrCodeCartPaymentAmountInvalid  = "CART_PAYMENT_AMOUNT_INVALID"
	ErrCodeCartPaymentUpdateConflict = "CART_PAYMENT_UPDATE_CONFLICT"
	ErrCodePaymentMethodNotFound     = "PAYMENT_METHOD_NOT_FOUND"
	ErrCodePaymentMethodPayerMismatch = "PAYMENT_METHOD_PAYER_MISMATCH"
	ErrCodeProviderError             = "PROVIDER_ERROR"
	ErrCodeProviderUnavailable       = "PROVIDER_UNAVAILABLE"
)

// PaymentError is the single error type that crosses every layer boundary
// in this service. Validation, lookup, and provider failures are all
// PaymentErrors distinguished by Code; there is no exception-style control
// flow, only explicit propagation.
type PaymentError struct {
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// IsRetryable satisfies the Retryable interface so callers that only have
// an `error` in hand can still ask whether retrying makes sense.
func (e *PaymentError) IsRetryable() bool {
	return e.Retryable
}

// Retryable is implemented by any error carrying retry guidance.
type Retryable interface {
	IsRetryable() bool
}

// IsCode reports whether err is a *PaymentError with the given code.
func IsCode(err error, code string) bool {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

func NewCartPaymentNotFoundError(id string) *PaymentError {
	return &PaymentError{
		Code:      ErrCodeCartPaymentNotFound,
		Message:   fmt.Sprintf("cart payment %s not found", id),
		Retryable: false,
	}
}

func NewCartPaymentAmountInvalidError(amount int64) *PaymentError {
	return &PaymentError{
		Code:      ErrCodeCartPaymentAmountInvalid,
		Message:   fmt.Sprintf("invalid amount %d", amount),
		Retryable: false,
	}
}

func NewCartPaymentUpdateConflictError(cartPaymentID string) *PaymentError {
	return &PaymentError{
		Code:      ErrCodeCartPaymentUpdateConflict,
		Message:   fmt.Sprintf("concurrent update lost the race for cart payment %s", cartPaymentID),
		Retryable: true,
	}
}

func NewPaymentMethodNotFoundError(payerID, paymentMethodID string) *PaymentError {
	return &PaymentError{
		Code:      ErrCodePaymentMethodNotFound,
		Message:   fmt.Sprintf("payment method %s not found for payer %s", paymentMethodID, payerID),
		Retryable: false,
	}
}

func NewPaymentMethodPayerMismatchError(payerID, paymentMethodID string) *PaymentError {
	return &PaymentError{
		Code:      ErrCodePaymentMethodPayerMismatch,
		Message:   fmt.Sprintf("payment method %s does not belong to payer %s", paymentMethodID, payerID),
		Retryable: false,
	}
}

func NewProviderError(message string, retryable bool, cause error) *PaymentError {
	return &PaymentError{
		Code:      ErrCodeProviderError,
		Message:   message,
		Retryable: retryable,
		Err:       cause,
	}
}

func NewProviderUnavailableError(cause error) *PaymentError {
	return &PaymentError{
		Code:      ErrCodeProviderUnavailable,
		Message:   "payment service provider unavailable",
		Retryable: true,
		Err:       cause,
	}
}
