package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
)

// ErrorResponse is the envelope every non-2xx response carries.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string `json:"error_code"`
	Message   string `json:"error_message"`
	Retryable bool   `json:"retryable"`
}

// toHTTPStatus maps the service's wire-visible error taxonomy (§7) to HTTP
// status codes.
func toHTTPStatus(err error) int {
	var pe *domain.PaymentError
	if errors.As(err, &pe) {
		switch pe.Code {
		case domain.ErrCodeCartPaymentNotFound, domain.ErrCodePaymentMethodNotFound:
			return http.StatusNotFound
		case domain.ErrCodeCartPaymentAmountInvalid, domain.ErrCodePaymentMethodPayerMismatch:
			return http.StatusUnprocessableEntity
		case domain.ErrCodeCartPaymentUpdateConflict:
			return http.StatusConflict
		case domain.ErrCodeProviderUnavailable:
			return http.StatusServiceUnavailable
		case domain.ErrCodeProviderError:
			return http.StatusBadGateway
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func toErrorCode(err error) string {
	var pe *domain.PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return "INTERNAL_ERROR"
}

func toRetryable(err error) bool {
	var pe *domain.PaymentError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
