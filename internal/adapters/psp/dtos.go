package psp

import "time"

// These DTOs model the PSP's JSON wire format. They are translated to and
// from ports.ProviderIntent/ports.ProviderRefund at the client boundary so
// nothing outside this package ever sees provider-specific field names.

type createPaymentIntentRequest struct {
	Amount              int64   `json:"amount"`
	Currency            string  `json:"currency"`
	Country             string  `json:"country"`
	PaymentMethodID     string  `json:"payment_method_id"`
	CustomerID          string  `json:"customer_id"`
	CaptureMethod       string  `json:"capture_method"`
	StatementDescriptor *string `json:"statement_descriptor,omitempty"`
}

type paymentIntentResponse struct {
	ResourceID       string    `json:"id"`
	ChargeResourceID string    `json:"charge_id"`
	Status           string    `json:"status"`
	AmountCapturable int64     `json:"amount_capturable"`
	AmountReceived   int64     `json:"amount_received"`
	CreatedAt        time.Time `json:"created_at"`
}

type capturePaymentIntentRequest struct {
	Amount int64 `json:"amount"`
}

type cancelPaymentIntentRequest struct{}

type refundRequest struct {
	Amount int64 `json:"amount"`
}

type refundResponse struct {
	ResourceID string    `json:"id"`
	Status     string    `json:"status"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

type errorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}
