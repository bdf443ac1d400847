package ports

import (
	"context"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
)

// ProviderIntent is what the PSP hands back from a create/capture/cancel
// call: enough to stamp onto the PgpPaymentIntent mirror.
type ProviderIntent struct {
	ResourceID       string
	ChargeResourceID string
	Status           domain.PgpPaymentIntentStatus
	AmountCapturable int64
	AmountReceived   int64
}

// ProviderRefund is what the PSP hands back from a refund call.
type ProviderRefund struct {
	ResourceID string
	Status     domain.RefundStatus
	Amount     int64
}

// CreatePaymentIntentRequest is the outbound authorize/create call.
type CreatePaymentIntentRequest struct {
	IdempotencyKey  string
	Amount          int64
	Currency        string
	Country         string
	PaymentMethodID string
	PayerID         string
	CaptureMethod   domain.CaptureMethod
	StatementDescriptor *string
}

// PSPGateway wraps the external provider's authorize/capture/cancel/refund
// lifecycle. A process-wide commando flag, toggled through SetCommando,
// short-circuits outbound calls when the provider is known to be down;
// callers ask IsCommando to decide whether to skip the call entirely.
type PSPGateway interface {
	CreatePaymentIntent(ctx context.Context, req CreatePaymentIntentRequest) (*ProviderIntent, error)
	CapturePaymentIntent(ctx context.Context, resourceID string, amount int64) (*ProviderIntent, error)
	CancelPaymentIntent(ctx context.Context, resourceID string) (*ProviderIntent, error)
	RefundCharge(ctx context.Context, chargeResourceID string, idempotencyKey string, amount int64) (*ProviderRefund, error)

	IsCommando() bool
	SetCommando(enabled bool)
}

// PayerClient resolves a payer identity to a tokenized PSP customer
// handle. Payer management itself is out of scope for this service.
type PayerClient interface {
	GetRawPayer(ctx context.Context, payerID string) (*RawPayer, error)
}

// RawPayer is the tokenized PSP-side representation of a payer.
type RawPayer struct {
	PayerID           string
	PSPCustomerResourceID string
	Country           string
}

// PaymentMethodClient resolves a payer+payment-method pair to a tokenized
// PSP payment-method handle. Payment-method management itself is out of
// scope for this service.
type PaymentMethodClient interface {
	GetRawPaymentMethod(ctx context.Context, payerID, paymentMethodID string) (*RawPaymentMethod, error)
}

// RawPaymentMethod is the tokenized PSP-side representation of a payment
// method.
type RawPaymentMethod struct {
	PaymentMethodID          string
	PSPPaymentMethodResourceID string
}
