package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
)

// Repository persists cart payments, payment intents, their PSP mirrors,
// adjustment history, refunds, and the legacy charge projection. It
// enforces uniqueness on (cart_payment_id, idempotency_key) and the
// analogous legacy/refund/adjustment keys at the storage layer.
//
// All multi-step writes go through WithTx so the processor never holds a
// transaction open across a PSP call.
type Repository interface {
	// WithTx runs fn against a Repository bound to a single transaction.
	// A non-nil return from fn rolls the transaction back.
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	// LockCartPaymentForUpdate takes the cart payment's row lock so that
	// concurrent mutations against the same cart payment serialize. Must
	// be called from inside WithTx.
	LockCartPaymentForUpdate(ctx context.Context, id uuid.UUID) (*domain.CartPayment, error)

	GetCartPaymentByID(ctx context.Context, id uuid.UUID) (*domain.CartPayment, error)
	CreateCartPayment(ctx context.Context, cp *domain.CartPayment) error
	UpdateCartPaymentAmount(ctx context.Context, id uuid.UUID, amount int64) error

	GetPaymentIntentsForCartPayment(ctx context.Context, cartPaymentID uuid.UUID) ([]*domain.PaymentIntent, error)
	GetPaymentIntentForIdempotencyKey(ctx context.Context, cartPaymentID uuid.UUID, key string) (*domain.PaymentIntent, error)
	// GetPaymentIntentByIdempotencyKeyGlobal looks up a payment intent by
	// idempotency key across all cart payments. Used only by the create
	// path, before a cart payment id exists to scope the lookup to.
	GetPaymentIntentByIdempotencyKeyGlobal(ctx context.Context, key string) (*domain.PaymentIntent, error)
	GetPaymentIntentByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error)
	CreatePaymentIntent(ctx context.Context, pi *domain.PaymentIntent) error
	UpdatePaymentIntent(ctx context.Context, pi *domain.PaymentIntent) error

	FindPgpPaymentIntents(ctx context.Context, paymentIntentID uuid.UUID) ([]*domain.PgpPaymentIntent, error)
	CreatePgpPaymentIntent(ctx context.Context, p *domain.PgpPaymentIntent) error
	UpdatePgpPaymentIntent(ctx context.Context, p *domain.PgpPaymentIntent) error

	AppendAdjustmentHistory(ctx context.Context, h *domain.PaymentIntentAdjustmentHistory) error

	GetRefundForIdempotencyKey(ctx context.Context, paymentIntentID uuid.UUID, key string) (*domain.Refund, error)
	SumRefundedAmount(ctx context.Context, paymentIntentID uuid.UUID) (int64, error)
	CreateRefund(ctx context.Context, r *domain.Refund) error
	UpdateRefund(ctx context.Context, r *domain.Refund) error
	CreatePgpRefund(ctx context.Context, r *domain.PgpRefund) error
	UpdatePgpRefund(ctx context.Context, r *domain.PgpRefund) error

	FindExistingLegacyCharge(ctx context.Context, consumerChargeID int64, idempotencyKey string) (*domain.LegacyPayment, error)
	GetLegacyConsumerChargeForCartPayment(ctx context.Context, cartPaymentID uuid.UUID) (*domain.LegacyConsumerCharge, error)
	GetLegacyConsumerChargeByDDChargeID(ctx context.Context, ddChargeID int64) (*domain.LegacyConsumerCharge, error)
	// GetCartPaymentIDForLegacyConsumerCharge follows a legacy consumer
	// charge back to the cart payment whose payment intents carry its id
	// as legacy_consumer_charge_id. Used by the legacy-charge-id variants
	// of cancel_payment and update_payment.
	GetCartPaymentIDForLegacyConsumerCharge(ctx context.Context, consumerChargeID int64) (uuid.UUID, error)
	CreateLegacyConsumerCharge(ctx context.Context, c *domain.LegacyConsumerCharge) error
	// UpdateLegacyConsumerChargeIdentifiers stamps the legacy consumer/country
	// identifiers a legacy_create_payment caller supplies directly; it never
	// touches OriginalTotal, which is set once at creation and immutable
	// thereafter.
	UpdateLegacyConsumerChargeIdentifiers(ctx context.Context, c *domain.LegacyConsumerCharge) error
	CreateLegacyStripeCharge(ctx context.Context, c *domain.LegacyStripeCharge) error
	UpdateLegacyStripeCharge(ctx context.Context, c *domain.LegacyStripeCharge) error
	GetLegacyStripeChargeForPaymentIntent(ctx context.Context, paymentIntentID uuid.UUID) (*domain.LegacyStripeCharge, error)

	// FindPaymentIntentsThatRequireCaptureBeforeCutoff returns a finite,
	// forward-only cursor over intents in REQUIRES_CAPTURE whose
	// capture_after deadline is at or before cutoff. The driver may pause
	// between items; the cursor is not restartable.
	FindPaymentIntentsThatRequireCaptureBeforeCutoff(ctx context.Context, cutoff time.Time, batchSize int) (CaptureCursor, error)
}

// CaptureCursor is a finite, forward-only stream over payment intents due
// for deferred capture, in the style of database/sql's Rows / pgx.Rows.
type CaptureCursor interface {
	// Next advances the cursor. It returns false when the stream is
	// exhausted or an error occurred; check Err() afterward.
	Next(ctx context.Context) bool
	PaymentIntent() *domain.PaymentIntent
	Err() error
	Close()
}
