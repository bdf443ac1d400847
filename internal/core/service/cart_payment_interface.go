package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

// CartPaymentInterface is the pure domain layer over the repository. It
// owns every state transition of a PaymentIntent and its PgpPaymentIntent
// mirror, and is the single place that calls the PSP for create/authorize.
// It never decides *when* to run a transition — that is the processor's
// job — only *how* to apply one.
type CartPaymentInterface struct {
	repo ports.Repository
	psp  ports.PSPGateway
}

func NewCartPaymentInterface(repo ports.Repository, psp ports.PSPGateway) *CartPaymentInterface {
	return &CartPaymentInterface{repo: repo, psp: psp}
}

func (c *CartPaymentInterface) GetCartPaymentByID(ctx context.Context, id uuid.UUID) (*domain.CartPayment, error) {
	return c.repo.GetCartPaymentByID(ctx, id)
}

func (c *CartPaymentInterface) GetPaymentIntentsForCartPayment(ctx context.Context, cartPaymentID uuid.UUID) ([]*domain.PaymentIntent, error) {
	return c.repo.GetPaymentIntentsForCartPayment(ctx, cartPaymentID)
}

func (c *CartPaymentInterface) FindPgpPaymentIntents(ctx context.Context, paymentIntentID uuid.UUID) ([]*domain.PgpPaymentIntent, error) {
	return c.repo.FindPgpPaymentIntents(ctx, paymentIntentID)
}

func (c *CartPaymentInterface) GetPaymentIntentForIdempotencyKey(ctx context.Context, cartPaymentID uuid.UUID, key string) (*domain.PaymentIntent, error) {
	return c.repo.GetPaymentIntentForIdempotencyKey(ctx, cartPaymentID, key)
}

// latestPgpPaymentIntent returns the PgpPaymentIntent currently mirroring
// intent. Every PaymentIntent owns exactly one, per the data model's
// ownership invariant.
func (c *CartPaymentInterface) latestPgpPaymentIntent(ctx context.Context, intent *domain.PaymentIntent) (*domain.PgpPaymentIntent, error) {
	pgpIntents, err := c.repo.FindPgpPaymentIntents(ctx, intent.ID)
	if err != nil {
		return nil, err
	}
	if len(pgpIntents) == 0 {
		return nil, fmt.Errorf("payment intent %s has no pgp payment intent mirror", intent.ID)
	}
	return pgpIntents[len(pgpIntents)-1], nil
}

// SubmitPaymentToProvider is the single call site that reaches the PSP to
// create/authorize a payment intent. It does not mutate any repository
// state; the caller applies the outcome via UpdateStateAfterProviderSubmission
// or UpdateStateAfterProviderError in a follow-up transaction, since a
// transaction is never held open across this call.
func (c *CartPaymentInterface) SubmitPaymentToProvider(
	ctx context.Context,
	intent *domain.PaymentIntent,
	paymentMethod *ports.RawPaymentMethod,
	payerCountry string,
) (*ports.ProviderIntent, error) {
	return c.psp.CreatePaymentIntent(ctx, ports.CreatePaymentIntentRequest{
		IdempotencyKey:  intent.IdempotencyKey,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Country:         payerCountry,
		PaymentMethodID: paymentMethod.PSPPaymentMethodResourceID,
		CaptureMethod:   intent.CaptureMethod,
	})
}

// UpdateStateAfterProviderSubmission applies a successful provider
// response to the domain intent and its mirror. Per the state machine:
// manual capture intents move to REQUIRES_CAPTURE, auto capture intents
// move straight to SUCCEEDED with amount_received = amount. Must run
// inside the caller's transaction.
func (c *CartPaymentInterface) UpdateStateAfterProviderSubmission(
	ctx context.Context,
	tx ports.Repository,
	intent *domain.PaymentIntent,
	pgpIntent *domain.PgpPaymentIntent,
	provider *ports.ProviderIntent,
) error {
	now := time.Now()

	pgpIntent.ResourceID = provider.ResourceID
	pgpIntent.ChargeResourceID = provider.ChargeResourceID
	pgpIntent.Status = provider.Status
	pgpIntent.AmountCapturable = provider.AmountCapturable
	pgpIntent.AmountReceived = provider.AmountReceived
	pgpIntent.UpdatedAt = now

	if intent.CaptureMethod == domain.CaptureMethodManual {
		intent.Status = domain.PaymentIntentStatusRequiresCapture
		intent.AmountCapturable = intent.Amount
	} else {
		intent.Status = domain.PaymentIntentStatusSucceeded
		intent.AmountReceived = intent.Amount
		intent.AmountCapturable = 0
		intent.CapturedAt = &now
	}
	intent.UpdatedAt = now

	if err := tx.UpdatePgpPaymentIntent(ctx, pgpIntent); err != nil {
		return err
	}
	return tx.UpdatePaymentIntent(ctx, intent)
}

// UpdateStateAfterProviderAcceptedCommando records provisional acceptance
// when the PSP gateway is in commando mode: the intent advances as if
// submission had succeeded, but the PSP resource id is left blank so a
// later reconciliation pass (out of scope here) can reattach it.
func (c *CartPaymentInterface) UpdateStateAfterProviderAcceptedCommando(
	ctx context.Context,
	tx ports.Repository,
	intent *domain.PaymentIntent,
	pgpIntent *domain.PgpPaymentIntent,
) error {
	now := time.Now()

	if intent.CaptureMethod == domain.CaptureMethodManual {
		intent.Status = domain.PaymentIntentStatusRequiresCapture
		pgpIntent.Status = domain.PgpPaymentIntentStatusRequiresCapture
		intent.AmountCapturable = intent.Amount
		pgpIntent.AmountCapturable = intent.Amount
	} else {
		intent.Status = domain.PaymentIntentStatusSucceeded
		pgpIntent.Status = domain.PgpPaymentIntentStatusSucceeded
		intent.AmountReceived = intent.Amount
		pgpIntent.AmountReceived = intent.Amount
		intent.CapturedAt = &now
	}
	intent.UpdatedAt = now
	pgpIntent.UpdatedAt = now

	if err := tx.UpdatePgpPaymentIntent(ctx, pgpIntent); err != nil {
		return err
	}
	return tx.UpdatePaymentIntent(ctx, intent)
}

// UpdateStateAfterProviderError stamps FAILED onto the intent and its
// mirror. No PaymentIntent is ever left in INIT after the request that
// created it returns.
func (c *CartPaymentInterface) UpdateStateAfterProviderError(
	ctx context.Context,
	tx ports.Repository,
	intent *domain.PaymentIntent,
	pgpIntent *domain.PgpPaymentIntent,
	cause error,
) error {
	now := time.Now()

	intent.Status = domain.PaymentIntentStatusFailed
	intent.UpdatedAt = now

	pgpIntent.Status = domain.PgpPaymentIntentStatusFailed
	pgpIntent.UpdatedAt = now
	msg := cause.Error()
	pgpIntent.ErrorMessage = &msg

	if err := tx.UpdatePgpPaymentIntent(ctx, pgpIntent); err != nil {
		return err
	}
	return tx.UpdatePaymentIntent(ctx, intent)
}

// UpdateStateAfterCapture applies a successful PSP capture response.
func (c *CartPaymentInterface) UpdateStateAfterCapture(
	ctx context.Context,
	tx ports.Repository,
	intent *domain.PaymentIntent,
	pgpIntent *domain.PgpPaymentIntent,
	provider *ports.ProviderIntent,
) error {
	now := time.Now()

	intent.Status = domain.PaymentIntentStatusSucceeded
	intent.AmountReceived = intent.AmountCapturable
	intent.AmountCapturable = 0
	intent.CapturedAt = &now
	intent.UpdatedAt = now

	pgpIntent.Status = domain.PgpPaymentIntentStatusSucceeded
	pgpIntent.AmountReceived = provider.AmountReceived
	pgpIntent.AmountCapturable = 0
	pgpIntent.ChargeResourceID = provider.ChargeResourceID
	pgpIntent.UpdatedAt = now

	if err := tx.UpdatePgpPaymentIntent(ctx, pgpIntent); err != nil {
		return err
	}
	return tx.UpdatePaymentIntent(ctx, intent)
}

// UpdateStateAfterCancel applies a successful PSP cancel response to an
// intent that had not yet been captured.
func (c *CartPaymentInterface) UpdateStateAfterCancel(
	ctx context.Context,
	tx ports.Repository,
	intent *domain.PaymentIntent,
	pgpIntent *domain.PgpPaymentIntent,
) error {
	now := time.Now()

	intent.Status = domain.PaymentIntentStatusCancelled
	intent.Amount = 0
	intent.AmountCapturable = 0
	intent.CancelledAt = &now
	intent.UpdatedAt = now

	pgpIntent.Status = domain.PgpPaymentIntentStatusCancelled
	pgpIntent.AmountCapturable = 0
	pgpIntent.UpdatedAt = now

	if err := tx.UpdatePgpPaymentIntent(ctx, pgpIntent); err != nil {
		return err
	}
	return tx.UpdatePaymentIntent(ctx, intent)
}

// LowerAmountBeforeCapture reduces an uncaptured intent's amount in place
// and appends the adjustment-history row. No PSP call is required since
// nothing has been captured yet.
func (c *CartPaymentInterface) LowerAmountBeforeCapture(
	ctx context.Context,
	tx ports.Repository,
	intent *domain.PaymentIntent,
	idempotencyKey string,
	newAmount int64,
) error {
	delta := newAmount - intent.Amount
	original := intent.Amount

	intent.Amount = newAmount
	intent.AmountCapturable = newAmount
	intent.UpdatedAt = time.Now()

	if err := tx.UpdatePaymentIntent(ctx, intent); err != nil {
		return err
	}

	return tx.AppendAdjustmentHistory(ctx, &domain.PaymentIntentAdjustmentHistory{
		ID:              uuid.New(),
		PaymentIntentID: intent.ID,
		IdempotencyKey:  idempotencyKey,
		AmountOriginal:  original,
		AmountDelta:     delta,
		Amount:          newAmount,
		CreatedAt:       time.Now(),
	})
}

// RaiseAmountBeforeCapture increases an uncaptured intent's amount in
// place, used when the new total still fits under the PSP-authorized
// limit. Appends the adjustment-history row.
func (c *CartPaymentInterface) RaiseAmountBeforeCapture(
	ctx context.Context,
	tx ports.Repository,
	intent *domain.PaymentIntent,
	idempotencyKey string,
	newAmount int64,
) error {
	return c.LowerAmountBeforeCapture(ctx, tx, intent, idempotencyKey, newAmount)
}

// ApplyRefund records a refund's outcome on the domain intent: the
// intent's remaining amount drops by the refunded amount, but
// amount_received — what the PSP actually captured — is left at its
// historical value. Status stays SUCCEEDED regardless of how much of it
// has been refunded; Classify derives PARTIALLY_REFUNDED/FULLY_REFUNDED
// from the refund total, not from a stored status.
func (c *CartPaymentInterface) ApplyRefund(
	ctx context.Context,
	tx ports.Repository,
	intent *domain.PaymentIntent,
	refund *domain.Refund,
	pgpRefund *domain.PgpRefund,
	provider *ports.ProviderRefund,
) error {
	now := time.Now()

	refund.Status = domain.RefundStatusSucceeded
	refund.UpdatedAt = now
	pgpRefund.Status = domain.RefundStatusSucceeded
	pgpRefund.ResourceID = provider.ResourceID
	pgpRefund.UpdatedAt = now

	intent.Amount -= refund.Amount
	if intent.Amount < 0 {
		intent.Amount = 0
	}
	intent.UpdatedAt = now

	if err := tx.UpdateRefund(ctx, refund); err != nil {
		return err
	}
	if err := tx.UpdatePgpRefund(ctx, pgpRefund); err != nil {
		return err
	}
	return tx.UpdatePaymentIntent(ctx, intent)
}
