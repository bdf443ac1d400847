package service

import (
	"context"
	"time"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

// LegacyPaymentInterface mirrors the CartPaymentInterface's lifecycle
// onto the legacy consumer-charge / stripe-charge tables retained for
// backwards compatibility with pre-CartPayment API clients.
type LegacyPaymentInterface struct {
	repo ports.Repository
}

func NewLegacyPaymentInterface(repo ports.Repository) *LegacyPaymentInterface {
	return &LegacyPaymentInterface{repo: repo}
}

// FindExistingPaymentCharge returns the pre-existing (consumer_charge,
// stripe_charge) pair if a prior attempt under this idempotency key
// already created one. Callers treat a hit as "this step already ran".
func (l *LegacyPaymentInterface) FindExistingPaymentCharge(
	ctx context.Context,
	consumerChargeID int64,
	idempotencyKey string,
) (*domain.LegacyPayment, error) {
	return l.repo.FindExistingLegacyCharge(ctx, consumerChargeID, idempotencyKey)
}

// CreateConsumerCharge creates the LegacyConsumerCharge row for the first
// intent of a cart payment. OriginalTotal is stamped here and never
// modified by any later call.
func (l *LegacyPaymentInterface) CreateConsumerCharge(
	ctx context.Context,
	tx ports.Repository,
	charge *domain.LegacyConsumerCharge,
) error {
	return tx.CreateLegacyConsumerCharge(ctx, charge)
}

// CreateStripeCharge writes the INIT-equivalent legacy row alongside the
// domain PaymentIntent, in the same transaction.
func (l *LegacyPaymentInterface) CreateStripeCharge(
	ctx context.Context,
	tx ports.Repository,
	charge *domain.LegacyStripeCharge,
) error {
	return tx.CreateLegacyStripeCharge(ctx, charge)
}

// UpdateStateAfterProviderSubmission stamps the provider's charge
// resource id and resulting status onto the stripe-charge row.
func (l *LegacyPaymentInterface) UpdateStateAfterProviderSubmission(
	ctx context.Context,
	tx ports.Repository,
	charge *domain.LegacyStripeCharge,
	provider *ports.ProviderIntent,
) error {
	charge.StripeChargeID = provider.ChargeResourceID
	charge.Status = domain.LegacyStripeChargeStatusSucceeded
	charge.UpdatedAt = time.Now()
	return tx.UpdateLegacyStripeCharge(ctx, charge)
}

// UpdateStateAfterProviderError stamps failed onto the stripe-charge row.
func (l *LegacyPaymentInterface) UpdateStateAfterProviderError(
	ctx context.Context,
	tx ports.Repository,
	charge *domain.LegacyStripeCharge,
	cause error,
) error {
	msg := cause.Error()
	charge.Status = domain.LegacyStripeChargeStatusFailed
	charge.ErrorDescription = &msg
	charge.UpdatedAt = time.Now()
	return tx.UpdateLegacyStripeCharge(ctx, charge)
}

// UpdateStateAfterCapture stamps succeeded onto the stripe-charge row
// once the intent it mirrors has been captured.
func (l *LegacyPaymentInterface) UpdateStateAfterCapture(
	ctx context.Context,
	tx ports.Repository,
	charge *domain.LegacyStripeCharge,
) error {
	charge.Status = domain.LegacyStripeChargeStatusSucceeded
	charge.UpdatedAt = time.Now()
	return tx.UpdateLegacyStripeCharge(ctx, charge)
}

// UpdateStateAfterCancel stamps cancelled onto the stripe-charge row.
func (l *LegacyPaymentInterface) UpdateStateAfterCancel(
	ctx context.Context,
	tx ports.Repository,
	charge *domain.LegacyStripeCharge,
) error {
	charge.Amount = 0
	charge.Status = domain.LegacyStripeChargeStatusCancelled
	charge.UpdatedAt = time.Now()
	return tx.UpdateLegacyStripeCharge(ctx, charge)
}

// ApplyAmountChange mirrors an in-place amount adjustment (pre-capture)
// onto the stripe-charge row's Amount.
func (l *LegacyPaymentInterface) ApplyAmountChange(
	ctx context.Context,
	tx ports.Repository,
	charge *domain.LegacyStripeCharge,
	newAmount int64,
) error {
	charge.Amount = newAmount
	charge.UpdatedAt = time.Now()
	return tx.UpdateLegacyStripeCharge(ctx, charge)
}

// ApplyRefund accumulates the refunded amount onto the stripe-charge row.
// AmountRefunded only ever grows.
func (l *LegacyPaymentInterface) ApplyRefund(
	ctx context.Context,
	tx ports.Repository,
	charge *domain.LegacyStripeCharge,
	refundAmount int64,
) error {
	charge.AmountRefunded += refundAmount
	charge.UpdatedAt = time.Now()
	return tx.UpdateLegacyStripeCharge(ctx, charge)
}
