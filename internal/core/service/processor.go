// Package service implements the domain-level cart payment lifecycle:
// the pure CartPaymentInterface and LegacyPaymentInterface state-apply
// helpers, and the CartPaymentProcessor that orchestrates them against
// the repository and the PSP gateway.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

// ProcessorConfig carries the handful of values the orchestrator needs
// that aren't a collaborator: capture defaults and legacy description
// truncation length.
type ProcessorConfig struct {
	DelayCaptureDefault bool
	DefaultCaptureAfter time.Duration
	CaptureSweepCutoff  time.Duration
	DescriptionMaxLen   int
}

// CartPaymentProcessor is the top-level orchestrator: it drives
// create/adjust-up/adjust-down/cancel/capture across the Cart-Payment
// Interface, the Legacy Payment Interface, and the repository, with
// idempotency gating and post-failure compensation.
type CartPaymentProcessor struct {
	repo                ports.Repository
	psp                 ports.PSPGateway
	payerClient         ports.PayerClient
	paymentMethodClient ports.PaymentMethodClient
	cartIntf            *CartPaymentInterface
	legacyIntf          *LegacyPaymentInterface
	cfg                 ProcessorConfig
}

func NewCartPaymentProcessor(
	repo ports.Repository,
	psp ports.PSPGateway,
	payerClient ports.PayerClient,
	paymentMethodClient ports.PaymentMethodClient,
	cfg ProcessorConfig,
) *CartPaymentProcessor {
	return &CartPaymentProcessor{
		repo:                repo,
		psp:                 psp,
		payerClient:         payerClient,
		paymentMethodClient: paymentMethodClient,
		cartIntf:            NewCartPaymentInterface(repo, psp),
		legacyIntf:          NewLegacyPaymentInterface(repo),
		cfg:                 cfg,
	}
}

// CreatePaymentRequest is the inbound shape for create_payment.
type CreatePaymentRequest struct {
	PayerID           string
	PaymentMethodID   string
	Amount            int64
	DelayCapture      bool
	ReferenceID       string
	ReferenceType     string
	ClientDescription *string
	SplitPayment      *domain.SplitPayment
	Metadata          map[string]string
}

// CreatePayment implements §4.4.1. Any client retry of the same
// idempotency key — at any point of failure — converges on the same
// CartPayment.
func (p *CartPaymentProcessor) CreatePayment(
	ctx context.Context,
	req CreatePaymentRequest,
	idempotencyKey string,
	country string,
	currency string,
) (*domain.CartPayment, error) {
	if existing, err := p.repo.GetPaymentIntentByIdempotencyKeyGlobal(ctx, idempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return p.repo.GetCartPaymentByID(ctx, existing.CartPaymentID)
	}

	rawPayer, err := p.payerClient.GetRawPayer(ctx, req.PayerID)
	if err != nil {
		return nil, err
	}
	rawMethod, err := p.paymentMethodClient.GetRawPaymentMethod(ctx, req.PayerID, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cartPayment := &domain.CartPayment{
		ID:                 uuid.New(),
		PayerID:            req.PayerID,
		PaymentMethodID:    req.PaymentMethodID,
		Amount:             req.Amount,
		DelayCapture:       req.DelayCapture,
		Currency:           currency,
		Country:            country,
		ReferenceID:        req.ReferenceID,
		ReferenceType:      req.ReferenceType,
		ClientDescription:  p.truncatedDescription(req.ClientDescription),
		SplitPayment:       req.SplitPayment,
		Metadata:           req.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	captureMethod := domain.CaptureMethodAuto
	var captureAfter *time.Time
	if req.DelayCapture {
		captureMethod = domain.CaptureMethodManual
		deadline := now.Add(p.cfg.DefaultCaptureAfter)
		captureAfter = &deadline
	}

	consumerCharge := &domain.LegacyConsumerCharge{
		ID:            newLegacyID(),
		OriginalTotal: req.Amount,
		PayerID:       req.PayerID,
		CreatedAt:     now,
	}

	intent := &domain.PaymentIntent{
		ID:             uuid.New(),
		CartPaymentID:  cartPayment.ID,
		IdempotencyKey: idempotencyKey,
		Amount:         req.Amount,
		Currency:       currency,
		Country:        country,
		CaptureMethod:  captureMethod,
		Status:         domain.PaymentIntentStatusInit,
		CaptureAfter:   captureAfter,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	pgpIntent := &domain.PgpPaymentIntent{
		ID:              uuid.New(),
		PaymentIntentID: intent.ID,
		Status:          domain.PgpPaymentIntentStatusInit,
		Amount:          req.Amount,
		Currency:        currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stripeCharge := &domain.LegacyStripeCharge{
		ID:             newLegacyID(),
		IdempotencyKey: idempotencyKey,
		Amount:         req.Amount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// consumerCharge must be inserted first: its id is assigned by the
	// legacy table's sequence, and both intent and stripeCharge carry it
	// as a foreign key.
	err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
		if err := tx.CreateCartPayment(ctx, cartPayment); err != nil {
			return err
		}
		if err := tx.CreateLegacyConsumerCharge(ctx, consumerCharge); err != nil {
			return err
		}
		intent.LegacyConsumerChargeID = consumerCharge.ID
		stripeCharge.ConsumerChargeID = consumerCharge.ID
		if err := tx.CreatePaymentIntent(ctx, intent); err != nil {
			return err
		}
		if err := tx.CreatePgpPaymentIntent(ctx, pgpIntent); err != nil {
			return err
		}
		return tx.CreateLegacyStripeCharge(ctx, stripeCharge)
	})
	if err != nil {
		return nil, err
	}

	if p.psp.IsCommando() {
		err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
			if err := p.cartIntf.UpdateStateAfterProviderAcceptedCommando(ctx, tx, intent, pgpIntent); err != nil {
				return err
			}
			return applyCommandoLegacyOutcome(ctx, tx, p.legacyIntf, stripeCharge, intent)
		})
		if err != nil {
			return nil, err
		}
		return p.repo.GetCartPaymentByID(ctx, cartPayment.ID)
	}

	provider, submitErr := p.cartIntf.SubmitPaymentToProvider(ctx, intent, &ports.RawPaymentMethod{PSPPaymentMethodResourceID: rawMethod.PSPPaymentMethodResourceID}, country)
	if submitErr != nil {
		applyErr := p.repo.WithTx(ctx, func(tx ports.Repository) error {
			if err := p.cartIntf.UpdateStateAfterProviderError(ctx, tx, intent, pgpIntent, submitErr); err != nil {
				return err
			}
			return p.legacyIntf.UpdateStateAfterProviderError(ctx, tx, stripeCharge, submitErr)
		})
		if applyErr != nil {
			return nil, applyErr
		}
		return nil, submitErr
	}

	err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
		if err := p.cartIntf.UpdateStateAfterProviderSubmission(ctx, tx, intent, pgpIntent, provider); err != nil {
			return err
		}
		return p.legacyIntf.UpdateStateAfterProviderSubmission(ctx, tx, stripeCharge, provider)
	})
	if err != nil {
		return nil, err
	}

	_ = rawPayer // payer resolved for ownership validation only; no further use here
	return p.repo.GetCartPaymentByID(ctx, cartPayment.ID)
}

// applyCommandoLegacyOutcome mirrors commando-mode provisional acceptance
// onto the legacy stripe-charge row.
func applyCommandoLegacyOutcome(ctx context.Context, tx ports.Repository, legacy *LegacyPaymentInterface, charge *domain.LegacyStripeCharge, intent *domain.PaymentIntent) error {
	if intent.Status == domain.PaymentIntentStatusSucceeded {
		return legacy.UpdateStateAfterCapture(ctx, tx, charge)
	}
	charge.Status = domain.LegacyStripeChargeStatusSucceeded
	charge.UpdatedAt = time.Now()
	return tx.UpdateLegacyStripeCharge(ctx, charge)
}

// UpdatePaymentRequest is the inbound shape for update_payment.
type UpdatePaymentRequest struct {
	PayerID           string
	Amount            int64
	ClientDescription *string
	SplitPayment      *domain.SplitPayment
}

// UpdatePayment implements §4.4.2.
func (p *CartPaymentProcessor) UpdatePayment(
	ctx context.Context,
	cartPaymentID uuid.UUID,
	idempotencyKey string,
	req UpdatePaymentRequest,
) (*domain.CartPayment, error) {
	cartPayment, err := p.lockAndFetchCartPayment(ctx, cartPaymentID)
	if err != nil {
		return nil, err
	}
	if cartPayment == nil {
		return nil, domain.NewCartPaymentNotFoundError(cartPaymentID.String())
	}
	if req.Amount < 0 {
		return nil, domain.NewCartPaymentAmountInvalidError(req.Amount)
	}

	delta := req.Amount - cartPayment.Amount
	switch {
	case delta == 0:
		return cartPayment, nil
	case delta > 0:
		return p.adjustUp(ctx, cartPayment, idempotencyKey, req.Amount)
	default:
		return p.adjustDown(ctx, cartPayment, idempotencyKey, req.Amount)
	}
}

func (p *CartPaymentProcessor) latestNonCancelledIntent(ctx context.Context, cartPaymentID uuid.UUID) (*domain.PaymentIntent, error) {
	intents, err := p.repo.GetPaymentIntentsForCartPayment(ctx, cartPaymentID)
	if err != nil {
		return nil, err
	}
	for i := len(intents) - 1; i >= 0; i-- {
		if intents[i].Status.IsNonCancelled() {
			return intents[i], nil
		}
	}
	if len(intents) == 0 {
		return nil, fmt.Errorf("cart payment %s has no payment intents", cartPaymentID)
	}
	return intents[len(intents)-1], nil
}

// adjustUp implements _update_payment_with_higher_amount.
func (p *CartPaymentProcessor) adjustUp(
	ctx context.Context,
	cartPayment *domain.CartPayment,
	idempotencyKey string,
	newAmount int64,
) (*domain.CartPayment, error) {
	if existing, err := p.repo.GetPaymentIntentForIdempotencyKey(ctx, cartPayment.ID, idempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		if existing.Status == domain.PaymentIntentStatusInit {
			return p.finishPendingSubmission(ctx, cartPayment, existing)
		}
		return cartPayment, nil
	}

	latest, err := p.latestNonCancelledIntent(ctx, cartPayment.ID)
	if err != nil {
		return nil, err
	}

	if latest.Status == domain.PaymentIntentStatusRequiresCapture && domain.WithinProviderAuthorizationLimit(latest.Amount, newAmount) {
		stripeCharge, err := p.repo.GetLegacyStripeChargeForPaymentIntent(ctx, latest.ID)
		if err != nil {
			return nil, err
		}
		err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
			if err := p.cartIntf.RaiseAmountBeforeCapture(ctx, tx, latest, idempotencyKey, newAmount); err != nil {
				return err
			}
			if err := p.legacyIntf.ApplyAmountChange(ctx, tx, stripeCharge, newAmount); err != nil {
				return err
			}
			return tx.UpdateCartPaymentAmount(ctx, cartPayment.ID, newAmount)
		})
		if err != nil {
			return nil, err
		}
		return p.repo.GetCartPaymentByID(ctx, cartPayment.ID)
	}

	// Exceeds what the PSP authorized (or already captured): cancel the
	// prior intent at the PSP if it is still uncaptured, otherwise fully
	// refund it, and create a brand-new one for the full new amount.
	if latest.Status == domain.PaymentIntentStatusRequiresCapture {
		if err := p.cancelRequiresCaptureIntent(ctx, latest); err != nil {
			return nil, err
		}
	} else if err := p.fullyRefundIntent(ctx, latest, idempotencyKey+"-supersede"); err != nil {
		return nil, err
	}

	return p.createSupersedingIntent(ctx, cartPayment, idempotencyKey, newAmount)
}

func (p *CartPaymentProcessor) finishPendingSubmission(ctx context.Context, cartPayment *domain.CartPayment, intent *domain.PaymentIntent) (*domain.CartPayment, error) {
	pgpIntents, err := p.repo.FindPgpPaymentIntents(ctx, intent.ID)
	if err != nil {
		return nil, err
	}
	if len(pgpIntents) == 0 {
		return nil, fmt.Errorf("payment intent %s has no pgp payment intent mirror", intent.ID)
	}
	pgpIntent := pgpIntents[len(pgpIntents)-1]
	stripeCharge, err := p.repo.GetLegacyStripeChargeForPaymentIntent(ctx, intent.ID)
	if err != nil {
		return nil, err
	}

	rawMethod, err := p.paymentMethodClient.GetRawPaymentMethod(ctx, cartPayment.PayerID, cartPayment.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	provider, submitErr := p.cartIntf.SubmitPaymentToProvider(ctx, intent, &ports.RawPaymentMethod{PSPPaymentMethodResourceID: rawMethod.PSPPaymentMethodResourceID}, cartPayment.Country)
	if submitErr != nil {
		err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
			if err := p.cartIntf.UpdateStateAfterProviderError(ctx, tx, intent, pgpIntent, submitErr); err != nil {
				return err
			}
			return p.legacyIntf.UpdateStateAfterProviderError(ctx, tx, stripeCharge, submitErr)
		})
		if err != nil {
			return nil, err
		}
		return nil, submitErr
	}

	err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
		if err := p.cartIntf.UpdateStateAfterProviderSubmission(ctx, tx, intent, pgpIntent, provider); err != nil {
			return err
		}
		return p.legacyIntf.UpdateStateAfterProviderSubmission(ctx, tx, stripeCharge, provider)
	})
	if err != nil {
		return nil, err
	}
	return p.repo.GetCartPaymentByID(ctx, cartPayment.ID)
}

// fullyRefundIntent refunds whatever has been captured against intent, in
// full, leaving its domain Amount at zero.
func (p *CartPaymentProcessor) fullyRefundIntent(ctx context.Context, intent *domain.PaymentIntent, idempotencyKey string) error {
	if intent.Status != domain.PaymentIntentStatusSucceeded {
		return nil
	}
	refunded, err := p.repo.SumRefundedAmount(ctx, intent.ID)
	if err != nil {
		return err
	}
	remaining := intent.AmountReceived - refunded
	if remaining <= 0 {
		return nil
	}
	return p.issueRefund(ctx, intent, idempotencyKey, remaining)
}

// createSupersedingIntent creates a fresh PaymentIntent (and legacy
// stripe-charge) for the full new amount and submits it to the PSP.
func (p *CartPaymentProcessor) createSupersedingIntent(
	ctx context.Context,
	cartPayment *domain.CartPayment,
	idempotencyKey string,
	newAmount int64,
) (*domain.CartPayment, error) {
	consumerCharge, err := p.repo.GetLegacyConsumerChargeForCartPayment(ctx, cartPayment.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	intent := &domain.PaymentIntent{
		ID:                     uuid.New(),
		CartPaymentID:          cartPayment.ID,
		IdempotencyKey:         idempotencyKey,
		Amount:                 newAmount,
		Currency:               cartPayment.Currency,
		Country:                cartPayment.Country,
		CaptureMethod:          domain.CaptureMethodAuto,
		Status:                 domain.PaymentIntentStatusInit,
		LegacyConsumerChargeID: consumerCharge.ID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if cartPayment.DelayCapture {
		intent.CaptureMethod = domain.CaptureMethodManual
		deadline := now.Add(p.cfg.DefaultCaptureAfter)
		intent.CaptureAfter = &deadline
	}

	pgpIntent := &domain.PgpPaymentIntent{
		ID:              uuid.New(),
		PaymentIntentID: intent.ID,
		Status:          domain.PgpPaymentIntentStatusInit,
		Amount:          newAmount,
		Currency:        cartPayment.Currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stripeCharge := &domain.LegacyStripeCharge{
		ID:               newLegacyID(),
		ConsumerChargeID: consumerCharge.ID,
		IdempotencyKey:   idempotencyKey,
		Amount:           newAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
		if err := tx.CreatePaymentIntent(ctx, intent); err != nil {
			return err
		}
		if err := tx.CreatePgpPaymentIntent(ctx, pgpIntent); err != nil {
			return err
		}
		if err := tx.CreateLegacyStripeCharge(ctx, stripeCharge); err != nil {
			return err
		}
		return tx.UpdateCartPaymentAmount(ctx, cartPayment.ID, newAmount)
	})
	if err != nil {
		return nil, err
	}

	rawMethod, err := p.paymentMethodClient.GetRawPaymentMethod(ctx, cartPayment.PayerID, cartPayment.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	provider, submitErr := p.cartIntf.SubmitPaymentToProvider(ctx, intent, &ports.RawPaymentMethod{PSPPaymentMethodResourceID: rawMethod.PSPPaymentMethodResourceID}, cartPayment.Country)
	if submitErr != nil {
		err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
			if err := p.cartIntf.UpdateStateAfterProviderError(ctx, tx, intent, pgpIntent, submitErr); err != nil {
				return err
			}
			return p.legacyIntf.UpdateStateAfterProviderError(ctx, tx, stripeCharge, submitErr)
		})
		if err != nil {
			return nil, err
		}
		return nil, submitErr
	}

	err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
		if err := p.cartIntf.UpdateStateAfterProviderSubmission(ctx, tx, intent, pgpIntent, provider); err != nil {
			return err
		}
		return p.legacyIntf.UpdateStateAfterProviderSubmission(ctx, tx, stripeCharge, provider)
	})
	if err != nil {
		return nil, err
	}
	return p.repo.GetCartPaymentByID(ctx, cartPayment.ID)
}

// adjustDown implements _update_payment_with_lower_amount.
func (p *CartPaymentProcessor) adjustDown(
	ctx context.Context,
	cartPayment *domain.CartPayment,
	idempotencyKey string,
	newAmount int64,
) (*domain.CartPayment, error) {
	latest, err := p.latestNonCancelledIntent(ctx, cartPayment.ID)
	if err != nil {
		return nil, err
	}

	if latest.Status == domain.PaymentIntentStatusRequiresCapture {
		stripeCharge, err := p.repo.GetLegacyStripeChargeForPaymentIntent(ctx, latest.ID)
		if err != nil {
			return nil, err
		}
		err = p.repo.WithTx(ctx, func(tx ports.Repository) error {
			if err := p.cartIntf.LowerAmountBeforeCapture(ctx, tx, latest, idempotencyKey, newAmount); err != nil {
				return err
			}
			if err := p.legacyIntf.ApplyAmountChange(ctx, tx, stripeCharge, newAmount); err != nil {
				return err
			}
			return tx.UpdateCartPaymentAmount(ctx, cartPayment.ID, newAmount)
		})
		if err != nil {
			return nil, err
		}
		return p.repo.GetCartPaymentByID(ctx, cartPayment.ID)
	}

	if existingRefund, err := p.repo.GetRefundForIdempotencyKey(ctx, latest.ID, idempotencyKey); err != nil {
		return nil, err
	} else if existingRefund != nil && existingRefund.Status == domain.RefundStatusSucceeded {
		return p.repo.GetCartPaymentByID(ctx, cartPayment.ID)
	}

	refundAmount := cartPayment.Amount - newAmount
	if err := p.issueRefund(ctx, latest, idempotencyKey, refundAmount); err != nil {
		return nil, err
	}
	if err := p.repo.UpdateCartPaymentAmount(ctx, cartPayment.ID, newAmount); err != nil {
		return nil, err
	}
	return p.repo.GetCartPaymentByID(ctx, cartPayment.ID)
}

// issueRefund drives a refund of amount against intent's captured charge,
// creating the Refund/PgpRefund pair, calling the PSP, and applying the
// outcome to both the domain intent and its legacy mirror.
func (p *CartPaymentProcessor) issueRefund(ctx context.Context, intent *domain.PaymentIntent, idempotencyKey string, amount int64) error {
	pgpIntents, err := p.repo.FindPgpPaymentIntents(ctx, intent.ID)
	if err != nil {
		return err
	}
	if len(pgpIntents) == 0 {
		return fmt.Errorf("payment intent %s has no pgp payment intent mirror", intent.ID)
	}
	pgpIntent := pgpIntents[len(pgpIntents)-1]

	stripeCharge, err := p.repo.GetLegacyStripeChargeForPaymentIntent(ctx, intent.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	refund := &domain.Refund{
		ID:              uuid.New(),
		PaymentIntentID: intent.ID,
		IdempotencyKey:  idempotencyKey,
		Amount:          amount,
		Status:          domain.RefundStatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	pgpRefund := &domain.PgpRefund{
		ID:        uuid.New(),
		RefundID:  refund.ID,
		Status:    domain.RefundStatusProcessing,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.repo.CreateRefund(ctx, refund); err != nil {
		return err
	}
	if err := p.repo.CreatePgpRefund(ctx, pgpRefund); err != nil {
		return err
	}

	provider, err := p.psp.RefundCharge(ctx, pgpIntent.ChargeResourceID, idempotencyKey, amount)
	if err != nil {
		refund.Status = domain.RefundStatusFailed
		refund.UpdatedAt = time.Now()
		_ = p.repo.UpdateRefund(ctx, refund)
		return err
	}

	return p.repo.WithTx(ctx, func(tx ports.Repository) error {
		if err := p.cartIntf.ApplyRefund(ctx, tx, intent, refund, pgpRefund, provider); err != nil {
			return err
		}
		return p.legacyIntf.ApplyRefund(ctx, tx, stripeCharge, amount)
	})
}

// GetCartPayment is a plain read used by the HTTP layer's polling/fetch
// endpoint; it carries no side effects or idempotency semantics of its own.
func (p *CartPaymentProcessor) GetCartPayment(ctx context.Context, cartPaymentID uuid.UUID) (*domain.CartPayment, error) {
	cartPayment, err := p.repo.GetCartPaymentByID(ctx, cartPaymentID)
	if err != nil {
		return nil, err
	}
	if cartPayment == nil {
		return nil, domain.NewCartPaymentNotFoundError(cartPaymentID.String())
	}
	return cartPayment, nil
}

// CancelPayment implements §4.4.3.
func (p *CartPaymentProcessor) CancelPayment(ctx context.Context, cartPaymentID uuid.UUID) (*domain.CartPayment, error) {
	cartPayment, err := p.lockAndFetchCartPayment(ctx, cartPaymentID)
	if err != nil {
		return nil, err
	}
	if cartPayment == nil {
		return nil, domain.NewCartPaymentNotFoundError(cartPaymentID.String())
	}
	if err := p.cancelAllIntents(ctx, cartPayment); err != nil {
		return nil, err
	}
	return p.repo.GetCartPaymentByID(ctx, cartPaymentID)
}

// lockAndFetchCartPayment takes the cart payment's row lock in a short,
// standalone transaction and returns the freshest committed view of it.
// Per §5, all mutations against a single cart payment serialize through
// this row lock; the lock itself is released when this transaction
// commits, well before any PSP call, since a transaction is never held
// open across a provider call. Concurrent retries of the same mutation
// still reconverge through idempotency — the lock only protects against
// two distinct callers computing adjust-up/adjust-down deltas off the
// same stale amount.
func (p *CartPaymentProcessor) lockAndFetchCartPayment(ctx context.Context, cartPaymentID uuid.UUID) (*domain.CartPayment, error) {
	var cartPayment *domain.CartPayment
	err := p.repo.WithTx(ctx, func(tx ports.Repository) error {
		locked, err := tx.LockCartPaymentForUpdate(ctx, cartPaymentID)
		if err != nil {
			return err
		}
		cartPayment = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cartPayment, nil
}

// CancelPaymentForLegacyCharge implements the legacy-charge-id variant of
// cancel_payment.
func (p *CartPaymentProcessor) CancelPaymentForLegacyCharge(ctx context.Context, ddChargeID int64) (*domain.CartPayment, error) {
	consumerCharge, err := p.repo.GetLegacyConsumerChargeByDDChargeID(ctx, ddChargeID)
	if err != nil {
		return nil, err
	}
	if consumerCharge == nil {
		return nil, domain.NewCartPaymentNotFoundError(fmt.Sprintf("legacy-charge-%d", ddChargeID))
	}

	cartPaymentID, err := p.repo.GetCartPaymentIDForLegacyConsumerCharge(ctx, consumerCharge.ID)
	if err != nil {
		return nil, err
	}
	return p.CancelPayment(ctx, cartPaymentID)
}

func (p *CartPaymentProcessor) cancelAllIntents(ctx context.Context, cartPayment *domain.CartPayment) error {
	intents, err := p.repo.GetPaymentIntentsForCartPayment(ctx, cartPayment.ID)
	if err != nil {
		return err
	}

	for _, intent := range intents {
		switch intent.Status {
		case domain.PaymentIntentStatusRequiresCapture:
			if err := p.cancelRequiresCaptureIntent(ctx, intent); err != nil {
				return err
			}
		case domain.PaymentIntentStatusSucceeded:
			if err := p.fullyRefundIntent(ctx, intent, "cancel-"+intent.ID.String()); err != nil {
				return err
			}
		}
	}
	return p.repo.UpdateCartPaymentAmount(ctx, cartPayment.ID, 0)
}

func (p *CartPaymentProcessor) cancelRequiresCaptureIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	pgpIntents, err := p.repo.FindPgpPaymentIntents(ctx, intent.ID)
	if err != nil {
		return err
	}
	if len(pgpIntents) == 0 {
		return fmt.Errorf("payment intent %s has no pgp payment intent mirror", intent.ID)
	}
	pgpIntent := pgpIntents[len(pgpIntents)-1]

	stripeCharge, err := p.repo.GetLegacyStripeChargeForPaymentIntent(ctx, intent.ID)
	if err != nil {
		return err
	}

	if _, err := p.psp.CancelPaymentIntent(ctx, pgpIntent.ResourceID); err != nil {
		return err
	}

	return p.repo.WithTx(ctx, func(tx ports.Repository) error {
		if err := p.cartIntf.UpdateStateAfterCancel(ctx, tx, intent, pgpIntent); err != nil {
			return err
		}
		return p.legacyIntf.UpdateStateAfterCancel(ctx, tx, stripeCharge)
	})
}

// CapturePayment implements §4.4.4. Precondition: intent.Status ==
// REQUIRES_CAPTURE, its pgp mirror has a resource id, and capture_after
// has passed — callers (the sweeper) are expected to have checked this.
func (p *CartPaymentProcessor) CapturePayment(ctx context.Context, intent *domain.PaymentIntent) error {
	if intent.Status != domain.PaymentIntentStatusRequiresCapture {
		return fmt.Errorf("payment intent %s is not awaiting capture (status=%s)", intent.ID, intent.Status)
	}

	pgpIntents, err := p.repo.FindPgpPaymentIntents(ctx, intent.ID)
	if err != nil {
		return err
	}
	if len(pgpIntents) == 0 || !pgpIntents[len(pgpIntents)-1].HasResourceID() {
		return fmt.Errorf("payment intent %s has no confirmed pgp payment intent to capture", intent.ID)
	}
	pgpIntent := pgpIntents[len(pgpIntents)-1]

	stripeCharge, err := p.repo.GetLegacyStripeChargeForPaymentIntent(ctx, intent.ID)
	if err != nil {
		return err
	}

	provider, err := p.psp.CapturePaymentIntent(ctx, pgpIntent.ResourceID, intent.AmountCapturable)
	if err != nil {
		return err
	}

	return p.repo.WithTx(ctx, func(tx ports.Repository) error {
		if err := p.cartIntf.UpdateStateAfterCapture(ctx, tx, intent, pgpIntent, provider); err != nil {
			return err
		}
		return p.legacyIntf.UpdateStateAfterCapture(ctx, tx, stripeCharge)
	})
}

// LegacyCreatePaymentRequest mirrors CreatePaymentRequest for clients that
// still address the legacy consumer-charge identifiers directly instead of
// letting the processor mint them.
type LegacyCreatePaymentRequest struct {
	PayerID           string
	PaymentMethodID   string
	Amount            int64
	DelayCapture      bool
	ReferenceID       string
	ReferenceType     string
	ClientDescription *string
	SplitPayment      *domain.SplitPayment
	Metadata          map[string]string

	DDConsumerID string
	DDCountryID  int64
}

// LegacyCreatePayment implements legacy_create_payment: it runs the same
// create flow as CreatePayment but stamps the caller-supplied legacy
// consumer identifiers onto the LegacyConsumerCharge row, and returns the
// legacy (consumer_charge, stripe_charge) pair alongside the CartPayment
// for clients still reading the pre-CartPayment response shape.
func (p *CartPaymentProcessor) LegacyCreatePayment(
	ctx context.Context,
	req LegacyCreatePaymentRequest,
	idempotencyKey string,
	currency string,
	paymentCountry string,
	payerCountry string,
) (*domain.CartPayment, *domain.LegacyPayment, error) {
	cartPayment, err := p.CreatePayment(ctx, CreatePaymentRequest{
		PayerID:           req.PayerID,
		PaymentMethodID:   req.PaymentMethodID,
		Amount:            req.Amount,
		DelayCapture:      req.DelayCapture,
		ReferenceID:       req.ReferenceID,
		ReferenceType:     req.ReferenceType,
		ClientDescription: req.ClientDescription,
		SplitPayment:      req.SplitPayment,
		Metadata:          req.Metadata,
	}, idempotencyKey, paymentCountry, currency)
	if err != nil {
		return nil, nil, err
	}

	consumerCharge, err := p.repo.GetLegacyConsumerChargeForCartPayment(ctx, cartPayment.ID)
	if err != nil {
		return nil, nil, err
	}
	consumerCharge.ConsumerID = req.DDConsumerID
	consumerCharge.CountryID = req.DDCountryID
	if err := p.repo.UpdateLegacyConsumerChargeIdentifiers(ctx, consumerCharge); err != nil {
		return nil, nil, err
	}

	intent, err := p.repo.GetPaymentIntentForIdempotencyKey(ctx, cartPayment.ID, idempotencyKey)
	if err != nil {
		return nil, nil, err
	}
	stripeCharge, err := p.repo.GetLegacyStripeChargeForPaymentIntent(ctx, intent.ID)
	if err != nil {
		return nil, nil, err
	}

	return cartPayment, &domain.LegacyPayment{ConsumerCharge: consumerCharge, StripeCharge: stripeCharge}, nil
}

// UpdatePaymentForLegacyCharge implements update_payment_for_legacy_charge:
// resolves a legacy dd_charge_id to its owning CartPayment, then applies
// amountDelta through the same adjust-up/adjust-down path UpdatePayment
// uses.
func (p *CartPaymentProcessor) UpdatePaymentForLegacyCharge(
	ctx context.Context,
	idempotencyKey string,
	ddChargeID int64,
	amountDelta int64,
	clientDescription *string,
	splitPayment *domain.SplitPayment,
) (*domain.CartPayment, error) {
	consumerCharge, err := p.repo.GetLegacyConsumerChargeByDDChargeID(ctx, ddChargeID)
	if err != nil {
		return nil, err
	}
	if consumerCharge == nil {
		return nil, domain.NewCartPaymentNotFoundError(fmt.Sprintf("legacy-charge-%d", ddChargeID))
	}

	cartPaymentID, err := p.repo.GetCartPaymentIDForLegacyConsumerCharge(ctx, consumerCharge.ID)
	if err != nil {
		return nil, err
	}
	cartPayment, err := p.repo.GetCartPaymentByID(ctx, cartPaymentID)
	if err != nil {
		return nil, err
	}
	if cartPayment == nil {
		return nil, domain.NewCartPaymentNotFoundError(cartPaymentID.String())
	}

	return p.UpdatePayment(ctx, cartPaymentID, idempotencyKey, UpdatePaymentRequest{
		PayerID:           cartPayment.PayerID,
		Amount:            cartPayment.Amount + amountDelta,
		ClientDescription: clientDescription,
		SplitPayment:      splitPayment,
	})
}

// GetLegacyClientDescription implements §4.4.6: truncate to
// DescriptionMaxLen runes, pass nil through unchanged.
func (p *CartPaymentProcessor) GetLegacyClientDescription(text *string) *string {
	return p.truncatedDescription(text)
}

func (p *CartPaymentProcessor) truncatedDescription(text *string) *string {
	if text == nil {
		return nil
	}
	limit := p.cfg.DescriptionMaxLen
	if limit <= 0 {
		limit = 1000
	}
	runes := []rune(*text)
	if len(runes) <= limit {
		return text
	}
	truncated := string(runes[:limit])
	return &truncated
}

// newLegacyID mints a legacy-table integer id. The legacy tables predate
// UUID primary keys; production uses a database sequence, so this is the
// one place the repository adapter must override with a real sequence
// nextval rather than trust the zero value passed through here.
func newLegacyID() int64 {
	return 0
}
