// Package servicetest provides in-memory fakes for the collaborator
// interfaces the cart payment processor depends on: Repository, PSPGateway,
// PayerClient, and PaymentMethodClient.
package servicetest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

// FakeRepository is an in-memory ports.Repository. It is not transactional
// in any isolation sense — WithTx simply runs fn against the same instance
// and never rolls back partial writes — which is adequate for orchestration
// tests that only assert on the happy and single-failure paths.
type FakeRepository struct {
	mu sync.Mutex

	cartPayments      map[uuid.UUID]*domain.CartPayment
	paymentIntents    map[uuid.UUID]*domain.PaymentIntent
	pgpPaymentIntents map[uuid.UUID][]*domain.PgpPaymentIntent
	adjustmentHistory []*domain.PaymentIntentAdjustmentHistory
	refunds           map[uuid.UUID]*domain.Refund
	pgpRefunds        map[uuid.UUID]*domain.PgpRefund
	consumerCharges   map[int64]*domain.LegacyConsumerCharge
	stripeCharges     map[int64]*domain.LegacyStripeCharge
	nextLegacyID      int64
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		cartPayments:      make(map[uuid.UUID]*domain.CartPayment),
		paymentIntents:    make(map[uuid.UUID]*domain.PaymentIntent),
		pgpPaymentIntents: make(map[uuid.UUID][]*domain.PgpPaymentIntent),
		refunds:           make(map[uuid.UUID]*domain.Refund),
		pgpRefunds:        make(map[uuid.UUID]*domain.PgpRefund),
		consumerCharges:   make(map[int64]*domain.LegacyConsumerCharge),
		stripeCharges:     make(map[int64]*domain.LegacyStripeCharge),
	}
}

func (f *FakeRepository) WithTx(ctx context.Context, fn func(tx ports.Repository) error) error {
	return fn(f)
}

func (f *FakeRepository) LockCartPaymentForUpdate(ctx context.Context, id uuid.UUID) (*domain.CartPayment, error) {
	return f.GetCartPaymentByID(ctx, id)
}

func (f *FakeRepository) GetCartPaymentByID(ctx context.Context, id uuid.UUID) (*domain.CartPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, ok := f.cartPayments[id]
	if !ok {
		return nil, nil
	}
	copied := *cp
	return &copied, nil
}

func (f *FakeRepository) CreateCartPayment(ctx context.Context, cp *domain.CartPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *cp
	f.cartPayments[cp.ID] = &copied
	return nil
}

func (f *FakeRepository) UpdateCartPaymentAmount(ctx context.Context, id uuid.UUID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, ok := f.cartPayments[id]
	if !ok {
		return nil
	}
	cp.Amount = amount
	cp.UpdatedAt = time.Now()
	return nil
}

func (f *FakeRepository) GetPaymentIntentsForCartPayment(ctx context.Context, cartPaymentID uuid.UUID) ([]*domain.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PaymentIntent
	for _, pi := range f.paymentIntents {
		if pi.CartPaymentID == cartPaymentID {
			copied := *pi
			out = append(out, &copied)
		}
	}
	sortIntentsByCreatedAt(out)
	return out, nil
}

func (f *FakeRepository) GetPaymentIntentForIdempotencyKey(ctx context.Context, cartPaymentID uuid.UUID, key string) (*domain.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pi := range f.paymentIntents {
		if pi.CartPaymentID == cartPaymentID && pi.IdempotencyKey == key {
			copied := *pi
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *FakeRepository) GetPaymentIntentByIdempotencyKeyGlobal(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pi := range f.paymentIntents {
		if pi.IdempotencyKey == key {
			copied := *pi
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *FakeRepository) GetPaymentIntentByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pi, ok := f.paymentIntents[id]
	if !ok {
		return nil, nil
	}
	copied := *pi
	return &copied, nil
}

func (f *FakeRepository) CreatePaymentIntent(ctx context.Context, pi *domain.PaymentIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *pi
	f.paymentIntents[pi.ID] = &copied
	return nil
}

func (f *FakeRepository) UpdatePaymentIntent(ctx context.Context, pi *domain.PaymentIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *pi
	f.paymentIntents[pi.ID] = &copied
	return nil
}

func (f *FakeRepository) FindPgpPaymentIntents(ctx context.Context, paymentIntentID uuid.UUID) ([]*domain.PgpPaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PgpPaymentIntent
	for _, p := range f.pgpPaymentIntents[paymentIntentID] {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (f *FakeRepository) CreatePgpPaymentIntent(ctx context.Context, p *domain.PgpPaymentIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *p
	f.pgpPaymentIntents[p.PaymentIntentID] = append(f.pgpPaymentIntents[p.PaymentIntentID], &copied)
	return nil
}

func (f *FakeRepository) UpdatePgpPaymentIntent(ctx context.Context, p *domain.PgpPaymentIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.pgpPaymentIntents[p.PaymentIntentID]
	for i, existing := range list {
		if existing.ID == p.ID {
			copied := *p
			list[i] = &copied
			return nil
		}
	}
	copied := *p
	f.pgpPaymentIntents[p.PaymentIntentID] = append(list, &copied)
	return nil
}

func (f *FakeRepository) AppendAdjustmentHistory(ctx context.Context, h *domain.PaymentIntentAdjustmentHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *h
	f.adjustmentHistory = append(f.adjustmentHistory, &copied)
	return nil
}

func (f *FakeRepository) GetRefundForIdempotencyKey(ctx context.Context, paymentIntentID uuid.UUID, key string) (*domain.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.refunds {
		if r.PaymentIntentID == paymentIntentID && r.IdempotencyKey == key {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *FakeRepository) SumRefundedAmount(ctx context.Context, paymentIntentID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, r := range f.refunds {
		if r.PaymentIntentID == paymentIntentID &&
			(r.Status == domain.RefundStatusSucceeded || r.Status == domain.RefundStatusProcessing) {
			sum += r.Amount
		}
	}
	return sum, nil
}

func (f *FakeRepository) CreateRefund(ctx context.Context, r *domain.Refund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *r
	f.refunds[r.ID] = &copied
	return nil
}

func (f *FakeRepository) UpdateRefund(ctx context.Context, r *domain.Refund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *r
	f.refunds[r.ID] = &copied
	return nil
}

func (f *FakeRepository) CreatePgpRefund(ctx context.Context, r *domain.PgpRefund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *r
	f.pgpRefunds[r.ID] = &copied
	return nil
}

func (f *FakeRepository) UpdatePgpRefund(ctx context.Context, r *domain.PgpRefund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *r
	f.pgpRefunds[r.ID] = &copied
	return nil
}

func (f *FakeRepository) FindExistingLegacyCharge(ctx context.Context, consumerChargeID int64, idempotencyKey string) (*domain.LegacyPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	consumerCharge, ok := f.consumerCharges[consumerChargeID]
	if !ok {
		return nil, nil
	}
	for _, sc := range f.stripeCharges {
		if sc.ConsumerChargeID == consumerChargeID && sc.IdempotencyKey == idempotencyKey {
			ccCopy, scCopy := *consumerCharge, *sc
			return &domain.LegacyPayment{ConsumerCharge: &ccCopy, StripeCharge: &scCopy}, nil
		}
	}
	return nil, nil
}

func (f *FakeRepository) GetLegacyConsumerChargeForCartPayment(ctx context.Context, cartPaymentID uuid.UUID) (*domain.LegacyConsumerCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pi := range f.paymentIntents {
		if pi.CartPaymentID == cartPaymentID {
			if cc, ok := f.consumerCharges[pi.LegacyConsumerChargeID]; ok {
				copied := *cc
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (f *FakeRepository) GetLegacyConsumerChargeByDDChargeID(ctx context.Context, ddChargeID int64) (*domain.LegacyConsumerCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cc, ok := f.consumerCharges[ddChargeID]
	if !ok {
		return nil, nil
	}
	copied := *cc
	return &copied, nil
}

func (f *FakeRepository) GetCartPaymentIDForLegacyConsumerCharge(ctx context.Context, consumerChargeID int64) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pi := range f.paymentIntents {
		if pi.LegacyConsumerChargeID == consumerChargeID {
			return pi.CartPaymentID, nil
		}
	}
	return uuid.Nil, nil
}

func (f *FakeRepository) CreateLegacyConsumerCharge(ctx context.Context, c *domain.LegacyConsumerCharge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextLegacyID++
	c.ID = f.nextLegacyID
	copied := *c
	f.consumerCharges[c.ID] = &copied
	return nil
}

func (f *FakeRepository) UpdateLegacyConsumerChargeIdentifiers(ctx context.Context, c *domain.LegacyConsumerCharge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.consumerCharges[c.ID]
	if !ok {
		return nil
	}
	existing.CountryID = c.CountryID
	existing.ConsumerID = c.ConsumerID
	existing.PayerID = c.PayerID
	return nil
}

func (f *FakeRepository) CreateLegacyStripeCharge(ctx context.Context, c *domain.LegacyStripeCharge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextLegacyID++
	c.ID = f.nextLegacyID
	copied := *c
	f.stripeCharges[c.ID] = &copied
	return nil
}

func (f *FakeRepository) UpdateLegacyStripeCharge(ctx context.Context, c *domain.LegacyStripeCharge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *c
	f.stripeCharges[c.ID] = &copied
	return nil
}

func (f *FakeRepository) GetLegacyStripeChargeForPaymentIntent(ctx context.Context, paymentIntentID uuid.UUID) (*domain.LegacyStripeCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pi, ok := f.paymentIntents[paymentIntentID]
	if !ok {
		return nil, nil
	}
	for _, sc := range f.stripeCharges {
		if sc.ConsumerChargeID == pi.LegacyConsumerChargeID && sc.IdempotencyKey == pi.IdempotencyKey {
			copied := *sc
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *FakeRepository) FindPaymentIntentsThatRequireCaptureBeforeCutoff(ctx context.Context, cutoff time.Time, batchSize int) (ports.CaptureCursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*domain.PaymentIntent
	for _, pi := range f.paymentIntents {
		if pi.Status == domain.PaymentIntentStatusRequiresCapture && pi.CaptureAfter != nil && !pi.CaptureAfter.After(cutoff) {
			copied := *pi
			due = append(due, &copied)
		}
	}
	sortIntentsByCreatedAt(due)
	if len(due) > batchSize {
		due = due[:batchSize]
	}
	return &fakeCursor{items: due}, nil
}

func sortIntentsByCreatedAt(items []*domain.PaymentIntent) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].CreatedAt.Before(items[j-1].CreatedAt); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

type fakeCursor struct {
	items []*domain.PaymentIntent
	idx   int
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	if c.idx >= len(c.items) {
		return false
	}
	c.idx++
	return true
}

func (c *fakeCursor) PaymentIntent() *domain.PaymentIntent { return c.items[c.idx-1] }
func (c *fakeCursor) Err() error                            { return nil }
func (c *fakeCursor) Close()                                {}
