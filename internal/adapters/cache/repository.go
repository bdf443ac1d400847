// Package cache wraps ports.Repository with a short-lived in-process
// cache for the lookups CartPaymentProcessor repeats several times within
// the same orchestration (e.g. re-reading a payment intent's pgp mirror
// across adjust/capture/refund steps). It never stores anything the
// repository itself wouldn't, and the TTL is short enough that the cache
// is purely a latency optimization, never a second system of record.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

const (
	pgpIntentTTL        = 2 * time.Second
	pgpIntentCleanupTick = 10 * time.Second
)

// Repository decorates a ports.Repository, caching FindPgpPaymentIntents
// reads. Every write path (CreatePgpPaymentIntent, UpdatePgpPaymentIntent)
// invalidates the corresponding cache entry so a cache hit never serves
// data a write in the same process has already superseded.
type Repository struct {
	ports.Repository
	cache *gocache.Cache
}

func NewRepository(inner ports.Repository) *Repository {
	return &Repository{
		Repository: inner,
		cache:      gocache.New(pgpIntentTTL, pgpIntentCleanupTick),
	}
}

func (r *Repository) FindPgpPaymentIntents(ctx context.Context, paymentIntentID uuid.UUID) ([]*domain.PgpPaymentIntent, error) {
	key := cacheKey(paymentIntentID)
	if cached, ok := r.cache.Get(key); ok {
		return cached.([]*domain.PgpPaymentIntent), nil
	}

	intents, err := r.Repository.FindPgpPaymentIntents(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, intents)
	return intents, nil
}

func (r *Repository) CreatePgpPaymentIntent(ctx context.Context, p *domain.PgpPaymentIntent) error {
	if err := r.Repository.CreatePgpPaymentIntent(ctx, p); err != nil {
		return err
	}
	r.cache.Delete(cacheKey(p.PaymentIntentID))
	return nil
}

func (r *Repository) UpdatePgpPaymentIntent(ctx context.Context, p *domain.PgpPaymentIntent) error {
	if err := r.Repository.UpdatePgpPaymentIntent(ctx, p); err != nil {
		return err
	}
	r.cache.Delete(cacheKey(p.PaymentIntentID))
	return nil
}

// WithTx must not hand callers a transaction-scoped Repository that still
// reads through the outer process-wide cache: a transaction can roll back,
// and a cached read inside it must never leak into a later, unrelated
// transaction once this one aborts. Every call inside fn bypasses the
// cache entirely and talks straight to the transactional repository.
// Writes made inside fn skip the per-key invalidation above, so the whole
// cache is flushed once the transaction ends.
func (r *Repository) WithTx(ctx context.Context, fn func(tx ports.Repository) error) error {
	err := r.Repository.WithTx(ctx, fn)
	r.cache.Flush()
	return err
}

func cacheKey(paymentIntentID uuid.UUID) string {
	return fmt.Sprintf("pgp-intents:%s", paymentIntentID)
}
