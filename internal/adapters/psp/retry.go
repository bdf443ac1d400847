package psp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ficmart/cart-payment-processor/internal/config"
	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

// RetryGateway wraps a ports.PSPGateway with exponential backoff and
// jitter. Commando mode is delegated straight through to the inner
// gateway: retrying a call we've decided to skip entirely would defeat
// the point of commando mode.
type RetryGateway struct {
	inner      ports.PSPGateway
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGateway(inner ports.PSPGateway, cfg config.RetryConfig) *RetryGateway {
	return &RetryGateway{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: cfg.MaxRetries,
	}
}

func (r *RetryGateway) IsCommando() bool    { return r.inner.IsCommando() }
func (r *RetryGateway) SetCommando(on bool) { r.inner.SetCommando(on) }

func (r *RetryGateway) CreatePaymentIntent(ctx context.Context, req ports.CreatePaymentIntentRequest) (*ports.ProviderIntent, error) {
	return retry(r, ctx, func(ctx context.Context) (*ports.ProviderIntent, error) {
		return r.inner.CreatePaymentIntent(ctx, req)
	})
}

func (r *RetryGateway) CapturePaymentIntent(ctx context.Context, resourceID string, amount int64) (*ports.ProviderIntent, error) {
	return retry(r, ctx, func(ctx context.Context) (*ports.ProviderIntent, error) {
		return r.inner.CapturePaymentIntent(ctx, resourceID, amount)
	})
}

func (r *RetryGateway) CancelPaymentIntent(ctx context.Context, resourceID string) (*ports.ProviderIntent, error) {
	return retry(r, ctx, func(ctx context.Context) (*ports.ProviderIntent, error) {
		return r.inner.CancelPaymentIntent(ctx, resourceID)
	})
}

func (r *RetryGateway) RefundCharge(ctx context.Context, chargeResourceID, idempotencyKey string, amount int64) (*ports.ProviderRefund, error) {
	return retry(r, ctx, func(ctx context.Context) (*ports.ProviderRefund, error) {
		return r.inner.RefundCharge(ctx, chargeResourceID, idempotencyKey, amount)
	})
}

func retry[T any](r *RetryGateway, ctx context.Context, op func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := op(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum psp retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	var retryable domain.Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

func (r *RetryGateway) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
	return base + jitter
}
