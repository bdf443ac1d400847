// Package worker runs the background jobs the cart payment processor
// needs beyond its synchronous request path: currently the deferred
// capture sweep.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
	"github.com/ficmart/cart-payment-processor/internal/core/service"
)

// DeferredCaptureSweeper periodically captures payment intents that were
// authorized with capture_method=manual and whose capture_after deadline
// has passed. It streams candidates from the repository rather than
// loading a batch wholesale, so a slow or huge backlog never needs to fit
// in memory at once.
type DeferredCaptureSweeper struct {
	repo      ports.Repository
	processor *service.CartPaymentProcessor
	interval  time.Duration
	batchSize int
	cutoff    time.Duration
	logger    *slog.Logger
}

func NewDeferredCaptureSweeper(
	repo ports.Repository,
	processor *service.CartPaymentProcessor,
	interval time.Duration,
	batchSize int,
	cutoff time.Duration,
	logger *slog.Logger,
) *DeferredCaptureSweeper {
	return &DeferredCaptureSweeper{
		repo:      repo,
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
		cutoff:    cutoff,
		logger:    logger,
	}
}

func (s *DeferredCaptureSweeper) Start(ctx context.Context) {
	s.logger.Info("deferred capture sweeper started", "interval", s.interval, "batch_size", s.batchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("deferred capture sweeper stopping")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep, walking the lazy cursor to completion.
// It is exported so it can be driven directly from a cron-style invocation
// or from tests.
func (s *DeferredCaptureSweeper) RunOnce(ctx context.Context) {
	now := time.Now()
	cursor, err := s.repo.FindPaymentIntentsThatRequireCaptureBeforeCutoff(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("failed to open capture-due cursor", "error", err)
		return
	}
	defer cursor.Close()

	staleCutoff := now.Add(-s.cutoff)
	var swept, skipped, failed int

	for cursor.Next(ctx) {
		intent := cursor.PaymentIntent()

		if reason, skip := s.shouldSkip(ctx, intent, staleCutoff); skip {
			s.logger.Warn("skipping capture-due payment intent", "payment_intent_id", intent.ID, "reason", reason)
			skipped++
			continue
		}

		if err := s.processor.CapturePayment(ctx, intent); err != nil {
			s.logger.Error("sweeper capture failed", "payment_intent_id", intent.ID, "error", err)
			failed++
			continue
		}
		swept++
	}

	if err := cursor.Err(); err != nil {
		s.logger.Error("capture-due cursor ended with error", "error", err)
	}

	s.logger.Info("deferred capture sweep complete", "captured", swept, "skipped", skipped, "failed", failed)
}

// shouldSkip implements the sweeper's "not well-formed" guard: an intent
// past the staleness cutoff, or whose pgp mirror is missing/diverged, is
// left alone rather than repaired. The next client-driven retry or a
// manual reconciliation is what fixes these, not the sweeper.
func (s *DeferredCaptureSweeper) shouldSkip(ctx context.Context, intent *domain.PaymentIntent, staleCutoff time.Time) (string, bool) {
	if intent.CreatedAt.Before(staleCutoff) {
		return "created before sweep staleness cutoff", true
	}

	pgpIntents, err := s.repo.FindPgpPaymentIntents(ctx, intent.ID)
	if err != nil {
		return "failed to load pgp payment intent mirror", true
	}
	if len(pgpIntents) == 0 {
		return "no pgp payment intent mirror", true
	}

	pgpIntent := pgpIntents[len(pgpIntents)-1]
	if !pgpIntent.HasResourceID() {
		return "pgp payment intent has no resource id", true
	}
	if pgpIntent.Status != domain.PgpPaymentIntentStatusRequiresCapture {
		return "pgp payment intent status diverges from domain intent", true
	}

	return "", false
}
