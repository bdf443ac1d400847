package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/service/servicetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSweeperHarness(t *testing.T) (*DeferredCaptureSweeper, *servicetest.FakeRepository, *servicetest.FakePSPGateway) {
	t.Helper()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	sweeper := NewDeferredCaptureSweeper(h.Repo, h.Processor, time.Minute, 10, 7*24*time.Hour, discardLogger())
	return sweeper, h.Repo, h.PSP
}

func TestShouldSkip_StaleIntentIsSkipped(t *testing.T) {
	sweeper, repo, _ := newSweeperHarness(t)
	ctx := context.Background()

	intent := &domain.PaymentIntent{ID: uuid.New(), Status: domain.PaymentIntentStatusRequiresCapture, CreatedAt: time.Now().Add(-8 * 24 * time.Hour)}
	require.NoError(t, repo.CreatePaymentIntent(ctx, intent))

	reason, skip := sweeper.shouldSkip(ctx, intent, time.Now().Add(-7*24*time.Hour))
	assert.True(t, skip)
	assert.Contains(t, reason, "staleness cutoff")
}

func TestShouldSkip_MissingPgpMirrorIsSkipped(t *testing.T) {
	sweeper, repo, _ := newSweeperHarness(t)
	ctx := context.Background()

	intent := &domain.PaymentIntent{ID: uuid.New(), Status: domain.PaymentIntentStatusRequiresCapture, CreatedAt: time.Now()}
	require.NoError(t, repo.CreatePaymentIntent(ctx, intent))

	reason, skip := sweeper.shouldSkip(ctx, intent, time.Now().Add(-7*24*time.Hour))
	assert.True(t, skip)
	assert.Contains(t, reason, "no pgp payment intent mirror")
}

func TestShouldSkip_MissingResourceIDIsSkipped(t *testing.T) {
	sweeper, repo, _ := newSweeperHarness(t)
	ctx := context.Background()

	intent := &domain.PaymentIntent{ID: uuid.New(), Status: domain.PaymentIntentStatusRequiresCapture, CreatedAt: time.Now()}
	require.NoError(t, repo.CreatePaymentIntent(ctx, intent))
	require.NoError(t, repo.CreatePgpPaymentIntent(ctx, &domain.PgpPaymentIntent{
		ID: uuid.New(), PaymentIntentID: intent.ID, Status: domain.PgpPaymentIntentStatusRequiresCapture,
	}))

	reason, skip := sweeper.shouldSkip(ctx, intent, time.Now().Add(-7*24*time.Hour))
	assert.True(t, skip)
	assert.Contains(t, reason, "no resource id")
}

func TestShouldSkip_StatusDivergenceIsSkipped(t *testing.T) {
	sweeper, repo, _ := newSweeperHarness(t)
	ctx := context.Background()

	intent := &domain.PaymentIntent{ID: uuid.New(), Status: domain.PaymentIntentStatusRequiresCapture, CreatedAt: time.Now()}
	require.NoError(t, repo.CreatePaymentIntent(ctx, intent))
	require.NoError(t, repo.CreatePgpPaymentIntent(ctx, &domain.PgpPaymentIntent{
		ID: uuid.New(), PaymentIntentID: intent.ID, ResourceID: "res_1", Status: domain.PgpPaymentIntentStatusSucceeded,
	}))

	reason, skip := sweeper.shouldSkip(ctx, intent, time.Now().Add(-7*24*time.Hour))
	assert.True(t, skip)
	assert.Contains(t, reason, "diverges")
}

func TestShouldSkip_WellFormedIntentIsNotSkipped(t *testing.T) {
	sweeper, repo, _ := newSweeperHarness(t)
	ctx := context.Background()

	intent := &domain.PaymentIntent{ID: uuid.New(), Status: domain.PaymentIntentStatusRequiresCapture, CreatedAt: time.Now()}
	require.NoError(t, repo.CreatePaymentIntent(ctx, intent))
	require.NoError(t, repo.CreatePgpPaymentIntent(ctx, &domain.PgpPaymentIntent{
		ID: uuid.New(), PaymentIntentID: intent.ID, ResourceID: "res_1", Status: domain.PgpPaymentIntentStatusRequiresCapture,
	}))

	_, skip := sweeper.shouldSkip(ctx, intent, time.Now().Add(-7*24*time.Hour))
	assert.False(t, skip)
}

func TestRunOnce_CapturesDueIntent(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	sweeper := NewDeferredCaptureSweeper(h.Repo, h.Processor, time.Minute, 10, 7*24*time.Hour, discardLogger())

	cp := servicetest.CreateDelayedCartPayment(t, ctx, h, 1000)
	intents, err := h.Repo.GetPaymentIntentsForCartPayment(ctx, cp.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)

	due := intents[0]
	pastDeadline := time.Now().Add(-time.Minute)
	due.CaptureAfter = &pastDeadline
	require.NoError(t, h.Repo.UpdatePaymentIntent(ctx, due))

	sweeper.RunOnce(ctx)

	refreshed, err := h.Repo.GetPaymentIntentByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentIntentStatusSucceeded, refreshed.Status)
	assert.Equal(t, 1, countPSPCalls(h.PSP.Calls, "capture"))
}

func countPSPCalls(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}
