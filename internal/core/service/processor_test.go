package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/service"
	"github.com/ficmart/cart-payment-processor/internal/core/service/servicetest"
)

func TestCreatePayment_AutoCaptureSucceeds(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())

	cp := servicetest.CreateAuthorizedCartPayment(t, ctx, h, 1500)

	intents, err := h.Repo.GetPaymentIntentsForCartPayment(ctx, cp.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, domain.PaymentIntentStatusSucceeded, intents[0].Status)
	assert.Equal(t, int64(1500), intents[0].AmountReceived)
}

func TestCreatePayment_DelayCaptureLeavesIntentAwaitingCapture(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())

	cp := servicetest.CreateDelayedCartPayment(t, ctx, h, 2000)

	intents, err := h.Repo.GetPaymentIntentsForCartPayment(ctx, cp.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, domain.PaymentIntentStatusRequiresCapture, intents[0].Status)
	assert.NotNil(t, intents[0].CaptureAfter)
}

func TestCreatePayment_SameIdempotencyKeyConvergesOnOneCartPayment(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())

	req := service.CreatePaymentRequest{
		PayerID:         "payer-1",
		PaymentMethodID: "pm-1",
		Amount:          900,
		ReferenceID:     "order-1",
		ReferenceType:   "order_cart",
	}

	first, err := h.Processor.CreatePayment(ctx, req, "idem-shared", "US", "usd")
	require.NoError(t, err)

	second, err := h.Processor.CreatePayment(ctx, req, "idem-shared", "US", "usd")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, countCalls(h.PSP.Calls, "create"))
}

func TestUpdatePayment_ZeroDeltaIsNoop(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	cp := servicetest.CreateAuthorizedCartPayment(t, ctx, h, 1000)

	updated, err := h.Processor.UpdatePayment(ctx, cp.ID, "idem-update-1", service.UpdatePaymentRequest{
		PayerID: cp.PayerID,
		Amount:  cp.Amount,
	})
	require.NoError(t, err)
	assert.Equal(t, cp.Amount, updated.Amount)
	assert.Equal(t, 0, countCalls(h.PSP.Calls, "refund"))
}

func TestUpdatePayment_AdjustUpWithinAuthorizationLimitRaisesInPlace(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	cp := servicetest.CreateDelayedCartPayment(t, ctx, h, 1000)

	updated, err := h.Processor.UpdatePayment(ctx, cp.ID, "idem-adjust-up", service.UpdatePaymentRequest{
		PayerID: cp.PayerID,
		Amount:  1100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1100), updated.Amount)

	intents, err := h.Repo.GetPaymentIntentsForCartPayment(ctx, cp.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, int64(1100), intents[0].Amount)
}

func TestUpdatePayment_AdjustUpBeyondLimitSupersedesIntent(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	cp := servicetest.CreateAuthorizedCartPayment(t, ctx, h, 1000)

	updated, err := h.Processor.UpdatePayment(ctx, cp.ID, "idem-adjust-up-big", service.UpdatePaymentRequest{
		PayerID: cp.PayerID,
		Amount:  5000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), updated.Amount)

	intents, err := h.Repo.GetPaymentIntentsForCartPayment(ctx, cp.ID)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, domain.PaymentIntentStatusSucceeded, intents[0].Status)
	assert.Equal(t, domain.PaymentIntentStatusSucceeded, intents[1].Status)
	assert.Equal(t, int64(5000), intents[1].Amount)

	assert.Equal(t, 1, countCalls(h.PSP.Calls, "refund"))
}

func TestUpdatePayment_AdjustDownAfterCaptureIssuesRefund(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	cp := servicetest.CreateAuthorizedCartPayment(t, ctx, h, 1000)

	updated, err := h.Processor.UpdatePayment(ctx, cp.ID, "idem-adjust-down", service.UpdatePaymentRequest{
		PayerID: cp.PayerID,
		Amount:  400,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(400), updated.Amount)
	assert.Equal(t, 1, countCalls(h.PSP.Calls, "refund"))
}

func TestUpdatePayment_AdjustDownBeforeCaptureLowersInPlace(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	cp := servicetest.CreateDelayedCartPayment(t, ctx, h, 1000)

	updated, err := h.Processor.UpdatePayment(ctx, cp.ID, "idem-adjust-down-pre", service.UpdatePaymentRequest{
		PayerID: cp.PayerID,
		Amount:  300,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), updated.Amount)
	assert.Equal(t, 0, countCalls(h.PSP.Calls, "refund"))
}

func TestCancelPayment_RequiresCaptureIntentCancelledAtProvider(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	cp := servicetest.CreateDelayedCartPayment(t, ctx, h, 1000)

	cancelled, err := h.Processor.CancelPayment(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cancelled.Amount)
	assert.Equal(t, 1, countCalls(h.PSP.Calls, "cancel"))

	intents, err := h.Repo.GetPaymentIntentsForCartPayment(ctx, cp.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, domain.PaymentIntentStatusCancelled, intents[0].Status)
}

func TestCancelPayment_SucceededIntentIsFullyRefunded(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())
	cp := servicetest.CreateAuthorizedCartPayment(t, ctx, h, 1000)

	cancelled, err := h.Processor.CancelPayment(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cancelled.Amount)
	assert.Equal(t, 1, countCalls(h.PSP.Calls, "refund"))
}

func TestGetCartPayment_NotFoundReturnsTaxonomyError(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())

	_, err := h.Processor.GetCartPayment(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeCartPaymentNotFound))
}

func TestGetLegacyClientDescription_TruncatesAtExactRuneLimit(t *testing.T) {
	h := servicetest.NewHarness(service.ProcessorConfig{DescriptionMaxLen: 5})

	exact := "abcde"
	assert.Equal(t, &exact, h.Processor.GetLegacyClientDescription(&exact))

	over := "abcdef"
	got := h.Processor.GetLegacyClientDescription(&over)
	require.NotNil(t, got)
	assert.Equal(t, "abcde", *got)

	assert.Nil(t, h.Processor.GetLegacyClientDescription(nil))
}

func TestLegacyCreatePayment_StampsConsumerIdentifiers(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())

	cp, legacy, err := h.Processor.LegacyCreatePayment(ctx, service.LegacyCreatePaymentRequest{
		PayerID:         "payer-1",
		PaymentMethodID: "pm-1",
		Amount:          1200,
		ReferenceID:     "order-9",
		ReferenceType:   "order_cart",
		DDConsumerID:    "consumer-42",
		DDCountryID:     1,
	}, "idem-legacy-1", "usd", "US", "US")
	require.NoError(t, err)
	require.NotNil(t, legacy.ConsumerCharge)
	assert.Equal(t, "consumer-42", legacy.ConsumerCharge.ConsumerID)
	assert.Equal(t, int64(1), legacy.ConsumerCharge.CountryID)
	assert.Equal(t, cp.Amount, legacy.ConsumerCharge.OriginalTotal)
}

func TestUpdatePaymentForLegacyCharge_ResolvesDDChargeIDToCartPayment(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())

	cp, legacy, err := h.Processor.LegacyCreatePayment(ctx, service.LegacyCreatePaymentRequest{
		PayerID:         "payer-1",
		PaymentMethodID: "pm-1",
		Amount:          1000,
		DelayCapture:    true,
		ReferenceID:     "order-10",
		ReferenceType:   "order_cart",
		DDConsumerID:    "consumer-7",
	}, "idem-legacy-2", "usd", "US", "US")
	require.NoError(t, err)

	updated, err := h.Processor.UpdatePaymentForLegacyCharge(ctx, "idem-legacy-2-update", legacy.ConsumerCharge.ID, -200, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, cp.Amount-200, updated.Amount)
}

func TestCancelPaymentForLegacyCharge_NotFoundWhenChargeUnknown(t *testing.T) {
	ctx := context.Background()
	h := servicetest.NewHarness(servicetest.DefaultConfig())

	_, err := h.Processor.CancelPaymentForLegacyCharge(ctx, 999999)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeCartPaymentNotFound))
}

func countCalls(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}
