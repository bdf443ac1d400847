package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
	"github.com/ficmart/cart-payment-processor/internal/core/service"
	"github.com/ficmart/cart-payment-processor/internal/core/service/servicetest"
)

func newLegacyInterface(t *testing.T) (*service.LegacyPaymentInterface, ports.Repository, *domain.LegacyStripeCharge) {
	t.Helper()
	repo := servicetest.NewFakeRepository()
	charge := &domain.LegacyStripeCharge{ID: 1, Amount: 1000, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, repo.CreateLegacyStripeCharge(context.Background(), charge))
	return service.NewLegacyPaymentInterface(repo), repo, charge
}

func TestLegacyPaymentInterface_ApplyAmountChange(t *testing.T) {
	legacy, repo, charge := newLegacyInterface(t)
	require.NoError(t, legacy.ApplyAmountChange(context.Background(), repo, charge, 750))
	assert.Equal(t, int64(750), charge.Amount)
}

func TestLegacyPaymentInterface_ApplyRefund_Accumulates(t *testing.T) {
	legacy, repo, charge := newLegacyInterface(t)
	require.NoError(t, legacy.ApplyRefund(context.Background(), repo, charge, 200))
	require.NoError(t, legacy.ApplyRefund(context.Background(), repo, charge, 300))
	assert.Equal(t, int64(500), charge.AmountRefunded)
}

func TestLegacyPaymentInterface_UpdateStateAfterProviderError(t *testing.T) {
	legacy, repo, charge := newLegacyInterface(t)
	require.NoError(t, legacy.UpdateStateAfterProviderError(context.Background(), repo, charge, errors.New("declined")))
	assert.Equal(t, domain.LegacyStripeChargeStatusFailed, charge.Status)
	require.NotNil(t, charge.ErrorDescription)
	assert.Equal(t, "declined", *charge.ErrorDescription)
}

func TestLegacyPaymentInterface_UpdateStateAfterCancel(t *testing.T) {
	legacy, repo, charge := newLegacyInterface(t)
	require.NoError(t, legacy.UpdateStateAfterCancel(context.Background(), repo, charge))
	assert.Equal(t, domain.LegacyStripeChargeStatusCancelled, charge.Status)
	assert.Equal(t, int64(0), charge.Amount)
}

func TestLegacyPaymentInterface_FindExistingPaymentCharge(t *testing.T) {
	legacy, repo, charge := newLegacyInterface(t)

	consumerCharge := &domain.LegacyConsumerCharge{OriginalTotal: 1000}
	require.NoError(t, repo.CreateLegacyConsumerCharge(context.Background(), consumerCharge))

	charge.ConsumerChargeID = consumerCharge.ID
	charge.IdempotencyKey = "idem-1"
	require.NoError(t, repo.UpdateLegacyStripeCharge(context.Background(), charge))

	found, err := legacy.FindExistingPaymentCharge(context.Background(), consumerCharge.ID, "idem-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, charge.ID, found.StripeCharge.ID)

	miss, err := legacy.FindExistingPaymentCharge(context.Background(), consumerCharge.ID, "idem-missing")
	require.NoError(t, err)
	assert.Nil(t, miss)
}
