package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newIntent(status PaymentIntentStatus) *PaymentIntent {
	return &PaymentIntent{
		ID:             uuid.New(),
		Status:         status,
		Amount:         1000,
		AmountReceived: 1000,
	}
}

func TestClassify_NewBeforeProviderSubmission(t *testing.T) {
	intent := newIntent(PaymentIntentStatusInit)
	assert.Equal(t, IntentStateNew, Classify(intent, nil, 0))

	pgp := &PgpPaymentIntent{Status: PgpPaymentIntentStatusInit}
	assert.Equal(t, IntentStateNew, Classify(intent, pgp, 0))
}

func TestClassify_InFlightWhenMirrorHasMovedButIntentHasNot(t *testing.T) {
	intent := newIntent(PaymentIntentStatusInit)
	pgp := &PgpPaymentIntent{Status: PgpPaymentIntentStatusRequiresCapture}
	assert.Equal(t, IntentStateInFlightToProvider, Classify(intent, pgp, 0))
}

func TestClassify_RequiresCaptureIsAwaitingCaptureRegardlessOfMirror(t *testing.T) {
	intent := newIntent(PaymentIntentStatusRequiresCapture)
	assert.Equal(t, IntentStateAuthorizedAwaitingCapture, Classify(intent, nil, 0))
}

func TestClassify_SucceededWithNoRefundsIsCaptured(t *testing.T) {
	intent := newIntent(PaymentIntentStatusSucceeded)
	assert.Equal(t, IntentStateCaptured, Classify(intent, nil, 0))
}

func TestClassify_SucceededWithPartialRefundIsPartiallyRefunded(t *testing.T) {
	intent := newIntent(PaymentIntentStatusSucceeded)
	assert.Equal(t, IntentStatePartiallyRefunded, Classify(intent, nil, 400))
}

func TestClassify_SucceededWithFullRefundIsFullyRefunded(t *testing.T) {
	intent := newIntent(PaymentIntentStatusSucceeded)
	assert.Equal(t, IntentStateFullyRefunded, Classify(intent, nil, 1000))

	// A refund total exceeding amount_received (shouldn't happen, but the
	// classifier must not panic or misclassify) still reads as fully refunded.
	assert.Equal(t, IntentStateFullyRefunded, Classify(intent, nil, 1500))
}

func TestClassify_CancelledAndFailedAreTerminal(t *testing.T) {
	assert.Equal(t, IntentStateCancelled, Classify(newIntent(PaymentIntentStatusCancelled), nil, 0))
	assert.Equal(t, IntentStateFailed, Classify(newIntent(PaymentIntentStatusFailed), nil, 0))
}

func TestInFlightWindow(t *testing.T) {
	initIntent := newIntent(PaymentIntentStatusInit)
	assert.True(t, InFlightWindow(initIntent, nil))
	assert.True(t, InFlightWindow(initIntent, &PgpPaymentIntent{Status: PgpPaymentIntentStatusSucceeded}))
	assert.False(t, InFlightWindow(initIntent, &PgpPaymentIntent{Status: PgpPaymentIntentStatusInit}))

	captured := newIntent(PaymentIntentStatusSucceeded)
	assert.False(t, InFlightWindow(captured, nil))
}

func TestPaymentIntentStatus_IsTerminal(t *testing.T) {
	assert.True(t, PaymentIntentStatusSucceeded.IsTerminal())
	assert.True(t, PaymentIntentStatusCancelled.IsTerminal())
	assert.True(t, PaymentIntentStatusFailed.IsTerminal())
	assert.False(t, PaymentIntentStatusInit.IsTerminal())
	assert.False(t, PaymentIntentStatusRequiresCapture.IsTerminal())
}

func TestPaymentIntentStatus_IsNonCancelled(t *testing.T) {
	assert.True(t, PaymentIntentStatusInit.IsNonCancelled())
	assert.True(t, PaymentIntentStatusRequiresCapture.IsNonCancelled())
	assert.True(t, PaymentIntentStatusSucceeded.IsNonCancelled())
	assert.False(t, PaymentIntentStatusCancelled.IsNonCancelled())
	assert.False(t, PaymentIntentStatusFailed.IsNonCancelled())
}

func TestPgpPaymentIntent_HasResourceID(t *testing.T) {
	var nilIntent *PgpPaymentIntent
	assert.False(t, nilIntent.HasResourceID())
	assert.False(t, (&PgpPaymentIntent{}).HasResourceID())
	assert.True(t, (&PgpPaymentIntent{ResourceID: "pi_123"}).HasResourceID())
}
