package domain

// IntentState is the single source of truth for "what must happen next"
// to a payment intent. It is a pure function of the intent's own status,
// its PSP mirror's status, its amount fields, and whether any refunds
// exist against it — never stored directly.
type IntentState string

const (
	IntentStateNew                      IntentState = "NEW"
	IntentStateInFlightToProvider       IntentState = "IN_FLIGHT_TO_PROVIDER"
	IntentStateAuthorizedAwaitingCapture IntentState = "AUTHORIZED_AWAITING_CAPTURE"
	IntentStateCaptured                 IntentState = "CAPTURED"
	IntentStatePartiallyRefunded        IntentState = "PARTIALLY_REFUNDED"
	IntentStateFullyRefunded            IntentState = "FULLY_REFUNDED"
	IntentStateCancelled                IntentState = "CANCELLED"
	IntentStateFailed                   IntentState = "FAILED"
)

// Classify derives the IntentState for a PaymentIntent given its PSP
// mirror and the refunds recorded against it. refundedAmount is the sum
// of succeeded-or-processing refund amounts.
func Classify(intent *PaymentIntent, pgpIntent *PgpPaymentIntent, refundedAmount int64) IntentState {
	switch intent.Status {
	case PaymentIntentStatusInit:
		if pgpIntent == nil || pgpIntent.Status == PgpPaymentIntentStatusInit {
			return IntentStateNew
		}
		return IntentStateInFlightToProvider

	case PaymentIntentStatusRequiresCapture:
		return IntentStateAuthorizedAwaitingCapture

	case PaymentIntentStatusSucceeded:
		if refundedAmount <= 0 {
			return IntentStateCaptured
		}
		if refundedAmount >= intent.AmountReceived {
			return IntentStateFullyRefunded
		}
		return IntentStatePartiallyRefunded

	case PaymentIntentStatusCancelled:
		return IntentStateCancelled

	case PaymentIntentStatusFailed:
		return IntentStateFailed
	}

	return IntentStateFailed
}

// InFlightWindow reports whether the PSP mirror is allowed to diverge
// from the domain intent's status right now: only while a provider
// submission is outstanding: the intent is still INIT and its pgp intent
// is either missing or has already moved past INIT. A pgp intent still at
// INIT behind an intent that has moved on is not treated as in flight.
func InFlightWindow(intent *PaymentIntent, pgpIntent *PgpPaymentIntent) bool {
	if pgpIntent == nil {
		return intent.Status == PaymentIntentStatusInit
	}
	return intent.Status == PaymentIntentStatusInit &&
		pgpIntent.Status != PgpPaymentIntentStatusInit
}

// IsTerminal reports whether the intent can no longer change status
// (amount/refund bookkeeping on a SUCCEEDED intent is not a status change).
func (s PaymentIntentStatus) IsTerminal() bool {
	switch s {
	case PaymentIntentStatusSucceeded, PaymentIntentStatusCancelled, PaymentIntentStatusFailed:
		return true
	default:
		return false
	}
}

// IsNonCancelled reports whether an intent is still live enough to be
// considered "the current intent" for adjustment purposes.
func (s PaymentIntentStatus) IsNonCancelled() bool {
	return s != PaymentIntentStatusCancelled && s != PaymentIntentStatusFailed
}
