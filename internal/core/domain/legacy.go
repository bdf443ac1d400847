package domain

import "time"

// LegacyStripeChargeStatus mirrors the handful of states the older API
// surface understood before the domain-level PaymentIntent existed.
type LegacyStripeChargeStatus string

const (
	LegacyStripeChargeStatusSucceeded LegacyStripeChargeStatus = "succeeded"
	LegacyStripeChargeStatusFailed    LegacyStripeChargeStatus = "failed"
	LegacyStripeChargeStatusCancelled LegacyStripeChargeStatus = "cancelled"
)

// LegacyConsumerCharge is created alongside the first PaymentIntent of a
// CartPayment and lives as long as any intent still references it.
// OriginalTotal is stamped once and never mutated, even as later
// adjustments change the cart payment's current amount.
type LegacyConsumerCharge struct {
	ID            int64
	OriginalTotal int64
	CountryID     int64
	PayerID       string
	ConsumerID    string
	CreatedAt     time.Time
}

// LegacyStripeCharge is the legacy projection of a PgpPaymentIntent.
type LegacyStripeCharge struct {
	ID                int64
	ConsumerChargeID  int64
	IdempotencyKey    string
	Amount            int64
	AmountRefunded    int64
	Status            LegacyStripeChargeStatus
	StripeChargeID    string
	ErrorCode         *string
	ErrorDescription  *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LegacyPayment bundles the two legacy rows that together mirror a
// PaymentIntent/PgpPaymentIntent pair for pre-CartPayment API clients.
type LegacyPayment struct {
	ConsumerCharge *LegacyConsumerCharge
	StripeCharge   *LegacyStripeCharge
}
