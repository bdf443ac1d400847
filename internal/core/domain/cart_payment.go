package domain

import (
	"time"

	"github.com/google/uuid"
)

// SplitPayment describes an optional payout-account split applied on top
// of a cart payment, e.g. a marketplace application fee.
type SplitPayment struct {
	PayoutAccountID   string
	ApplicationFeeAmount int64
}

// CartPayment is the top-level client-facing record for one intent to
// charge a payment method for a cart of goods.
type CartPayment struct {
	ID              uuid.UUID
	PayerID         string
	PaymentMethodID string
	Amount          int64
	DelayCapture    bool
	Currency        string
	Country         string

	ReferenceID   string
	ReferenceType string

	ClientDescription   *string
	StatementDescriptor  *string

	SplitPayment *SplitPayment

	Metadata map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CaptureMethod mirrors the PSP's authorize/capture distinction.
type CaptureMethod string

const (
	CaptureMethodAuto   CaptureMethod = "auto"
	CaptureMethodManual CaptureMethod = "manual"
)

// PaymentIntentStatus is the domain-level lifecycle status of a single
// authorize-capture cycle, per the state machine in the spec.
type PaymentIntentStatus string

const (
	PaymentIntentStatusInit             PaymentIntentStatus = "INIT"
	PaymentIntentStatusRequiresCapture  PaymentIntentStatus = "REQUIRES_CAPTURE"
	PaymentIntentStatusSucceeded        PaymentIntentStatus = "SUCCEEDED"
	PaymentIntentStatusCancelled        PaymentIntentStatus = "CANCELLED"
	PaymentIntentStatusFailed           PaymentIntentStatus = "FAILED"
)

// PaymentIntent is the domain-level record of a single authorize-capture
// cycle belonging to a CartPayment.
type PaymentIntent struct {
	ID                     uuid.UUID
	CartPaymentID          uuid.UUID
	IdempotencyKey         string
	Amount                 int64
	AmountCapturable       int64
	AmountReceived         int64
	Currency               string
	Country                string
	CaptureMethod          CaptureMethod
	Status                 PaymentIntentStatus
	LegacyConsumerChargeID int64

	CapturedAt  *time.Time
	CancelledAt *time.Time
	CaptureAfter *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PgpPaymentIntentStatus mirrors PaymentIntentStatus but is tracked
// separately since the PSP's view can briefly diverge from the domain
// view while a submission is in flight.
type PgpPaymentIntentStatus string

const (
	PgpPaymentIntentStatusInit            PgpPaymentIntentStatus = "INIT"
	PgpPaymentIntentStatusRequiresCapture PgpPaymentIntentStatus = "REQUIRES_CAPTURE"
	PgpPaymentIntentStatusSucceeded       PgpPaymentIntentStatus = "SUCCEEDED"
	PgpPaymentIntentStatusCancelled       PgpPaymentIntentStatus = "CANCELLED"
	PgpPaymentIntentStatusFailed          PgpPaymentIntentStatus = "FAILED"
)

// PgpPaymentIntent mirrors a PaymentIntent from the PSP's point of view.
// ResourceID is empty until the PSP has accepted the submission.
type PgpPaymentIntent struct {
	ID               uuid.UUID
	PaymentIntentID  uuid.UUID
	ResourceID       string
	Status           PgpPaymentIntentStatus
	Amount           int64
	AmountCapturable int64
	AmountReceived   int64
	Currency         string
	ChargeResourceID string

	ErrorCode    *string
	ErrorMessage *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasResourceID reports whether the PSP has ever accepted this intent.
func (p *PgpPaymentIntent) HasResourceID() bool {
	return p != nil && p.ResourceID != ""
}

// PaymentIntentAdjustmentHistory is an append-only audit row written every
// time a payment intent's amount changes.
type PaymentIntentAdjustmentHistory struct {
	ID              uuid.UUID
	PaymentIntentID uuid.UUID
	IdempotencyKey  string
	AmountOriginal  int64
	AmountDelta     int64
	Amount          int64
	CreatedAt       time.Time
}

// RefundStatus tracks a refund's lifecycle against the PSP.
type RefundStatus string

const (
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusSucceeded  RefundStatus = "succeeded"
	RefundStatusFailed     RefundStatus = "failed"
)

// Refund is the domain-level record of one refund against a PaymentIntent.
type Refund struct {
	ID              uuid.UUID
	PaymentIntentID uuid.UUID
	IdempotencyKey  string
	Amount          int64
	Status          RefundStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PgpRefund mirrors a Refund from the PSP's point of view.
type PgpRefund struct {
	ID         uuid.UUID
	RefundID   uuid.UUID
	ResourceID string
	Status     RefundStatus
	Amount     int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
