package httpapi

import "github.com/ficmart/cart-payment-processor/internal/core/domain"

// createCartPaymentRequest is the inbound JSON shape for
// POST /cart-payments. validator struct tags back the same
// required-field checks the embedded OpenAPI document already enforces,
// matching the teacher's belt-and-suspenders validation style.
type createCartPaymentRequest struct {
	PayerID              string            `json:"payer_id" validate:"required"`
	PaymentMethodID      string            `json:"payment_method_id" validate:"required"`
	Amount               int64             `json:"amount" validate:"required,gt=0"`
	DelayCapture         bool              `json:"delay_capture"`
	ReferenceID          string            `json:"reference_id" validate:"required"`
	ReferenceType        string            `json:"reference_type" validate:"required"`
	Country              string            `json:"country" validate:"required"`
	Currency             string            `json:"currency" validate:"required"`
	ClientDescription    *string           `json:"client_description,omitempty"`
	StatementDescriptor  *string           `json:"statement_descriptor,omitempty"`
	PayoutAccountID      *string           `json:"payout_account_id,omitempty"`
	ApplicationFeeAmount *int64            `json:"application_fee_amount,omitempty"`
	Metadata             map[string]string `json:"metadata,omitempty"`
}

type updateCartPaymentRequest struct {
	PayerID           string  `json:"payer_id" validate:"required"`
	Amount            int64   `json:"amount" validate:"gte=0"`
	ClientDescription *string `json:"client_description,omitempty"`
}

// legacyCreateCartPaymentRequest is the inbound JSON shape for
// POST /legacy/cart-payments: the same create_payment fields plus the
// legacy consumer identifiers a pre-CartPayment client still supplies
// directly.
type legacyCreateCartPaymentRequest struct {
	PayerID           string  `json:"payer_id" validate:"required"`
	PaymentMethodID   string  `json:"payment_method_id" validate:"required"`
	Amount            int64   `json:"amount" validate:"required,gt=0"`
	DelayCapture      bool    `json:"delay_capture"`
	ReferenceID       string  `json:"reference_id" validate:"required"`
	ReferenceType     string  `json:"reference_type" validate:"required"`
	Country           string  `json:"country" validate:"required"`
	Currency          string  `json:"currency" validate:"required"`
	ClientDescription *string `json:"client_description,omitempty"`
	DDConsumerID      string  `json:"dd_consumer_id" validate:"required"`
	DDCountryID       int64   `json:"dd_country_id"`
}

// updatePaymentForLegacyChargeRequest is the inbound JSON shape for
// PUT /legacy/charges/{dd_charge_id}.
type updatePaymentForLegacyChargeRequest struct {
	AmountDelta             int64   `json:"amount_delta"`
	ClientDescription       *string `json:"client_description,omitempty"`
	DDAdditionalPaymentInfo *string `json:"dd_additional_payment_info,omitempty"`
}

type legacyPaymentResponse struct {
	CartPayment    cartPaymentResponse `json:"cart_payment"`
	ConsumerChargeID int64              `json:"dd_charge_id"`
	StripeChargeID   string             `json:"provider_charge_id"`
	AmountRefunded   int64              `json:"amount_refunded"`
	Status           string             `json:"status"`
}

func toLegacyPaymentResponse(cp *domain.CartPayment, legacy *domain.LegacyPayment) legacyPaymentResponse {
	resp := legacyPaymentResponse{CartPayment: toCartPaymentResponse(cp)}
	if legacy.ConsumerCharge != nil {
		resp.ConsumerChargeID = legacy.ConsumerCharge.ID
	}
	if legacy.StripeCharge != nil {
		resp.StripeChargeID = legacy.StripeCharge.StripeChargeID
		resp.AmountRefunded = legacy.StripeCharge.AmountRefunded
		resp.Status = string(legacy.StripeCharge.Status)
	}
	return resp
}

type cartPaymentResponse struct {
	ID                  string            `json:"id"`
	PayerID             string            `json:"payer_id"`
	PaymentMethodID     string            `json:"payment_method_id"`
	Amount              int64             `json:"amount"`
	DelayCapture        bool              `json:"delay_capture"`
	Currency            string            `json:"currency"`
	Country             string            `json:"country"`
	ReferenceID         string            `json:"reference_id"`
	ReferenceType       string            `json:"reference_type"`
	ClientDescription   *string           `json:"client_description,omitempty"`
	StatementDescriptor *string           `json:"statement_descriptor,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           string            `json:"created_at"`
	UpdatedAt           string            `json:"updated_at"`
}

func toCartPaymentResponse(cp *domain.CartPayment) cartPaymentResponse {
	return cartPaymentResponse{
		ID:                  cp.ID.String(),
		PayerID:             cp.PayerID,
		PaymentMethodID:     cp.PaymentMethodID,
		Amount:              cp.Amount,
		DelayCapture:        cp.DelayCapture,
		Currency:            cp.Currency,
		Country:             cp.Country,
		ReferenceID:         cp.ReferenceID,
		ReferenceType:       cp.ReferenceType,
		ClientDescription:   cp.ClientDescription,
		StatementDescriptor: cp.StatementDescriptor,
		Metadata:            cp.Metadata,
		CreatedAt:           cp.CreatedAt.Format(timeLayout),
		UpdatedAt:           cp.UpdatedAt.Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
