package servicetest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

// FakePSPGateway is a scriptable ports.PSPGateway. Each outcome defaults to
// accepting the call; set the *Err fields to force a provider error, or
// call SetCommando(true) to exercise the bypass path without a real outage.
type FakePSPGateway struct {
	mu sync.Mutex

	CreateErr  error
	CaptureErr error
	CancelErr  error
	RefundErr  error

	NextResourceID string

	commando atomic.Bool

	Calls []string
}

func NewFakePSPGateway() *FakePSPGateway {
	return &FakePSPGateway{NextResourceID: "psp_res_1"}
}

func (f *FakePSPGateway) CreatePaymentIntent(ctx context.Context, req ports.CreatePaymentIntentRequest) (*ports.ProviderIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "create")
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	status := domain.PgpPaymentIntentStatusRequiresCapture
	if req.CaptureMethod == domain.CaptureMethodAuto {
		status = domain.PgpPaymentIntentStatusSucceeded
	}
	return &ports.ProviderIntent{
		ResourceID:       f.NextResourceID,
		ChargeResourceID: f.NextResourceID + "_charge",
		Status:           status,
		AmountCapturable: req.Amount,
		AmountReceived:   0,
	}, nil
}

func (f *FakePSPGateway) CapturePaymentIntent(ctx context.Context, resourceID string, amount int64) (*ports.ProviderIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "capture")
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	return &ports.ProviderIntent{
		ResourceID:       resourceID,
		Status:           domain.PgpPaymentIntentStatusSucceeded,
		AmountCapturable: 0,
		AmountReceived:   amount,
	}, nil
}

func (f *FakePSPGateway) CancelPaymentIntent(ctx context.Context, resourceID string) (*ports.ProviderIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "cancel")
	if f.CancelErr != nil {
		return nil, f.CancelErr
	}
	return &ports.ProviderIntent{
		ResourceID: resourceID,
		Status:     domain.PgpPaymentIntentStatusCancelled,
	}, nil
}

func (f *FakePSPGateway) RefundCharge(ctx context.Context, chargeResourceID string, idempotencyKey string, amount int64) (*ports.ProviderRefund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "refund")
	if f.RefundErr != nil {
		return nil, f.RefundErr
	}
	return &ports.ProviderRefund{
		ResourceID: "psp_refund_" + idempotencyKey,
		Status:     domain.RefundStatusSucceeded,
		Amount:     amount,
	}, nil
}

func (f *FakePSPGateway) IsCommando() bool        { return f.commando.Load() }
func (f *FakePSPGateway) SetCommando(enabled bool) { f.commando.Store(enabled) }

// FakePayerClient resolves any payer id to a synthesized RawPayer unless an
// override is registered in Payers.
type FakePayerClient struct {
	mu     sync.Mutex
	Payers map[string]*ports.RawPayer
}

func NewFakePayerClient() *FakePayerClient {
	return &FakePayerClient{Payers: make(map[string]*ports.RawPayer)}
}

func (f *FakePayerClient) GetRawPayer(ctx context.Context, payerID string) (*ports.RawPayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Payers[payerID]
	if !ok {
		return &ports.RawPayer{PayerID: payerID, PSPCustomerResourceID: "cus_" + payerID, Country: "US"}, nil
	}
	return p, nil
}

// FakePaymentMethodClient mirrors FakePayerClient for payment methods, and
// additionally honors PayerMismatch to exercise the payer/method ownership
// check.
type FakePaymentMethodClient struct {
	mu            sync.Mutex
	Methods       map[string]*ports.RawPaymentMethod
	PayerMismatch map[string]bool
}

func NewFakePaymentMethodClient() *FakePaymentMethodClient {
	return &FakePaymentMethodClient{
		Methods:       make(map[string]*ports.RawPaymentMethod),
		PayerMismatch: make(map[string]bool),
	}
}

func (f *FakePaymentMethodClient) GetRawPaymentMethod(ctx context.Context, payerID, paymentMethodID string) (*ports.RawPaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PayerMismatch[paymentMethodID] {
		return nil, domain.NewPaymentMethodPayerMismatchError(payerID, paymentMethodID)
	}
	if m, ok := f.Methods[paymentMethodID]; ok {
		return m, nil
	}
	return &ports.RawPaymentMethod{PaymentMethodID: paymentMethodID, PSPPaymentMethodResourceID: "pm_" + paymentMethodID}, nil
}
