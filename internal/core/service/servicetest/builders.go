package servicetest

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
	"github.com/ficmart/cart-payment-processor/internal/core/service"
)

// Harness bundles a processor with its fakes so a test can both drive the
// processor and assert against collaborator state.
type Harness struct {
	Repo      *FakeRepository
	PSP       *FakePSPGateway
	Payers    *FakePayerClient
	Methods   *FakePaymentMethodClient
	Processor *service.CartPaymentProcessor
}

// NewHarness wires a CartPaymentProcessor against fresh fakes using cfg.
func NewHarness(cfg service.ProcessorConfig) *Harness {
	h := &Harness{
		Repo:    NewFakeRepository(),
		PSP:     NewFakePSPGateway(),
		Payers:  NewFakePayerClient(),
		Methods: NewFakePaymentMethodClient(),
	}
	h.Processor = service.NewCartPaymentProcessor(h.Repo, h.PSP, h.Payers, h.Methods, cfg)
	return h
}

// DefaultConfig mirrors the production defaults in internal/config's
// defaultConfig, which cmd/gateway/main.go wires into the processor.
func DefaultConfig() service.ProcessorConfig {
	return service.ProcessorConfig{
		DelayCaptureDefault: false,
		DefaultCaptureAfter: 24 * time.Hour,
		CaptureSweepCutoff:  7 * 24 * time.Hour,
		DescriptionMaxLen:   1000,
	}
}

// CreateAuthorizedCartPayment runs CreatePayment with an auto-capture
// request and requires success, mirroring the teacher's
// CreateAuthorizedPayment factory for a happy-path starting fixture.
func CreateAuthorizedCartPayment(t *testing.T, ctx context.Context, h *Harness, amount int64) *domain.CartPayment {
	t.Helper()
	cp, err := h.Processor.CreatePayment(ctx, service.CreatePaymentRequest{
		PayerID:         "payer-1",
		PaymentMethodID: "pm-1",
		Amount:          amount,
		ReferenceID:     "order-1",
		ReferenceType:   "order_cart",
	}, uniqueKey(t), "US", "usd")
	require.NoError(t, err)
	require.NotNil(t, cp)
	return cp
}

// CreateDelayedCartPayment runs CreatePayment with delay_capture set, so the
// resulting intent lands in REQUIRES_CAPTURE rather than SUCCEEDED.
func CreateDelayedCartPayment(t *testing.T, ctx context.Context, h *Harness, amount int64) *domain.CartPayment {
	t.Helper()
	cp, err := h.Processor.CreatePayment(ctx, service.CreatePaymentRequest{
		PayerID:         "payer-1",
		PaymentMethodID: "pm-1",
		Amount:          amount,
		DelayCapture:    true,
		ReferenceID:     "order-1",
		ReferenceType:   "order_cart",
	}, uniqueKey(t), "US", "usd")
	require.NoError(t, err)
	require.NotNil(t, cp)
	return cp
}

var keyCounter int

func uniqueKey(t *testing.T) string {
	t.Helper()
	keyCounter++
	return t.Name() + "-" + strconv.Itoa(keyCounter)
}

var _ ports.Repository = (*FakeRepository)(nil)
var _ ports.PSPGateway = (*FakePSPGateway)(nil)
var _ ports.PayerClient = (*FakePayerClient)(nil)
var _ ports.PaymentMethodClient = (*FakePaymentMethodClient)(nil)
