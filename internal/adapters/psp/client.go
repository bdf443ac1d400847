// Package psp implements the gateway port against the external payment
// service provider over HTTP, plus a retrying decorator and the
// commando-mode switch that lets operators short-circuit a provider that's
// known to be down.
package psp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/ficmart/cart-payment-processor/internal/config"
	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

// Client implements ports.PSPGateway over the PSP's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	commando   atomic.Bool
}

func NewClient(cfg config.PSPConfig) *Client {
	c := &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
	c.commando.Store(cfg.Commando)
	return c
}

func (c *Client) IsCommando() bool    { return c.commando.Load() }
func (c *Client) SetCommando(on bool) { c.commando.Store(on) }

func (c *Client) CreatePaymentIntent(ctx context.Context, req ports.CreatePaymentIntentRequest) (*ports.ProviderIntent, error) {
	url := fmt.Sprintf("%s/v1/payment_intents", c.baseURL)
	body := createPaymentIntentRequest{
		Amount:              req.Amount,
		Currency:            req.Currency,
		Country:             req.Country,
		PaymentMethodID:     req.PaymentMethodID,
		CustomerID:          req.PayerID,
		CaptureMethod:       string(req.CaptureMethod),
		StatementDescriptor: req.StatementDescriptor,
	}
	resp, err := sendRequest[createPaymentIntentRequest, paymentIntentResponse](c, ctx, http.MethodPost, url, &body, req.IdempotencyKey)
	if err != nil {
		return nil, translateError(err)
	}
	return toProviderIntent(resp), nil
}

func (c *Client) CapturePaymentIntent(ctx context.Context, resourceID string, amount int64) (*ports.ProviderIntent, error) {
	url := fmt.Sprintf("%s/v1/payment_intents/%s/capture", c.baseURL, resourceID)
	body := capturePaymentIntentRequest{Amount: amount}
	resp, err := sendRequest[capturePaymentIntentRequest, paymentIntentResponse](c, ctx, http.MethodPost, url, &body, "")
	if err != nil {
		return nil, translateError(err)
	}
	return toProviderIntent(resp), nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, resourceID string) (*ports.ProviderIntent, error) {
	url := fmt.Sprintf("%s/v1/payment_intents/%s/cancel", c.baseURL, resourceID)
	resp, err := sendRequest[cancelPaymentIntentRequest, paymentIntentResponse](c, ctx, http.MethodPost, url, &cancelPaymentIntentRequest{}, "")
	if err != nil {
		return nil, translateError(err)
	}
	return toProviderIntent(resp), nil
}

func (c *Client) RefundCharge(ctx context.Context, chargeResourceID string, idempotencyKey string, amount int64) (*ports.ProviderRefund, error) {
	url := fmt.Sprintf("%s/v1/charges/%s/refunds", c.baseURL, chargeResourceID)
	body := refundRequest{Amount: amount}
	resp, err := sendRequest[refundRequest, refundResponse](c, ctx, http.MethodPost, url, &body, idempotencyKey)
	if err != nil {
		return nil, translateError(err)
	}
	return &ports.ProviderRefund{
		ResourceID: resp.ResourceID,
		Status:     toRefundStatus(resp.Status),
		Amount:     resp.Amount,
	}, nil
}

func toProviderIntent(resp *paymentIntentResponse) *ports.ProviderIntent {
	return &ports.ProviderIntent{
		ResourceID:       resp.ResourceID,
		ChargeResourceID: resp.ChargeResourceID,
		Status:           toPgpStatus(resp.Status),
		AmountCapturable: resp.AmountCapturable,
		AmountReceived:   resp.AmountReceived,
	}
}

func toPgpStatus(s string) domain.PgpPaymentIntentStatus {
	switch s {
	case "requires_capture":
		return domain.PgpPaymentIntentStatusRequiresCapture
	case "succeeded":
		return domain.PgpPaymentIntentStatusSucceeded
	case "canceled", "cancelled":
		return domain.PgpPaymentIntentStatusCancelled
	case "failed":
		return domain.PgpPaymentIntentStatusFailed
	default:
		return domain.PgpPaymentIntentStatusInit
	}
}

func toRefundStatus(s string) domain.RefundStatus {
	switch s {
	case "succeeded":
		return domain.RefundStatusSucceeded
	case "failed":
		return domain.RefundStatusFailed
	default:
		return domain.RefundStatusProcessing
	}
}

// translateError wraps a raw *Error (or transport failure) into the
// domain's wire-visible error taxonomy so the service layer never needs to
// know about PSP-specific types.
func translateError(err error) error {
	var pspErr *Error
	if as, ok := err.(*Error); ok {
		pspErr = as
	}
	if pspErr != nil {
		if pspErr.StatusCode >= 500 || pspErr.StatusCode == 429 {
			return domain.NewProviderUnavailableError(pspErr)
		}
		return domain.NewProviderError(pspErr.Message, false, pspErr)
	}
	return domain.NewProviderUnavailableError(err)
}

func sendRequest[Req any, Resp any](c *Client, ctx context.Context, method, url string, reqBody *Req, idempotencyKey string) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal psp request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build psp request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("psp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, &Error{Code: "READ_ERROR", Message: readErr.Error(), StatusCode: resp.StatusCode}
		}
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, &Error{Code: "UNKNOWN", Message: string(body), StatusCode: resp.StatusCode}
		}
		return nil, &Error{Code: errResp.Err, Message: errResp.Message, StatusCode: resp.StatusCode}
	}

	var out Resp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode psp response: %w", err)
	}
	return &out, nil
}
