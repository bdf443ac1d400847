// Package identity implements the out-of-scope payer and payment-method
// directory lookups the processor needs to resolve a cart payment request
// to tokenized PSP handles. Payer and payment-method management live in a
// separate service; this package only reads from it.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ficmart/cart-payment-processor/internal/config"
	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

type rawPayerResponse struct {
	PayerID               string `json:"payer_id"`
	PSPCustomerResourceID string `json:"psp_customer_resource_id"`
	Country               string `json:"country"`
}

type rawPaymentMethodResponse struct {
	PaymentMethodID            string `json:"payment_method_id"`
	PayerID                    string `json:"payer_id"`
	PSPPaymentMethodResourceID string `json:"psp_payment_method_resource_id"`
}

// Client resolves payers and payment methods against the identity
// service's HTTP API. It implements both ports.PayerClient and
// ports.PaymentMethodClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.IdentityConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.ConnTimeout},
	}
}

func (c *Client) GetRawPayer(ctx context.Context, payerID string) (*ports.RawPayer, error) {
	url := fmt.Sprintf("%s/v1/payers/%s", c.baseURL, payerID)
	var resp rawPayerResponse
	if err := c.get(ctx, url, &resp); err != nil {
		if IsNotFound(err) {
			// No dedicated taxonomy code exists for an unknown payer;
			// a cart payment can't be created against one either way, so
			// it's surfaced as the same not-found shape a bad payment
			// method would produce.
			return nil, domain.NewPaymentMethodNotFoundError(payerID, "")
		}
		return nil, err
	}
	return &ports.RawPayer{
		PayerID:               resp.PayerID,
		PSPCustomerResourceID: resp.PSPCustomerResourceID,
		Country:               resp.Country,
	}, nil
}

func (c *Client) GetRawPaymentMethod(ctx context.Context, payerID, paymentMethodID string) (*ports.RawPaymentMethod, error) {
	url := fmt.Sprintf("%s/v1/payers/%s/payment_methods/%s", c.baseURL, payerID, paymentMethodID)
	var resp rawPaymentMethodResponse
	if err := c.get(ctx, url, &resp); err != nil {
		if IsNotFound(err) {
			return nil, domain.NewPaymentMethodNotFoundError(payerID, paymentMethodID)
		}
		return nil, err
	}
	if resp.PayerID != "" && resp.PayerID != payerID {
		return nil, domain.NewPaymentMethodPayerMismatchError(payerID, paymentMethodID)
	}
	return &ports.RawPaymentMethod{
		PaymentMethodID:            resp.PaymentMethodID,
		PSPPaymentMethodResourceID: resp.PSPPaymentMethodResourceID,
	}, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build identity request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}
