// Package httpapi exposes the cart payment processor over HTTP: a
// net/http.ServeMux router, OpenAPI-backed request validation, and the
// handlers that translate JSON requests into CartPaymentProcessor calls.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/service"
)

// Handlers wires HTTP requests to the CartPaymentProcessor.
type Handlers struct {
	processor *service.CartPaymentProcessor
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewHandlers(processor *service.CartPaymentProcessor, logger *slog.Logger) *Handlers {
	return &Handlers{
		processor: processor,
		validate:  validator.New(),
		logger:    logger,
	}
}

// CreateCartPayment godoc
//
//	@Summary		Create a cart payment
//	@Description	Authorizes (and optionally captures) a payment for a cart, idempotent on the Idempotency-Key header
//	@Tags			cart-payments
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header	string						true	"Idempotency key"
//	@Param			request			body	createCartPaymentRequest	true	"Cart payment request"
//	@Success		201	{object}	cartPaymentResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/cart-payments [post]
func (h *Handlers) CreateCartPayment(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "IDEMPOTENCY_KEY_REQUIRED", Message: "Idempotency-Key header is required"},
		})
		return
	}

	var req createCartPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "VALIDATION_FAILED", Message: err.Error()},
		})
		return
	}

	var split *domain.SplitPayment
	if req.PayoutAccountID != nil {
		split = &domain.SplitPayment{PayoutAccountID: *req.PayoutAccountID}
		if req.ApplicationFeeAmount != nil {
			split.ApplicationFeeAmount = *req.ApplicationFeeAmount
		}
	}

	cartPayment, err := h.processor.CreatePayment(r.Context(), service.CreatePaymentRequest{
		PayerID:           req.PayerID,
		PaymentMethodID:   req.PaymentMethodID,
		Amount:            req.Amount,
		DelayCapture:      req.DelayCapture,
		ReferenceID:       req.ReferenceID,
		ReferenceType:     req.ReferenceType,
		ClientDescription: req.ClientDescription,
		SplitPayment:      split,
		Metadata:          req.Metadata,
	}, idempotencyKey, req.Country, req.Currency)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCartPaymentResponse(cartPayment))
}

// GetCartPayment godoc
//
//	@Summary	Fetch a cart payment
//	@Tags		cart-payments
//	@Produce	json
//	@Param		id	path	string	true	"Cart payment id"
//	@Success	200	{object}	cartPaymentResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/cart-payments/{id} [get]
func (h *Handlers) GetCartPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}

	cartPayment, err := h.processor.GetCartPayment(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartPaymentResponse(cartPayment))
}

// UpdateCartPayment godoc
//
//	@Summary		Adjust a cart payment's amount
//	@Description	Adjusting up raises an uncaptured intent in place when the new amount is within the provider's authorization headroom; otherwise the prior intent is refunded or cancelled and a new intent is created for the full new amount. Adjusting down lowers an uncaptured intent in place, or refunds the difference after capture
//	@Tags			cart-payments
//	@Accept			json
//	@Produce		json
//	@Param			id				path	string						true	"Cart payment id"
//	@Param			Idempotency-Key	header	string						true	"Idempotency key"
//	@Param			request			body	updateCartPaymentRequest	true	"Update request"
//	@Success		200	{object}	cartPaymentResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/cart-payments/{id} [put]
func (h *Handlers) UpdateCartPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "IDEMPOTENCY_KEY_REQUIRED", Message: "Idempotency-Key header is required"},
		})
		return
	}

	var req updateCartPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "VALIDATION_FAILED", Message: err.Error()},
		})
		return
	}

	cartPayment, err := h.processor.UpdatePayment(r.Context(), id, idempotencyKey, service.UpdatePaymentRequest{
		PayerID:           req.PayerID,
		Amount:            req.Amount,
		ClientDescription: req.ClientDescription,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartPaymentResponse(cartPayment))
}

// CancelCartPayment godoc
//
//	@Summary	Cancel a cart payment
//	@Tags		cart-payments
//	@Produce	json
//	@Param		id	path	string	true	"Cart payment id"
//	@Success	200	{object}	cartPaymentResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/cart-payments/{id}/cancel [post]
func (h *Handlers) CancelCartPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}

	cartPayment, err := h.processor.CancelPayment(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartPaymentResponse(cartPayment))
}

// LegacyCreateCartPayment godoc
//
//	@Summary		Create a cart payment for a legacy DoorDash-charge client
//	@Description	Same create flow as CreateCartPayment, but stamps the caller-supplied legacy consumer identifiers and returns the legacy charge pair alongside the CartPayment
//	@Tags			legacy
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header	string							true	"Idempotency key"
//	@Param			request			body	legacyCreateCartPaymentRequest	true	"Legacy cart payment request"
//	@Success		201	{object}	legacyPaymentResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/legacy/cart-payments [post]
func (h *Handlers) LegacyCreateCartPayment(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "IDEMPOTENCY_KEY_REQUIRED", Message: "Idempotency-Key header is required"},
		})
		return
	}

	var req legacyCreateCartPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "VALIDATION_FAILED", Message: err.Error()},
		})
		return
	}

	cartPayment, legacy, err := h.processor.LegacyCreatePayment(r.Context(), service.LegacyCreatePaymentRequest{
		PayerID:           req.PayerID,
		PaymentMethodID:   req.PaymentMethodID,
		Amount:            req.Amount,
		DelayCapture:      req.DelayCapture,
		ReferenceID:       req.ReferenceID,
		ReferenceType:     req.ReferenceType,
		ClientDescription: req.ClientDescription,
		DDConsumerID:      req.DDConsumerID,
		DDCountryID:       req.DDCountryID,
	}, idempotencyKey, req.Currency, req.Country, req.Country)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLegacyPaymentResponse(cartPayment, legacy))
}

// UpdatePaymentForLegacyCharge godoc
//
//	@Summary	Adjust a cart payment's amount by a legacy dd_charge_id
//	@Tags		legacy
//	@Accept		json
//	@Produce	json
//	@Param		dd_charge_id	path	int									true	"Legacy consumer charge id"
//	@Param		Idempotency-Key	header	string								true	"Idempotency key"
//	@Param		request			body	updatePaymentForLegacyChargeRequest	true	"Update request"
//	@Success	200	{object}	cartPaymentResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/legacy/charges/{dd_charge_id} [put]
func (h *Handlers) UpdatePaymentForLegacyCharge(w http.ResponseWriter, r *http.Request) {
	ddChargeID, err := parsePathInt64(r, "dd_charge_id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "IDEMPOTENCY_KEY_REQUIRED", Message: "Idempotency-Key header is required"},
		})
		return
	}

	var req updatePaymentForLegacyChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}

	cartPayment, err := h.processor.UpdatePaymentForLegacyCharge(r.Context(), idempotencyKey, ddChargeID, req.AmountDelta, req.ClientDescription, nil)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartPaymentResponse(cartPayment))
}

// CancelPaymentForLegacyCharge godoc
//
//	@Summary	Cancel a cart payment by its legacy dd_charge_id
//	@Tags		legacy
//	@Produce	json
//	@Param		dd_charge_id	path	int	true	"Legacy consumer charge id"
//	@Success	200	{object}	cartPaymentResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/legacy/charges/{dd_charge_id} [delete]
func (h *Handlers) CancelPaymentForLegacyCharge(w http.ResponseWriter, r *http.Request) {
	ddChargeID, err := parsePathInt64(r, "dd_charge_id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "MALFORMED_REQUEST", Message: err.Error()},
		})
		return
	}

	cartPayment, err := h.processor.CancelPaymentForLegacyCharge(r.Context(), ddChargeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartPaymentResponse(cartPayment))
}

// parsePathID binds a URL path parameter to a uuid.UUID using the
// OpenAPI "simple" style oapi-codegen/runtime expects for unexploded
// primitive path parameters.
func parsePathID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := runtime.BindStyledParameter("simple", false, name, r.PathValue(name), &id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// parsePathInt64 binds a URL path parameter to an int64, used for the
// legacy dd_charge_id routes.
func parsePathInt64(r *http.Request, name string) (int64, error) {
	var id int64
	if err := runtime.BindStyledParameter("simple", false, name, r.PathValue(name), &id); err != nil {
		return 0, err
	}
	return id, nil
}
