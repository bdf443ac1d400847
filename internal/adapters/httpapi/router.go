package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ficmart/cart-payment-processor/internal/adapters/httpapi/middleware"
	"github.com/ficmart/cart-payment-processor/internal/core/service"
)

// NewRouter builds the full handler chain: recovery, request timeout,
// OpenAPI validation, then the pattern-routed mux, matching the teacher's
// layering in RegisterRoutes.
func NewRouter(processor *service.CartPaymentProcessor, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	h := NewHandlers(processor, logger)
	validator := newOpenAPIValidator()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /cart-payments", h.CreateCartPayment)
	mux.HandleFunc("GET /cart-payments/{id}", h.GetCartPayment)
	mux.HandleFunc("PUT /cart-payments/{id}", h.UpdateCartPayment)
	mux.HandleFunc("POST /cart-payments/{id}/cancel", h.CancelCartPayment)
	mux.HandleFunc("POST /legacy/cart-payments", h.LegacyCreateCartPayment)
	mux.HandleFunc("PUT /legacy/charges/{dd_charge_id}", h.UpdatePaymentForLegacyCharge)
	mux.HandleFunc("DELETE /legacy/charges/{dd_charge_id}", h.CancelPaymentForLegacyCharge)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var handler http.Handler = mux
	handler = validator.Middleware(logger)(handler)
	handler = middleware.Timeout(requestTimeout, logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	return handler
}
