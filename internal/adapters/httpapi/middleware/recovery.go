// Package middleware holds the http.Handler wrappers shared across every
// route: panic recovery and request timeout enforcement.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery creates middleware that recovers from panics and returns 500.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					writeInternalError(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// writeInternalError writes the fixed, opaque 500 body the spec mandates:
// the panic value is logged server-side above and never reaches the
// client.
func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"error_code"`
			Message string `json:"error_message"`
		} `json:"error"`
	}{
		Success: false,
		Error: struct {
			Code    string `json:"error_code"`
			Message string `json:"error_message"`
		}{Code: "INTERNAL_ERROR", Message: "Internal Server Error"},
	})
}
