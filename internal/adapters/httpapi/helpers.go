package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // headers already sent, nothing left to do
}

// writeError maps err onto the wire error taxonomy and writes it. An
// unmapped error (anything that isn't a *domain.PaymentError) is never
// handed to the client: its text is logged server-side only, and the
// response carries a fixed, opaque "Internal Server Error" body instead.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := toHTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("unhandled error", "error", err)
		writeJSON(w, status, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: "INTERNAL_ERROR", Message: "Internal Server Error"},
		})
		return
	}
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error: ErrorBody{
			Code:      toErrorCode(err),
			Message:   err.Error(),
			Retryable: toRetryable(err),
		},
	})
}
