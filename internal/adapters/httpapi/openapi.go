package httpapi

import (
	"bytes"
	_ "embed"
	"io"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openapiSpec []byte

// openapiValidator validates incoming requests against the embedded
// OpenAPI document before they reach a handler, rejecting malformed
// bodies and missing headers with a 422 rather than letting them fall
// through to the processor. Routes it doesn't recognize (health checks,
// anything outside the documented surface) pass through unchecked.
type openapiValidator struct {
	router routers.Router
}

// newOpenAPIValidator loads and validates the embedded spec. It's
// constructed once at startup; a malformed spec is a programming error,
// not a runtime condition, so it panics rather than threading an error
// through every caller.
func newOpenAPIValidator() *openapiValidator {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		panic("httpapi: invalid embedded openapi document: " + err.Error())
	}
	if err := doc.Validate(loader.Context); err != nil {
		panic("httpapi: embedded openapi document failed validation: " + err.Error())
	}

	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		panic("httpapi: failed to build openapi router: " + err.Error())
	}

	return &openapiValidator{router: router}
}

// Middleware validates the request body and parameters for routes it
// recognizes in the embedded document, then restores the body so the
// downstream handler can still decode it.
func (v *openapiValidator) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var bodyBytes []byte
			if r.Body != nil {
				bodyBytes, _ = io.ReadAll(r.Body)
			}
			restore := func(req *http.Request) {
				req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			}
			restore(r)

			route, pathParams, err := v.router.FindRoute(r)
			if err == nil && route != nil {
				validationReq := r.Clone(r.Context())
				restore(validationReq)

				input := &openapi3filter.RequestValidationInput{
					Request:    validationReq,
					PathParams: pathParams,
					Route:      route,
				}
				if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
					writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
						Success: false,
						Error:   ErrorBody{Code: "REQUEST_VALIDATION_FAILED", Message: err.Error()},
					})
					return
				}
			}

			restore(r)
			next.ServeHTTP(w, r)
		})
	}
}
