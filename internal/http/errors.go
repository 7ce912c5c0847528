package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"teamreports/internal/auth"
	"teamreports/internal/export"
	"teamreports/internal/services"
	"teamreports/internal/store"
)

// Error codes returned in the JSON error body.
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeForbidden              = "FORBIDDEN"
	CodeRateLimited            = "RATE_LIMITED"
	CodeFormatNotImplemented   = "FORMAT_NOT_IMPLEMENTED"
	CodeFormatUnsupported      = "FORMAT_UNSUPPORTED"
	CodeRecordStoreUnavailable = "RECORD_STORE_UNAVAILABLE"
	CodeRenderFailed           = "RENDER_FAILED"
	CodeNotReady               = "NOT_READY"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: code, Message: message})
}

// writeAuthError is the auth.ErrorWriter for the API.
func writeAuthError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status == http.StatusForbidden {
		writeError(w, r, status, CodeForbidden, "your role may not access this resource")
		return
	}
	msg := "authentication required"
	if errors.Is(err, auth.ErrInvalidToken) {
		msg = "invalid or expired token"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="teamreports"`)
	writeError(w, r, http.StatusUnauthorized, CodeUnauthenticated, msg)
}

// exportFailure maps an export pipeline error to a status and code. The
// cases are kept apart so clients can tell a missing format from a broken
// store or renderer.
func exportFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, export.ErrNotImplemented):
		return http.StatusNotImplemented, CodeFormatNotImplemented, err.Error()
	case errors.Is(err, export.ErrUnknownFormat):
		return http.StatusNotImplemented, CodeFormatUnsupported, err.Error()
	case errors.Is(err, services.ErrFetchRecords):
		return http.StatusBadGateway, CodeRecordStoreUnavailable, "the record store could not be read"
	case errors.Is(err, export.ErrRender):
		return http.StatusInternalServerError, CodeRenderFailed, "the document could not be rendered"
	default:
		return http.StatusInternalServerError, CodeInternal, "internal error"
	}
}

// submitFailure maps a report submission error to a status and code.
func submitFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity, CodeValidationFailed, err.Error()
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, CodeInvalidRequest, "report already exists"
	default:
		return http.StatusBadGateway, CodeRecordStoreUnavailable, "the report could not be stored"
	}
}
