package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/netguard/internal/common"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrInvalidRole),
		errors.Is(err, common.ErrPasswordMismatch):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict),
		errors.Is(err, common.ErrSuperAdminLimitExceeded):
		return http.StatusConflict
	case errors.Is(err, common.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports err to the client. redirect names the page the
// request came from so the browser can return there with the message.
// Internal failures are logged and never echoed.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error, redirect string) {
	status := statusFor(err)
	msg := err.Error()

	if status == http.StatusInternalServerError && !errors.Is(err, common.ErrPredictionFailed) {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
		msg = common.ErrorInternal.Error()
	}

	writeJSON(w, status, errorBody{Error: msg, Redirect: redirect})
}

// decode reads a JSON request body into v. Malformed bodies are reported as
// validation errors.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}
	return nil
}
