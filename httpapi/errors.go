package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	gk "github.com/panyam/grovekeep"
)

const (
	errCodeNotFound = "not_found"
	errCodeInternal = "internal_error"
)

// statusFor maps an AuthError code to its HTTP status
func statusFor(code string) int {
	switch code {
	case gk.ErrCodeInvalidCreds:
		return http.StatusUnauthorized
	case gk.ErrCodeUnauthorized:
		return http.StatusForbidden
	case gk.ErrCodeEmailExists, gk.ErrCodeIdentifierExists:
		return http.StatusConflict
	case gk.ErrCodeAccountLocked:
		return http.StatusLocked
	case errCodeNotFound:
		return http.StatusNotFound
	case errCodeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// writeError renders err as the JSON error body. A zero status is derived from
// the error code. Errors that are not AuthErrors are logged and reported as 500.
func writeError(w http.ResponseWriter, err error, status int) {
	var authErr *gk.AuthError
	switch {
	case errors.As(err, &authErr):
	case errors.Is(err, gk.ErrUserNotFound):
		authErr = gk.NewAuthError(errCodeNotFound, "User not found", "id")
	default:
		slog.Error("request failed", "error", err)
		authErr = gk.NewAuthError(errCodeInternal, "Internal error", "")
	}
	if status == 0 {
		status = statusFor(authErr.Code)
	}
	writeJSON(w, status, authErr)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
