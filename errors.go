package grovekeep

import (
	"fmt"
	"strings"
)

// Error codes carried by AuthError. These are stable and safe to render to a UI.
const (
	ErrCodeMissingField      = "missing_field"
	ErrCodeInvalidEmail      = "invalid_email"
	ErrCodeWeakPassword      = "weak_password"
	ErrCodeEmailExists       = "email_exists"
	ErrCodeIdentifierExists  = "identifier_exists"
	ErrCodeInvalidIdentifier = "invalid_identifier"
	ErrCodeInvalidCreds      = "invalid_credentials"
	ErrCodeAccountLocked     = "account_locked"
	ErrCodeInvalidResetToken = "invalid_or_expired_token"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeInvalidData       = "invalid_data"
)

// AuthError is the structured result every failing operation returns.
// Compare with errors.Is against the Err* sentinels; only Code is matched.
type AuthError struct {
	Code             string   `json:"code"`
	Message          string   `json:"error"`
	Field            string   `json:"field,omitempty"`
	Violations       []string `json:"violations,omitempty"`
	MinutesRemaining int      `json:"minutes_remaining,omitempty"`
}

// NewAuthError creates an AuthError for the given code, message and offending field
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Violations, "; "))
	}
	return e.Code + ": " + e.Message
}

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

// Locked reports whether the failure was caused by an account lockout
func (e *AuthError) Locked() bool {
	return e.Code == ErrCodeAccountLocked
}

var (
	ErrInvalidEmail          = NewAuthError(ErrCodeInvalidEmail, "Invalid email address", "email")
	ErrWeakPassword          = NewAuthError(ErrCodeWeakPassword, "Password does not meet the policy", "password")
	ErrDuplicateEmail        = NewAuthError(ErrCodeEmailExists, "Email is already registered", "email")
	ErrDuplicateIdentifier   = NewAuthError(ErrCodeIdentifierExists, "Identifier is already taken", "id")
	ErrInvalidIdentifier     = NewAuthError(ErrCodeInvalidIdentifier, "Identifier may only contain letters, digits, '.', '_' and '-'", "id")
	ErrInvalidCredentials    = NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password")
	ErrAccountLocked         = NewAuthError(ErrCodeAccountLocked, "Account is temporarily locked", "")
	ErrInvalidOrExpiredToken = NewAuthError(ErrCodeInvalidResetToken, "Invalid or expired token", "token")
	ErrUnauthorized          = NewAuthError(ErrCodeUnauthorized, "Not authorized", "")
)

func weakPasswordError(violations []string) *AuthError {
	err := NewAuthError(ErrCodeWeakPassword, "Password does not meet the policy", "password")
	err.Violations = violations
	return err
}

func accountLockedError(minutes int) *AuthError {
	err := NewAuthError(ErrCodeAccountLocked,
		fmt.Sprintf("Account is locked. Try again in %d minute(s)", minutes), "")
	err.MinutesRemaining = minutes
	return err
}
