package grovekeep

import (
	"time"
)

// User is a registered account. Identifier and email are each unique across all records.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"password_hash"`
	DisplayName    string     `json:"display_name"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	Verified       bool       `json:"verified"`

	// Reset ticket. Only the SHA-256 digest of the token is kept.
	ResetTokenHash string     `json:"reset_token_hash,omitempty"`
	ResetExpiresAt *time.Time `json:"reset_expires_at,omitempty"`
}

func (u *User) Id() string { return u.ID }

// Profile returns the fields that are safe to hand to a UI
func (u *User) Profile() map[string]any {
	out := map[string]any{
		"id":           u.ID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"created_at":   u.CreatedAt,
		"verified":     u.Verified,
	}
	if u.LastLoginAt != nil {
		out["last_login_at"] = *u.LastLoginAt
	}
	return out
}

// IsLocked reports whether the lockout window is still open at now
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// HasResetTicket reports whether a reset ticket is stored, regardless of expiry
func (u *User) HasResetTicket() bool {
	return u.ResetTokenHash != "" && u.ResetExpiresAt != nil
}

// Sanitized returns a copy with password and reset material removed
func (u *User) Sanitized() *User {
	out := *u
	out.PasswordHash = ""
	out.ResetTokenHash = ""
	out.ResetExpiresAt = nil
	return &out
}

func (u *User) clearResetTicket() {
	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
}

func (u *User) clearLockout() {
	u.FailedAttempts = 0
	u.LockedUntil = nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
