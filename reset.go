package grovekeep

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ResetFlow issues single-use, time-bounded reset tickets and consumes them
type ResetFlow struct {
	Users    *CredentialStore
	Sessions *SessionRegistry
	Notifier Notifier
	Log      *SecurityLog
	TTL      time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

func (f *ResetFlow) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Initiate stores a reset ticket on the account registered under email and hands
// the token to the Notifier. It returns nil whether or not such an account exists.
func (f *ResetFlow) Initiate(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user := f.Users.FindByEmail(ctx, email)
	if user == nil {
		f.Log.Record(ctx, EventResetUnknownEmail, email)
		return nil
	}

	token, err := GenerateSecureToken()
	if err != nil {
		f.Logger.Error("error creating reset token", "user_id", user.ID, "error", err)
		return nil
	}

	expires := f.now().Add(f.TTL)
	_, err = f.Users.Update(ctx, user.ID, func(u *User) error {
		u.ResetTokenHash = HashToken(token)
		u.ResetExpiresAt = timePtr(expires)
		return nil
	})
	if err != nil {
		f.Logger.Error("error storing reset token", "user_id", user.ID, "error", err)
		return nil
	}

	if err := f.Notifier.SendPasswordReset(ctx, email, token); err != nil {
		f.Logger.Error("error sending reset email", "user_id", user.ID, "error", err)
	}
	return nil
}

// Complete consumes a reset ticket and sets a new password. A successful reset
// also clears any lockout and ends the user's live session.
func (f *ResetFlow) Complete(ctx context.Context, email, token, newPassword string) error {
	if check := f.Users.Policy.Validate(newPassword); !check.Valid {
		return weakPasswordError(check.Violations)
	}

	email = NormalizeEmail(email)
	user := f.Users.FindByEmail(ctx, email)
	if user == nil || !f.ticketValid(user, token) {
		f.Log.Record(ctx, EventResetInvalidToken, email)
		return ErrInvalidOrExpiredToken
	}

	hash, err := f.Users.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	_, err = f.Users.Update(ctx, user.ID, func(u *User) error {
		if !f.ticketValid(u, token) {
			return ErrInvalidOrExpiredToken
		}
		u.PasswordHash = hash
		u.clearResetTicket()
		u.clearLockout()
		return nil
	})
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return err
	}

	if err := f.Sessions.RevokeUser(ctx, user.ID); err != nil {
		f.Logger.Warn("failed to revoke session after reset", "user_id", user.ID, "error", err)
	}
	f.Logger.Info("password reset", "user_id", user.ID)
	return nil
}

func (f *ResetFlow) ticketValid(u *User, token string) bool {
	if !u.HasResetTicket() || f.now().After(*u.ResetExpiresAt) {
		return false
	}
	return tokenMatches(token, u.ResetTokenHash)
}
