package grovekeep

import (
	"context"
	"log/slog"
	"time"
)

// Session proves a time-bounded login. Only TokenHash is persisted; Token is
// populated on the value returned from Issue and nowhere else.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	TokenHash string    `json:"token_hash"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session is past its expiry at now
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionRegistry issues and validates session tokens, one live session per user
type SessionRegistry struct {
	Backend Backend
	Users   *CredentialStore
	TTL     time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

func NewSessionRegistry(backend Backend, users *CredentialStore, ttl time.Duration, logger *slog.Logger) *SessionRegistry {
	if ttl <= 0 {
		ttl = TokenExpirySession
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{Backend: backend, Users: users, TTL: ttl, Now: time.Now, Logger: logger}
}

func (r *SessionRegistry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *SessionRegistry) load(ctx context.Context) []*Session {
	return loadCollection[*Session](ctx, r.Backend, CollectionSessions, r.Logger)
}

func (r *SessionRegistry) save(ctx context.Context, sessions []*Session) error {
	return saveCollection(ctx, r.Backend, CollectionSessions, sessions)
}

// Issue creates a fresh session for user, replacing any session the user already had
func (r *SessionRegistry) Issue(ctx context.Context, user *User) (*Session, error) {
	token, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}

	now := r.now()
	session := &Session{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		TokenHash: HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(r.TTL),
	}

	existing, err := loadCollectionForUpdate[*Session](ctx, r.Backend, CollectionSessions, r.Logger)
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, 0, len(existing)+1)
	for _, s := range existing {
		if s.UserID != user.ID {
			sessions = append(sessions, s)
		}
	}
	sessions = append(sessions, session)

	if err := r.save(ctx, sessions); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate resolves token to its owning user. Unknown tokens yield nil; an
// expired session is deleted on the way out and also yields nil.
func (r *SessionRegistry) Validate(ctx context.Context, token string) *User {
	if token == "" {
		return nil
	}

	sessions := r.load(ctx)
	for i, s := range sessions {
		if !tokenMatches(token, s.TokenHash) {
			continue
		}
		if s.IsExpired(r.now()) {
			sessions = append(sessions[:i], sessions[i+1:]...)
			if err := r.save(ctx, sessions); err != nil {
				r.Logger.Warn("failed to purge expired session", "user_id", s.UserID, "error", err)
			}
			return nil
		}
		return r.Users.FindByID(ctx, s.UserID)
	}
	return nil
}

// Revoke deletes the session holding token. Unknown tokens are a no-op.
func (r *SessionRegistry) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.removeWhere(ctx, func(s *Session) bool { return tokenMatches(token, s.TokenHash) })
}

// RevokeUser deletes any session owned by userID
func (r *SessionRegistry) RevokeUser(ctx context.Context, userID string) error {
	return r.removeWhere(ctx, func(s *Session) bool { return s.UserID == userID })
}

// PurgeExpired deletes every expired session and returns how many were removed
func (r *SessionRegistry) PurgeExpired(ctx context.Context) (int, error) {
	now := r.now()
	removed := 0
	err := r.removeWhere(ctx, func(s *Session) bool {
		if s.IsExpired(now) {
			removed++
			return true
		}
		return false
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *SessionRegistry) removeWhere(ctx context.Context, match func(s *Session) bool) error {
	sessions, err := loadCollectionForUpdate[*Session](ctx, r.Backend, CollectionSessions, r.Logger)
	if err != nil {
		return err
	}
	kept := sessions[:0]
	for _, s := range sessions {
		if !match(s) {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}
	return r.save(ctx, kept)
}
