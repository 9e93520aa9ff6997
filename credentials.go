package grovekeep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrUserNotFound is returned when an operation names an identifier with no account
var ErrUserNotFound = errors.New("user not found")

// RegisterRequest carries the caller supplied registration fields.
// ID is optional; an empty ID gets a generated UUID.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	ID          string
}

// CredentialStore holds every registered user as one collection.
// All mutation loads the whole collection, changes it in memory and writes it back.
type CredentialStore struct {
	Backend        Backend
	Hasher         Hasher
	Policy         PasswordPolicy
	AllowedDomains []string
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewCredentialStore creates a store over backend using the policy and domains from cfg
func NewCredentialStore(backend Backend, hasher Hasher, cfg *Config, logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{
		Backend:        backend,
		Hasher:         hasher,
		Policy:         cfg.PasswordPolicy,
		AllowedDomains: cfg.emailDomains(),
		Now:            time.Now,
		Logger:         logger,
	}
}

func (s *CredentialStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ListAll returns every user record. Storage failures yield an empty list.
func (s *CredentialStore) ListAll(ctx context.Context) []*User {
	return loadCollection[*User](ctx, s.Backend, CollectionUsers, s.Logger)
}

func (s *CredentialStore) loadForUpdate(ctx context.Context) ([]*User, error) {
	return loadCollectionForUpdate[*User](ctx, s.Backend, CollectionUsers, s.Logger)
}

// ReplaceAll overwrites the whole user collection
func (s *CredentialStore) ReplaceAll(ctx context.Context, users []*User) error {
	return saveCollection(ctx, s.Backend, CollectionUsers, users)
}

// FindByID returns the user with the given identifier or nil
func (s *CredentialStore) FindByID(ctx context.Context, id string) *User {
	if id == "" {
		return nil
	}
	for _, u := range s.ListAll(ctx) {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// FindByEmail returns the user registered under email (case-insensitive) or nil
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) *User {
	email = NormalizeEmail(email)
	if email == "" {
		return nil
	}
	for _, u := range s.ListAll(ctx) {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// FindByLogin resolves a login name that is either an email or an identifier
func (s *CredentialStore) FindByLogin(ctx context.Context, login string) *User {
	login = strings.TrimSpace(login)
	if looksLikeEmail(login) {
		if u := s.FindByEmail(ctx, login); u != nil {
			return u
		}
	}
	return s.FindByID(ctx, login)
}

// Update applies fn to the user with the given id and persists the collection.
// If fn returns an error nothing is written and the error is returned as is.
func (s *CredentialStore) Update(ctx context.Context, id string, fn func(u *User) error) (*User, error) {
	users, err := s.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID != id {
			continue
		}
		if err := fn(u); err != nil {
			return u, err
		}
		if err := s.ReplaceAll(ctx, users); err != nil {
			return nil, err
		}
		return u, nil
	}
	return nil, ErrUserNotFound
}

// Delete removes the user record and purges its per-user data record.
// It reports whether a user was removed.
func (s *CredentialStore) Delete(ctx context.Context, id string) (bool, error) {
	users, err := s.loadForUpdate(ctx)
	if err != nil {
		return false, err
	}
	kept := users[:0]
	found := false
	for _, u := range users {
		if u.ID == id {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return false, nil
	}
	if err := s.ReplaceAll(ctx, kept); err != nil {
		return false, err
	}
	if err := s.Backend.Delete(ctx, UserDataKey(id)); err != nil {
		return true, fmt.Errorf("failed to purge user data: %w", err)
	}
	return true, nil
}

// Register validates and stores a new user, returning its identifier
func (s *CredentialStore) Register(ctx context.Context, req RegisterRequest) (string, error) {
	email := NormalizeEmail(req.Email)
	if !EmailAllowed(email, s.AllowedDomains) {
		return "", ErrInvalidEmail
	}

	if check := s.Policy.Validate(req.Password); !check.Valid {
		return "", weakPasswordError(check.Violations)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = generateUserId()
	} else if !ValidIdentifier(id) {
		return "", ErrInvalidIdentifier
	}

	users, err := s.loadForUpdate(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	for _, u := range users {
		if u.Email == email {
			return "", ErrDuplicateEmail
		}
		if u.ID == id {
			return "", ErrDuplicateIdentifier
		}
	}

	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return "", err
	}

	displayName := sanitizeText(req.DisplayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	user := &User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    s.now(),
		Verified:     true,
	}
	if err := s.ReplaceAll(ctx, append(users, user)); err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	s.Logger.Info("registered user", "user_id", id)
	return id, nil
}
