package grovekeep

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// LoginResult is returned on a successful login. Session.Token is the only
// copy of the raw token; hand it to the caller and do not log it.
type LoginResult struct {
	User    *User
	Session *Session
}

// Auth wires the credential store, lockout guard, session registry, reset flow,
// access gate and security log over one Backend.
//
// Every operation runs under a single mutex, so one Auth serialises its own
// read-modify-write cycles. Nothing coordinates separate processes sharing a
// Backend: they race on write, and callers must keep to one writer at a time.
type Auth struct {
	Config   Config
	Users    *CredentialStore
	Sessions *SessionRegistry
	Lockout  *LockoutGuard
	Reset    *ResetFlow
	Gate     *AccessGate
	Data     *UserDataStore
	Log      *SecurityLog

	Notifier Notifier
	Recorder Recorder
	Logger   *slog.Logger

	mu        sync.Mutex
	now       func() time.Time
	hasher    Hasher
	dummyOnce sync.Once
	dummyHash string
}

// Option customises an Auth built by New
type Option func(*Auth)

// WithNotifier sets the out-of-band delivery port (defaults to ConsoleNotifier)
func WithNotifier(n Notifier) Option {
	return func(a *Auth) { a.Notifier = n }
}

// WithHasher overrides the hasher chosen by Config.HasherName
func WithHasher(h Hasher) Option {
	return func(a *Auth) { a.hasher = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Auth) { a.Logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(a *Auth) { a.Recorder = r }
}

// WithClock replaces time.Now for every expiry and lockout decision
func WithClock(now func() time.Time) Option {
	return func(a *Auth) { a.now = now }
}

// New builds an Auth over backend
func New(backend Backend, cfg Config, opts ...Option) (*Auth, error) {
	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Auth{Config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.Notifier == nil {
		a.Notifier = &ConsoleNotifier{Logger: a.Logger}
	}
	if a.Recorder == nil {
		a.Recorder = nopRecorder{}
	}
	if a.hasher == nil {
		h, err := NewHasher(cfg.HasherName)
		if err != nil {
			return nil, err
		}
		a.hasher = h
	}

	a.Users = NewCredentialStore(backend, a.hasher, &a.Config, a.Logger)
	a.Sessions = NewSessionRegistry(backend, a.Users, cfg.SessionTTL, a.Logger)
	a.Lockout = NewLockoutGuard(cfg.LockoutThreshold, cfg.LockoutDuration)
	a.Log = NewSecurityLog(backend, cfg.SecurityLogCap, a.Logger)
	a.Reset = &ResetFlow{
		Users:    a.Users,
		Sessions: a.Sessions,
		Notifier: a.Notifier,
		Log:      a.Log,
		TTL:      cfg.ResetTTL,
		Logger:   a.Logger,
	}
	a.Gate = &AccessGate{Sessions: a.Sessions, Log: a.Log}
	a.Data = &UserDataStore{Backend: backend, Gate: a.Gate, Logger: a.Logger}
	if len(cfg.DataKey) > 0 {
		sealer, err := NewXChaChaSealer(cfg.DataKey)
		if err != nil {
			return nil, err
		}
		a.Data.Sealer = sealer
	}

	a.Users.Now = a.now
	a.Sessions.Now = a.now
	a.Log.Now = a.now
	a.Reset.Now = a.now
	return a, nil
}

func (a *Auth) observe(o Outcome) {
	a.Recorder.Observe(o)
}

// Well-formed hashes of a throwaway secret, used when a fresh dummy hash
// cannot be computed. Verifying against them still runs the full algorithm.
const (
	fallbackBcryptHash = "$2a$12$ygX2JwwLB70vpAqxuuyLIuTbYt9p5e/HzhGbgYNDx3kpSntDEe.yu"
	fallbackArgon2Hash = "$argon2id$v=19$m=65536,t=3,p=2$6wOzO91qzaeqKfQc6Qfqew$Huri2CHW4lwjc6xnclrWmXWPpzZYjAHE6BOn0cEmgio"
)

// fakeHash returns a hash that no password matches, so unknown logins cost
// the same hashing work as real ones.
func (a *Auth) fakeHash() string {
	a.dummyOnce.Do(func() {
		if token, err := GenerateSecureToken(); err == nil {
			a.dummyHash, _ = a.hasher.Hash(token)
		}
		if a.dummyHash == "" {
			a.Logger.Warn("could not compute dummy hash, using fallback")
			a.dummyHash = fallbackHashFor(a.hasher)
		}
	})
	return a.dummyHash
}

func fallbackHashFor(h Hasher) string {
	if _, ok := h.(*Argon2Hasher); ok {
		return fallbackArgon2Hash
	}
	return fallbackBcryptHash
}

// Register creates an account and returns its identifier
func (a *Auth) Register(ctx context.Context, req RegisterRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := a.Users.Register(ctx, req)
	if err != nil {
		return "", err
	}
	a.observe(OutcomeRegistered)
	return id, nil
}

// Login authenticates by identifier or email. Unknown accounts and wrong
// passwords both fail with ErrInvalidCredentials.
func (a *Auth) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	user := a.Users.FindByLogin(ctx, login)
	if user == nil {
		a.hasher.Verify(password, a.fakeHash())
		a.Log.Record(ctx, EventLoginUnknownUser, login)
		a.observe(OutcomeLoginFailed)
		return nil, ErrInvalidCredentials
	}

	if err := a.Lockout.Check(user, now); err != nil {
		a.observe(OutcomeLoginLocked)
		return nil, err
	}

	matched := a.hasher.Verify(password, user.PasswordHash)
	locked := false
	updated, err := a.Users.Update(ctx, user.ID, func(u *User) error {
		a.Lockout.Expire(u, now)
		if matched {
			a.Lockout.RecordSuccess(u, now)
		} else {
			locked = a.Lockout.RecordFailure(u, now)
		}
		return nil
	})
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !matched {
		if locked {
			a.onLocked(ctx, updated)
			return nil, accountLockedError(minutesUntil(*updated.LockedUntil, now))
		}
		a.Log.Record(ctx, EventLoginFailed, updated.Email)
		a.observe(OutcomeLoginFailed)
		return nil, ErrInvalidCredentials
	}

	session, err := a.Sessions.Issue(ctx, updated)
	if err != nil {
		return nil, err
	}
	a.observe(OutcomeLoginSucceeded)
	a.Logger.Info("user logged in", "user_id", updated.ID)
	return &LoginResult{User: updated.Sanitized(), Session: session}, nil
}

func (a *Auth) onLocked(ctx context.Context, u *User) {
	a.Log.Record(ctx, EventAccountLocked, u.Email)
	a.observe(OutcomeAccountLocked)
	if err := a.Notifier.SendSecurityAlert(ctx, u.Email, *u.LockedUntil); err != nil {
		a.Logger.Error("error sending security alert", "user_id", u.ID, "error", err)
	}
}

// Logout ends the session holding token. Unknown tokens are a no-op.
func (a *Auth) Logout(ctx context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.Sessions.Revoke(ctx, token); err != nil {
		return err
	}
	a.observe(OutcomeLoggedOut)
	return nil
}

// InitiateReset starts a password reset. It succeeds whether or not email is registered.
func (a *Auth) InitiateReset(ctx context.Context, email string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.observe(OutcomeResetRequested)
	return a.Reset.Initiate(ctx, email)
}

// CompleteReset consumes a reset ticket and sets newPassword
func (a *Auth) CompleteReset(ctx context.Context, email, token, newPassword string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.Reset.Complete(ctx, email, token, newPassword); err != nil {
		a.observe(OutcomeResetRejected)
		return err
	}
	a.observe(OutcomeResetCompleted)
	return nil
}

// HasAccess reports whether token may read or write userID's data
func (a *Auth) HasAccess(ctx context.Context, token, userID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	ok := a.Gate.HasAccess(ctx, token, userID)
	if !ok {
		a.observe(OutcomeAccessDenied)
	}
	return ok
}

// CurrentUser returns the sanitized owner of a live session, or nil
func (a *Auth) CurrentUser(ctx context.Context, token string) *User {
	a.mu.Lock()
	defer a.mu.Unlock()

	user := a.Sessions.Validate(ctx, token)
	if user == nil {
		return nil
	}
	return user.Sanitized()
}

// UserData returns userID's application data record
func (a *Auth) UserData(ctx context.Context, token, userID string) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := a.Data.Get(ctx, token, userID)
	a.observeDenied(err)
	return data, err
}

// SaveUserData replaces userID's application data record
func (a *Auth) SaveUserData(ctx context.Context, token, userID string, doc json.RawMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.Data.Put(ctx, token, userID, doc)
	a.observeDenied(err)
	return err
}

func (a *Auth) observeDenied(err error) {
	if errors.Is(err, ErrUnauthorized) {
		a.observe(OutcomeAccessDenied)
	}
}

// DeleteUser removes userID, its session and its data record. The caller must
// hold a live session for that same user.
func (a *Auth) DeleteUser(ctx context.Context, token, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.Gate.Require(ctx, token, userID); err != nil {
		a.observe(OutcomeAccessDenied)
		return err
	}
	return a.deleteUser(ctx, userID)
}

// AdminDeleteUser removes userID without a session check. It is meant for
// operator tooling that already has direct access to the backend.
func (a *Auth) AdminDeleteUser(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.deleteUser(ctx, userID)
}

func (a *Auth) deleteUser(ctx context.Context, userID string) error {
	found, purgeErr := a.Users.Delete(ctx, userID)
	if !found {
		if purgeErr != nil {
			return purgeErr
		}
		return ErrUserNotFound
	}

	// The record is gone even when its data could not be purged
	revokeErr := a.Sessions.RevokeUser(ctx, userID)
	a.Log.Record(ctx, EventUserDeleted, userID)
	a.observe(OutcomeUserDeleted)
	return errors.Join(purgeErr, revokeErr)
}

// SecurityEvents returns the retained security log, oldest first
func (a *Auth) SecurityEvents(ctx context.Context) []SecurityEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.Log.All(ctx)
}

// PurgeExpiredSessions drops every expired session
func (a *Auth) PurgeExpiredSessions(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.Sessions.PurgeExpired(ctx)
}

// PurgeOrphanedData deletes per-user data records whose user no longer
// exists. The backend must implement Lister.
func (a *Auth) PurgeOrphanedData(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	lister, ok := a.Users.Backend.(Lister)
	if !ok {
		return 0, errors.New("backend cannot list keys")
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return 0, err
	}

	users, err := a.Users.loadForUpdate(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool)
	for _, u := range users {
		known[u.ID] = true
	}

	removed := 0
	for _, key := range keys {
		id, ok := userIDFromDataKey(key)
		if !ok || known[id] {
			continue
		}
		if err := a.Users.Backend.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		a.Logger.Info("purged orphaned user data", "count", removed)
	}
	return removed, nil
}
