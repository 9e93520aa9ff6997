package grovekeep

import (
	"context"
	"log/slog"
	"time"
)

// SecurityEventKind names a suspicious event
type SecurityEventKind string

const (
	EventAccountLocked      SecurityEventKind = "account_locked"
	EventLoginUnknownUser   SecurityEventKind = "login_unknown_user"
	EventLoginFailed        SecurityEventKind = "login_failed"
	EventResetUnknownEmail  SecurityEventKind = "reset_unknown_email"
	EventResetInvalidToken  SecurityEventKind = "reset_invalid_token"
	EventUnauthorizedAccess SecurityEventKind = "unauthorized_access"
	EventUserDeleted        SecurityEventKind = "user_deleted"
)

// SecurityEvent is one entry of the security log
type SecurityEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	Kind       SecurityEventKind `json:"kind"`
	Identifier string            `json:"identifier"`
}

// SecurityLog is an append-only log capped to the most recent Cap entries
type SecurityLog struct {
	Backend Backend
	Cap     int
	Now     func() time.Time
	Logger  *slog.Logger
}

func NewSecurityLog(backend Backend, capacity int, logger *slog.Logger) *SecurityLog {
	if capacity <= 0 {
		capacity = DefaultSecurityLogCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityLog{Backend: backend, Cap: capacity, Now: time.Now, Logger: logger}
}

// Record appends an event and evicts from the front until at most Cap remain.
// Failures are logged; recording never fails the calling operation.
func (l *SecurityLog) Record(ctx context.Context, kind SecurityEventKind, identifier string) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}

	l.Logger.Warn("security event", "kind", kind, "identifier", identifier)

	events, err := loadCollectionForUpdate[SecurityEvent](ctx, l.Backend, CollectionSecurityLog, l.Logger)
	if err != nil {
		l.Logger.Error("failed to persist security event", "kind", kind, "error", err)
		return
	}
	events = append(events, SecurityEvent{Timestamp: now, Kind: kind, Identifier: identifier})
	if over := len(events) - l.Cap; over > 0 {
		events = events[over:]
	}

	if err := saveCollection(ctx, l.Backend, CollectionSecurityLog, events); err != nil {
		l.Logger.Error("failed to persist security event", "kind", kind, "error", err)
	}
}

// All returns the retained events, oldest first
func (l *SecurityLog) All(ctx context.Context) []SecurityEvent {
	return loadCollection[SecurityEvent](ctx, l.Backend, CollectionSecurityLog, l.Logger)
}
