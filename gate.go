package grovekeep

import (
	"context"
)

// AccessGate is the single authorization check in front of per-user data:
// a caller may touch a user's data only through a live session owned by that user.
type AccessGate struct {
	Sessions *SessionRegistry
	Log      *SecurityLog
}

// HasAccess reports whether token belongs to a live session owned by targetID
func (g *AccessGate) HasAccess(ctx context.Context, token, targetID string) bool {
	user := g.Sessions.Validate(ctx, token)
	return user != nil && targetID != "" && user.ID == targetID
}

// Require is HasAccess for callers that must abort: a denial is recorded and
// surfaces as ErrUnauthorized.
func (g *AccessGate) Require(ctx context.Context, token, targetID string) error {
	if g.HasAccess(ctx, token, targetID) {
		return nil
	}
	if g.Log != nil {
		g.Log.Record(ctx, EventUnauthorizedAccess, targetID)
	}
	return ErrUnauthorized
}
