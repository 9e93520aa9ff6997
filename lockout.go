package grovekeep

import (
	"math"
	"time"
)

// LockoutGuard is the per-user lockout state machine. State lives on the User
// record: LockedUntil == nil (or in the past) is Unlocked, otherwise Locked(until).
type LockoutGuard struct {
	Threshold int
	Duration  time.Duration
}

func NewLockoutGuard(threshold int, duration time.Duration) *LockoutGuard {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	return &LockoutGuard{Threshold: threshold, Duration: duration}
}

// Check rejects an attempt while the lockout window is open. It does not
// touch the failure counter.
func (g *LockoutGuard) Check(u *User, now time.Time) *AuthError {
	if !u.IsLocked(now) {
		return nil
	}
	return accountLockedError(minutesUntil(*u.LockedUntil, now))
}

// Expire clears a lock whose window has elapsed, giving the user a fresh set
// of attempts. It reports whether the record changed.
func (g *LockoutGuard) Expire(u *User, now time.Time) bool {
	if u.LockedUntil == nil || u.IsLocked(now) {
		return false
	}
	u.clearLockout()
	return true
}

// RecordFailure counts a failed attempt and reports whether it locked the account
func (g *LockoutGuard) RecordFailure(u *User, now time.Time) bool {
	u.FailedAttempts++
	if u.FailedAttempts < g.Threshold {
		return false
	}
	u.LockedUntil = timePtr(now.Add(g.Duration))
	return true
}

// RecordSuccess returns the user to Unlocked with a zero counter
func (g *LockoutGuard) RecordSuccess(u *User, now time.Time) {
	u.clearLockout()
	u.LastLoginAt = timePtr(now)
}

func minutesUntil(until, now time.Time) int {
	m := int(math.Ceil(until.Sub(now).Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}
