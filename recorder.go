package grovekeep

// Outcome names an auth result worth counting
type Outcome string

const (
	OutcomeRegistered     Outcome = "registered"
	OutcomeLoginSucceeded Outcome = "login_succeeded"
	OutcomeLoginFailed    Outcome = "login_failed"
	OutcomeLoginLocked    Outcome = "login_locked"
	OutcomeAccountLocked  Outcome = "account_locked"
	OutcomeLoggedOut      Outcome = "logged_out"
	OutcomeResetRequested Outcome = "reset_requested"
	OutcomeResetCompleted Outcome = "reset_completed"
	OutcomeResetRejected  Outcome = "reset_rejected"
	OutcomeAccessDenied   Outcome = "access_denied"
	OutcomeUserDeleted    Outcome = "user_deleted"
)

// Recorder receives one call per counted outcome. See the metrics package for
// a Prometheus implementation.
type Recorder interface {
	Observe(outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) Observe(Outcome) {}
