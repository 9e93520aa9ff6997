package grovekeep_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	gk "github.com/panyam/grovekeep"
	"github.com/panyam/grovekeep/stores/memory"
)

const testPassword = "Str0ng!Pass"

// fakeClock is a settable time source shared by every component of an Auth
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureNotifier keeps the last message of each kind
type captureNotifier struct {
	mu         sync.Mutex
	resetTo    string
	resetToken string
	resetCount int
	alertTo    string
	alertUntil time.Time
	alertCount int
}

func (n *captureNotifier) SendSecurityAlert(_ context.Context, to string, lockedUntil time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alertTo, n.alertUntil = to, lockedUntil
	n.alertCount++
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, to string, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetTo, n.resetToken = to, token
	n.resetCount++
	return nil
}

// outcomeLog records every observed outcome in order
type outcomeLog struct {
	mu       sync.Mutex
	outcomes []gk.Outcome
}

func (o *outcomeLog) Observe(outcome gk.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *outcomeLog) count(outcome gk.Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, got := range o.outcomes {
		if got == outcome {
			n++
		}
	}
	return n
}

var errBackendDown = errors.New("backend unavailable")

// flakyBackend fails scheduled loads and deletes, then behaves like memory
type flakyBackend struct {
	*memory.Backend

	mu          sync.Mutex
	failLoads   map[string]int
	failDeletes map[string]bool
}

func (f *flakyBackend) failNextLoad(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLoads[key]++
}

func (f *flakyBackend) failDelete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDeletes[key] = true
}

func (f *flakyBackend) Load(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	if f.failLoads[key] > 0 {
		f.failLoads[key]--
		f.mu.Unlock()
		return nil, errBackendDown
	}
	f.mu.Unlock()
	return f.Backend.Load(ctx, key)
}

func (f *flakyBackend) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failDeletes[key]
	f.mu.Unlock()
	if fail {
		return errBackendDown
	}
	return f.Backend.Delete(ctx, key)
}

type testEnv struct {
	auth     *gk.Auth
	backend  *memory.Backend
	clock    *fakeClock
	notifier *captureNotifier
	outcomes *outcomeLog
	flaky    *flakyBackend
}

func setupTestAuth(t *testing.T, cfg gk.Config) *testEnv {
	t.Helper()
	env := &testEnv{backend: memory.NewBackend()}
	env.build(t, cfg, env.backend)
	return env
}

// setupFlakyTestAuth is setupTestAuth over a backend whose failures tests can schedule
func setupFlakyTestAuth(t *testing.T, cfg gk.Config) *testEnv {
	t.Helper()
	env := &testEnv{backend: memory.NewBackend()}
	env.flaky = &flakyBackend{Backend: env.backend, failLoads: map[string]int{}, failDeletes: map[string]bool{}}
	env.build(t, cfg, env.flaky)
	return env
}

func (e *testEnv) build(t *testing.T, cfg gk.Config, backend gk.Backend) {
	t.Helper()
	e.clock = newFakeClock()
	e.notifier = &captureNotifier{}
	e.outcomes = &outcomeLog{}
	auth, err := gk.New(backend, cfg,
		gk.WithHasher(&gk.BcryptHasher{Cost: bcrypt.MinCost}),
		gk.WithNotifier(e.notifier),
		gk.WithRecorder(e.outcomes),
		gk.WithClock(e.clock.Now),
		gk.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("Failed to create auth: %v", err)
	}
	e.auth = auth
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e *testEnv) register(t *testing.T, id, email string) string {
	t.Helper()
	got, err := e.auth.Register(context.Background(), gk.RegisterRequest{ID: id, Email: email, Password: testPassword})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return got
}

func (e *testEnv) login(t *testing.T, login string) string {
	t.Helper()
	res, err := e.auth.Login(context.Background(), login, testPassword)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", login, err)
	}
	return res.Session.Token
}

func (e *testEnv) events(kind gk.SecurityEventKind) []gk.SecurityEvent {
	var out []gk.SecurityEvent
	for _, ev := range e.auth.SecurityEvents(context.Background()) {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
