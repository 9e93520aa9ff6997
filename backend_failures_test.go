package grovekeep_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	gk "github.com/panyam/grovekeep"
)

func TestRegisterKeepsUsersWhenLoadFails(t *testing.T) {
	env := setupFlakyTestAuth(t, gk.Config{})
	ctx := context.Background()
	env.register(t, "ada", "ada@gmail.com")
	env.register(t, "bob", "bob@gmail.com")

	env.flaky.failNextLoad(gk.CollectionUsers)
	_, err := env.auth.Register(ctx, gk.RegisterRequest{ID: "cyd", Email: "cyd@gmail.com", Password: testPassword})
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("Expected the load failure to surface, got %v", err)
	}
	if n := len(env.auth.Users.ListAll(ctx)); n != 2 {
		t.Fatalf("Expected both existing users to survive, have %d", n)
	}

	env.register(t, "cyd", "cyd@gmail.com")
	if n := len(env.auth.Users.ListAll(ctx)); n != 3 {
		t.Errorf("Expected 3 users after retry, have %d", n)
	}
}

func TestLoginKeepsSessionsWhenLoadFails(t *testing.T) {
	env := setupFlakyTestAuth(t, gk.Config{})
	ctx := context.Background()
	env.register(t, "ada", "ada@gmail.com")
	env.register(t, "bob", "bob@gmail.com")
	bobToken := env.login(t, "bob")

	env.flaky.failNextLoad(gk.CollectionSessions)
	if _, err := env.auth.Login(ctx, "ada", testPassword); !errors.Is(err, errBackendDown) {
		t.Fatalf("Expected login to fail with the backend error, got %v", err)
	}
	if env.auth.CurrentUser(ctx, bobToken) == nil {
		t.Error("Expected bob's session to survive a failed session write")
	}
}

func TestLogoutKeepsSessionsWhenLoadFails(t *testing.T) {
	env := setupFlakyTestAuth(t, gk.Config{})
	ctx := context.Background()
	env.register(t, "ada", "ada@gmail.com")
	token := env.login(t, "ada")

	env.flaky.failNextLoad(gk.CollectionSessions)
	if err := env.auth.Logout(ctx, token); !errors.Is(err, errBackendDown) {
		t.Fatalf("Expected logout to report the backend error, got %v", err)
	}
	if err := env.auth.Logout(ctx, token); err != nil {
		t.Fatalf("Logout retry failed: %v", err)
	}
	if env.auth.CurrentUser(ctx, token) != nil {
		t.Error("Expected session to end after retry")
	}
}

func TestSecurityLogKeepsEventsWhenLoadFails(t *testing.T) {
	env := setupFlakyTestAuth(t, gk.Config{})
	ctx := context.Background()
	env.auth.Log.Record(ctx, gk.EventLoginFailed, "first")
	env.auth.Log.Record(ctx, gk.EventLoginFailed, "second")

	env.flaky.failNextLoad(gk.CollectionSecurityLog)
	env.auth.Log.Record(ctx, gk.EventLoginFailed, "dropped")

	env.auth.Log.Record(ctx, gk.EventLoginFailed, "third")
	events := env.auth.SecurityEvents(ctx)
	if len(events) != 3 || events[0].Identifier != "first" || events[2].Identifier != "third" {
		t.Errorf("Expected first, second and third to be kept, got %+v", events)
	}
}

func TestPurgeOrphanedDataAbortsWhenUsersUnreadable(t *testing.T) {
	env := setupFlakyTestAuth(t, gk.Config{})
	ctx := context.Background()
	env.register(t, "ada", "ada@gmail.com")
	token := env.login(t, "ada")
	if err := env.auth.SaveUserData(ctx, token, "ada", json.RawMessage(`{"timer":3}`)); err != nil {
		t.Fatal(err)
	}

	env.flaky.failNextLoad(gk.CollectionUsers)
	if _, err := env.auth.PurgeOrphanedData(ctx); !errors.Is(err, errBackendDown) {
		t.Fatalf("Expected purge to abort, got %v", err)
	}
	if _, err := env.backend.Load(ctx, gk.UserDataKey("ada")); err != nil {
		t.Errorf("Expected ada's data to be untouched, got %v", err)
	}
}

func TestDeleteUserFinishesWhenDataPurgeFails(t *testing.T) {
	env := setupFlakyTestAuth(t, gk.Config{})
	ctx := context.Background()
	env.register(t, "ada", "ada@gmail.com")
	token := env.login(t, "ada")
	if err := env.auth.SaveUserData(ctx, token, "ada", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}

	env.flaky.failDelete(gk.UserDataKey("ada"))
	if err := env.auth.DeleteUser(ctx, token, "ada"); !errors.Is(err, errBackendDown) {
		t.Fatalf("Expected the purge error, got %v", err)
	}

	if env.auth.Users.FindByID(ctx, "ada") != nil {
		t.Error("Expected the user record to be gone")
	}
	raw, err := env.backend.Load(ctx, gk.CollectionSessions)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "[]" {
		t.Errorf("Expected the session to be revoked, sessions = %s", raw)
	}
	if len(env.events(gk.EventUserDeleted)) != 1 {
		t.Error("Expected a user deleted event")
	}
	if env.outcomes.count(gk.OutcomeUserDeleted) != 1 {
		t.Error("Expected the deletion to be observed")
	}
}

func TestLoadFailureOnReadPathsDegradesToEmpty(t *testing.T) {
	env := setupFlakyTestAuth(t, gk.Config{})
	ctx := context.Background()
	env.register(t, "ada", "ada@gmail.com")

	env.flaky.failNextLoad(gk.CollectionUsers)
	if u := env.auth.Users.FindByID(ctx, "ada"); u != nil {
		t.Error("Expected an unreadable collection to read as empty")
	}
	if u := env.auth.Users.FindByID(ctx, "ada"); u == nil {
		t.Error("Expected ada once the backend recovers")
	}
}
