package grovekeep_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	gk "github.com/panyam/grovekeep"
	"github.com/panyam/grovekeep/stores/memory"
)

func TestSecurityLogCap(t *testing.T) {
	ctx := context.Background()
	log := gk.NewSecurityLog(memory.NewBackend(), 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	clock := newFakeClock()
	log.Now = clock.Now

	for i := range 105 {
		log.Record(ctx, gk.EventLoginFailed, fmt.Sprintf("user%d", i))
		clock.Advance(time.Second)
	}

	events := log.All(ctx)
	if len(events) != gk.DefaultSecurityLogCap {
		t.Fatalf("Expected %d events, got %d", gk.DefaultSecurityLogCap, len(events))
	}
	if events[0].Identifier != "user5" {
		t.Errorf("Expected the five oldest to be evicted, first is %q", events[0].Identifier)
	}
	if events[99].Identifier != "user104" {
		t.Errorf("Expected newest last, got %q", events[99].Identifier)
	}
	for i := 1; i < len(events); i++ {
		if !events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatalf("Events out of order at %d", i)
		}
	}
}

func TestSecurityLogConfiguredCap(t *testing.T) {
	env := setupTestAuth(t, gk.Config{SecurityLogCap: 3})
	ctx := context.Background()
	for _, who := range []string{"a@gmail.com", "b@gmail.com", "c@gmail.com", "d@gmail.com"} {
		env.auth.Login(ctx, who, testPassword)
	}

	events := env.auth.SecurityEvents(ctx)
	if len(events) != 3 || events[0].Identifier != "b@gmail.com" {
		t.Errorf("Expected the last three unknown logins, got %+v", events)
	}
}
