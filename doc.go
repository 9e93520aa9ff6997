// Package grovekeep provides the credential and session core of a local
// productivity tracker: registration, login with lockout, single-session
// tokens, password reset and an access gate in front of per-user data.
//
// # Architecture
//
// Everything persists through a Backend, a plain key/value port holding whole
// JSON collections. Four kinds of record exist:
//
//   - users: the credential store, one record per account
//   - sessions: at most one live session per user
//   - security_log: the most recent suspicious events, capped
//   - userdata/<id>: an opaque application record per user
//
// Every mutation loads a collection, changes it in memory and writes it back.
// Auth serialises those cycles with a mutex, so a single Auth is safe for
// concurrent use. Separate processes sharing one Backend are not coordinated
// and must not write at the same time.
//
// # Basic Usage
//
//	import (
//	    gk "github.com/panyam/grovekeep"
//	    "github.com/panyam/grovekeep/stores/fs"
//	)
//
//	backend, _ := fs.NewBackend("/path/to/storage")
//	auth, _ := gk.New(backend, gk.Config{})
//
//	id, err := auth.Register(ctx, gk.RegisterRequest{
//	    Email:    "ada@gmail.com",
//	    Password: "Str0ng!Pass",
//	})
//
//	res, err := auth.Login(ctx, "ada@gmail.com", "Str0ng!Pass")
//	token := res.Session.Token
//
//	if auth.HasAccess(ctx, token, id) {
//	    data, _ := auth.UserData(ctx, token, id)
//	}
//
// # Errors
//
// Failing operations return an *AuthError whose Code is stable. Compare with
// errors.Is against ErrInvalidCredentials, ErrAccountLocked and the other
// sentinels. Login never reveals whether an account exists, and InitiateReset
// succeeds for unknown addresses.
//
// # Backends
//
// Implementations live under stores/: memory, fs (one JSON file per key),
// gorm (any SQL database GORM supports), gae (Cloud Datastore) and redis.
package grovekeep
