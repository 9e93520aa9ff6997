// Package httpapi exposes an Auth over HTTP for the browser front end.
//
// Routes:
//
//	POST   /auth/signup
//	POST   /auth/login
//	POST   /auth/logout
//	GET    /auth/me
//	POST   /auth/forgot-password
//	POST   /auth/reset-password
//	GET    /users/{id}/data
//	PUT    /users/{id}/data
//	DELETE /users/{id}
//
// Requests carry the session token as "Authorization: Bearer <token>". Browser
// clients may instead rely on the cookie session written by the login handler.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"

	gk "github.com/panyam/grovekeep"
)

// DefaultMaxBodyBytes caps request bodies, including user data documents
const DefaultMaxBodyBytes = 1 << 20

// Name of the cookie session variable holding the session token
const sessionTokenKey = "authToken"

type Server struct {
	Auth    *gk.Auth
	Session *scs.SessionManager
	Logger  *slog.Logger

	MaxBodyBytes int64
}

// NewServer creates a Server whose cookie sessions live as long as auth sessions
func NewServer(auth *gk.Auth, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	session := scs.New()
	session.Lifetime = auth.Config.SessionTTL
	session.Cookie.Name = "grovekeep_session"
	session.Cookie.HttpOnly = true
	session.Cookie.SameSite = http.SameSiteLaxMode

	return &Server{
		Auth:         auth,
		Session:      session,
		Logger:       logger,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Register adds every route to r
func (s *Server) Register(r *mux.Router) {
	r.Use(s.logRequests)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	a.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	a.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	a.Handle("/me", s.RequireUser(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)
	a.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	a.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)

	r.HandleFunc("/users/{id}/data", s.handleGetData).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/data", s.handlePutData).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", s.handleDeleteUser).Methods(http.MethodDelete)
}

// Handler returns the full API wrapped in cookie session loading
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.Register(r)
	return s.Session.LoadAndSave(r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
