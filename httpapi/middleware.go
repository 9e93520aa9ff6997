package httpapi

import (
	"context"
	"net/http"
	"strings"

	gk "github.com/panyam/grovekeep"
)

type ctxKey string

const userCtxKey ctxKey = "user"

// TokenFromRequest returns the bearer token, falling back to the cookie session
func (s *Server) TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if s.Session != nil {
		return s.Session.GetString(r.Context(), sessionTokenKey)
	}
	return ""
}

// RequireUser rejects requests without a live session and otherwise makes the
// sanitized user available through UserFromContext.
func (s *Server) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.TokenFromRequest(r)
		user := s.Auth.CurrentUser(r.Context(), token)
		if user == nil {
			writeError(w, gk.ErrUnauthorized, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the user set by RequireUser, or nil
func UserFromContext(ctx context.Context) *gk.User {
	u, _ := ctx.Value(userCtxKey).(*gk.User)
	return u
}
