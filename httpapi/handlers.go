package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	gk "github.com/panyam/grovekeep"
)

const forgotPasswordMessage = "If that email is registered, a reset link has been sent"

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if authErr := s.decodeRequest(w, r, &req); authErr != nil {
		writeError(w, authErr, 0)
		return
	}

	id, err := s.Auth.Register(r.Context(), gk.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		ID:          req.ID,
	})
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if authErr := s.decodeRequest(w, r, &req); authErr != nil {
		writeError(w, authErr, 0)
		return
	}

	res, err := s.Auth.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, err, 0)
		return
	}

	// New login, new cookie session id
	if err := s.Session.RenewToken(r.Context()); err != nil {
		writeError(w, err, 0)
		return
	}
	s.Session.Put(r.Context(), sessionTokenKey, res.Session.Token)

	writeJSON(w, http.StatusOK, map[string]any{
		"user":       res.User.Profile(),
		"token":      res.Session.Token,
		"expires_at": res.Session.ExpiresAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := s.TokenFromRequest(r)
	if err := s.Auth.Logout(r.Context(), token); err != nil {
		writeError(w, err, 0)
		return
	}
	if err := s.Session.Destroy(r.Context()); err != nil {
		s.Logger.Warn("failed to destroy cookie session", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromContext(r.Context()).Profile())
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if authErr := s.decodeRequest(w, r, &req); authErr != nil {
		writeError(w, authErr, 0)
		return
	}

	if err := s.Auth.InitiateReset(r.Context(), req.Email); err != nil {
		s.Logger.Error("error initiating reset", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": forgotPasswordMessage,
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if authErr := s.decodeRequest(w, r, &req); authErr != nil {
		writeError(w, authErr, 0)
		return
	}

	if err := s.Auth.CompleteReset(r.Context(), req.Email, req.Token, req.Password); err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	token := s.TokenFromRequest(r)
	data, err := s.Auth.UserData(r.Context(), token, mux.Vars(r)["id"])
	if err != nil {
		s.writeAccessError(w, r, token, err)
		return
	}
	if data == nil {
		data = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handlePutData(w http.ResponseWriter, r *http.Request) {
	token := s.TokenFromRequest(r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, gk.NewAuthError(gk.ErrCodeInvalidData, "User data is too large", "data"), http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, gk.NewAuthError(gk.ErrCodeInvalidData, "Invalid request body", "data"), 0)
		return
	}

	if err := s.Auth.SaveUserData(r.Context(), token, mux.Vars(r)["id"], body); err != nil {
		s.writeAccessError(w, r, token, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	token := s.TokenFromRequest(r)
	if err := s.Auth.DeleteUser(r.Context(), token, mux.Vars(r)["id"]); err != nil {
		s.writeAccessError(w, r, token, err)
		return
	}
	if err := s.Session.Destroy(r.Context()); err != nil {
		s.Logger.Warn("failed to destroy cookie session", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeAccessError answers 401 when the caller has no live session at all and
// 403 when the session belongs to someone else.
func (s *Server) writeAccessError(w http.ResponseWriter, r *http.Request, token string, err error) {
	if errors.Is(err, gk.ErrUnauthorized) && s.Auth.CurrentUser(r.Context(), token) == nil {
		writeError(w, err, http.StatusUnauthorized)
		return
	}
	writeError(w, err, 0)
}
