package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"somiti/internal/auth"
	"somiti/internal/core"
)

const (
	prefLanguage = "language"
	prefTheme    = "theme"

	sessionHeader = "X-Session-Token"
)

type credentialsRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}

	username, err := s.authn.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	token := s.sessions.Create(username)
	writeJSON(w, http.StatusOK, map[string]string{
		"username": username,
		"token":    token,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}

	if err := s.authn.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	// Registering logs the new owner straight in, first-run setup included.
	token := s.sessions.Create(req.Username)
	writeJSON(w, http.StatusCreated, map[string]string{
		"username": req.Username,
		"token":    token,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}

	if err := s.authn.Reset(r.Context(), req.Username, req.Password, req.ConfirmPassword); err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if token := strings.TrimSpace(r.Header.Get(sessionHeader)); token != "" {
		s.sessions.Destroy(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	registered, err := s.authn.Registered(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to check credential record", "error", err)
		writeError(w, http.StatusBadGateway, "storage_failed", "credential check failed")
		return
	}

	token := strings.TrimSpace(r.Header.Get(sessionHeader))
	username, authenticated := s.sessions.Resolve(token)
	writeJSON(w, http.StatusOK, map[string]any{
		"registered":    registered,
		"authenticated": authenticated,
		"username":      username,
	})
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		lang, err := s.prefs.GetPreference(r.Context(), prefLanguage, string(s.defaultLang))
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to read language preference", "error", err)
			lang = string(s.defaultLang)
		}
		theme, err := s.prefs.GetPreference(r.Context(), prefTheme, "light")
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to read theme preference", "error", err)
			theme = "light"
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"language": string(core.Language(lang).Normalize()),
			"theme":    theme,
		})
	case http.MethodPut:
		var req struct {
			Language string `json:"language"`
			Theme    string `json:"theme"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
			return
		}
		if req.Language != "" {
			lang := core.Language(req.Language).Normalize()
			if err := s.prefs.SetPreference(r.Context(), prefLanguage, string(lang)); err != nil {
				slog.ErrorContext(r.Context(), "Failed to save language preference", "error", err)
				writeError(w, http.StatusBadGateway, "storage_failed", "could not save preference")
				return
			}
		}
		if req.Theme != "" {
			theme := req.Theme
			if theme != "dark" {
				theme = "light"
			}
			if err := s.prefs.SetPreference(r.Context(), prefTheme, theme); err != nil {
				slog.ErrorContext(r.Context(), "Failed to save theme preference", "error", err)
				writeError(w, http.StatusBadGateway, "storage_failed", "could not save preference")
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

// writeAuthError maps the auth sentinels onto status codes. The client shows
// these messages directly, so they stay in the words the login screen uses.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields", err.Error())
	case errors.Is(err, auth.ErrPinMismatch):
		writeError(w, http.StatusBadRequest, "pin_mismatch", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	default:
		slog.ErrorContext(r.Context(), "Auth operation failed", "error", err)
		writeError(w, http.StatusBadGateway, "storage_failed", "credential operation failed")
	}
}
