package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"voltmesh.io/internal/audit"
	"voltmesh.io/internal/auth"
	"voltmesh.io/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, principal, err := a.auth.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		// One message for every failure mode so callers cannot probe which
		// accounts exist.
		if errors.Is(err, auth.ErrUnauthenticated) {
			respondAuthError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	obs.TokenIssued("access")
	obs.TokenIssued("refresh")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"principal_id":       principal.ID,
		"access_expires_at":  pair.AccessExpiresAt.Format(time.RFC3339),
		"refresh_expires_at": pair.RefreshExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	access, expiresAt, principal, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			respondAuthError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "refresh failed")
		return
	}

	obs.TokenIssued("access")
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"principal_id":      principal.ID,
		"access_expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
	})
}
