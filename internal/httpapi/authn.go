package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"voltmesh.io/internal/auth"
)

const (
	authHeader   = "Authorization"
	apiKeyHeader = "X-API-Key"
	bearer       = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if rawKey := strings.TrimSpace(r.Header.Get(apiKeyHeader)); rawKey != "" {
			principal, err := a.auth.AuthenticateAPIKey(r.Context(), rawKey)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthenticated) {
					respondAuthError(w, r, http.StatusUnauthorized, "invalid api key")
					return
				}
				respondAuthError(w, r, http.StatusInternalServerError, "authentication error")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			respondAuthError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.auth.AuthenticateAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				respondAuthError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				respondAuthError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureScopes writes a response and returns false unless the caller holds at
// least one of the given scopes.
func (a *API) ensureScopes(w http.ResponseWriter, r *http.Request, scopes ...auth.Scope) bool {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondAuthError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	if !principal.HasAnyScope(scopes...) {
		respondAuthError(w, r, http.StatusForbidden, "insufficient scope")
		return false
	}
	return true
}

func respondAuthError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="voltmesh"`)
	}
	writeError(w, r, code, msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
