package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"voltmesh.io/internal/auth"
	"voltmesh.io/internal/obs"
)

const serviceName = "voltmesh-api"

// ReadyProbe reports readiness, pinging the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// AuthService is the credential and token surface the HTTP layer needs.
type AuthService interface {
	LoginWithPassword(ctx context.Context, email, password string) (auth.TokenPair, auth.Principal, error)
	AuthenticateAPIKey(ctx context.Context, rawKey string) (auth.Principal, error)
	Refresh(ctx context.Context, refreshToken string) (string, time.Time, auth.Principal, error)
	AuthenticateAccessToken(token string) (auth.Principal, error)
	ResolveScopes(ctx context.Context, principalID string) ([]auth.Scope, error)
}

// Authorizer answers live per-resource access questions for users.
type Authorizer interface {
	CanReadOrganization(ctx context.Context, userID, organizationID string) (bool, error)
	CanUpdateOrganization(ctx context.Context, userID, organizationID string) (bool, error)
	CanCreateLocation(ctx context.Context, userID, organizationID string) (bool, error)
	CanReadLocation(ctx context.Context, userID string, location auth.Location) (bool, error)
	CanUpdateLocation(ctx context.Context, userID string, location auth.Location) (bool, error)
}

// Reconciler converges stored grants and scopes toward a requested set.
type Reconciler interface {
	SetDirectScopes(ctx context.Context, principalID string, wanted []auth.Scope) ([]auth.Scope, error)
	SetOrganizationGrants(ctx context.Context, userID, organizationID string, wanted []auth.OrganizationGrantKind) ([]auth.OrganizationGrant, error)
	SetLocationGrants(ctx context.Context, userID, locationID string, wanted []auth.LocationGrantKind) ([]auth.LocationGrant, error)
	ApplyOrganizationRole(ctx context.Context, userID, organizationID string, role auth.OrganizationRole) ([]auth.OrganizationGrant, error)
	ApplyAllLocationRole(ctx context.Context, userID, organizationID string, role auth.AllLocationRole) ([]auth.OrganizationGrant, error)
	ApplyLocationRole(ctx context.Context, userID, locationID string, role auth.PerLocationRole) ([]auth.LocationGrant, error)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	version    string

	auth       AuthService
	authorizer Authorizer
	reconciler Reconciler
	locations  auth.LocationStore
}

func New(rp ReadyProbe, version string, svc AuthService, authorizer Authorizer, reconciler Reconciler, locations auth.LocationStore) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       svc,
		authorizer: authorizer,
		reconciler: reconciler,
		locations:  locations,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// credentials and tokens
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/scopes", a.handleScopeCatalog)
	a.mux.HandleFunc("/v1/me", a.handleMe)

	// grant administration and access checks
	a.mux.HandleFunc("/v1/users/", a.handleUserScoped)
	a.mux.HandleFunc("/v1/organizations/", a.handleOrganizationScoped)
	a.mux.HandleFunc("/v1/locations/", a.handleLocationScoped)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the mux wrapped with authentication and metrics. Outer
// middleware (request ids, logging, rate limits) is composed by the caller.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) handleScopeCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scopes": auth.AllScopes,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     principal.ID,
		"kind":   principal.Kind,
		"email":  principal.Email,
		"name":   principal.Name,
		"scopes": principal.ScopeList(),
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
