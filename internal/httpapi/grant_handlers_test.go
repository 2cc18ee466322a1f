package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voltmesh.io/internal/auth"
)

func adminAPI(t *testing.T, reconciler *stubReconciler, authorizer *stubAuthorizer, locations *stubLocations) *API {
	t.Helper()
	principal := auth.NewPrincipal("admin-1", auth.PrincipalUser, []auth.Scope{auth.ScopeAdmin})
	return New(ReadyProbe{}, "dev", tokenFor(principal), authorizer, reconciler, locations)
}

func doAuthed(t *testing.T, api *API, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer valid-token")
	rr := httptest.NewRecorder()
	api.Handler().ServeHTTP(rr, req)
	return rr
}

func TestSetOrganizationGrants(t *testing.T) {
	var gotUser, gotOrg string
	var gotWanted []auth.OrganizationGrantKind
	rec := &stubReconciler{
		setOrgFn: func(_ context.Context, userID, orgID string, wanted []auth.OrganizationGrantKind) ([]auth.OrganizationGrant, error) {
			gotUser, gotOrg, gotWanted = userID, orgID, wanted
			grants := make([]auth.OrganizationGrant, 0, len(wanted))
			for _, k := range wanted {
				grants = append(grants, auth.OrganizationGrant{
					UserID:         userID,
					OrganizationID: orgID,
					Kind:           k,
					CreatedAt:      time.Now().UTC(),
				})
			}
			return grants, nil
		},
	}
	api := adminAPI(t, rec, &stubAuthorizer{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodPut, "/v1/users/user-9/organizations/org-3/grants",
		`{"grants":["ALLOW_READ_LOCATION","ALLOW_UPDATE_LOCATION"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotUser != "user-9" || gotOrg != "org-3" {
		t.Fatalf("reconciler got user=%q org=%q", gotUser, gotOrg)
	}
	if len(gotWanted) != 2 {
		t.Fatalf("expected 2 wanted kinds, got %v", gotWanted)
	}

	var body struct {
		Grants []string `json:"grants"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Grants) != 2 {
		t.Fatalf("expected 2 grants in response, got %v", body.Grants)
	}
}

func TestSetOrganizationGrantsRejectsUnknownKind(t *testing.T) {
	rec := &stubReconciler{
		setOrgFn: func(_ context.Context, _, _ string, wanted []auth.OrganizationGrantKind) ([]auth.OrganizationGrant, error) {
			for _, k := range wanted {
				if !k.Valid() {
					return nil, fmt.Errorf("%w: unknown organization grant kind %q", auth.ErrInvalidInput, k)
				}
			}
			return nil, nil
		},
	}
	api := adminAPI(t, rec, &stubAuthorizer{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodPut, "/v1/users/user-9/organizations/org-3/grants",
		`{"grants":["ALLOW_EVERYTHING"]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSetLocationGrantsToEmpty(t *testing.T) {
	var gotWanted []auth.LocationGrantKind
	called := false
	rec := &stubReconciler{
		setLocFn: func(_ context.Context, _, _ string, wanted []auth.LocationGrantKind) ([]auth.LocationGrant, error) {
			called = true
			gotWanted = wanted
			return nil, nil
		},
	}
	api := adminAPI(t, rec, &stubAuthorizer{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodPut, "/v1/users/user-9/locations/loc-4/grants", `{"grants":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !called || len(gotWanted) != 0 {
		t.Fatalf("expected reconcile to empty set, called=%v wanted=%v", called, gotWanted)
	}
}

func TestApplyOrganizationRoleTemplate(t *testing.T) {
	var gotRole auth.AllLocationRole
	rec := &stubReconciler{
		applyAllLocFn: func(_ context.Context, userID, orgID string, role auth.AllLocationRole) ([]auth.OrganizationGrant, error) {
			gotRole = role
			kinds, err := role.Grants()
			if err != nil {
				return nil, err
			}
			grants := make([]auth.OrganizationGrant, 0, len(kinds))
			for _, k := range kinds {
				grants = append(grants, auth.OrganizationGrant{UserID: userID, OrganizationID: orgID, Kind: k})
			}
			return grants, nil
		},
	}
	api := adminAPI(t, rec, &stubAuthorizer{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodPut, "/v1/users/user-9/organizations/org-3/role",
		`{"role":"ALL_LOCATION_EDITOR"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotRole != auth.AllLocationEditor {
		t.Fatalf("expected ALL_LOCATION_EDITOR, got %q", gotRole)
	}

	var body struct {
		Grants []string `json:"grants"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Grants) != 2 {
		t.Fatalf("editor template confers 2 grants, got %v", body.Grants)
	}
}

func TestApplyRoleRejectsUnknownTemplate(t *testing.T) {
	api := adminAPI(t, &stubReconciler{}, &stubAuthorizer{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodPut, "/v1/users/user-9/organizations/org-3/role",
		`{"role":"SUPERUSER"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGrantWritesRequireScope(t *testing.T) {
	principal := auth.NewPrincipal("user-2", auth.PrincipalUser, []auth.Scope{auth.ScopeSensorsRead})
	api := New(ReadyProbe{}, "dev", tokenFor(principal), &stubAuthorizer{}, &stubReconciler{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodPut, "/v1/users/user-9/organizations/org-3/grants",
		`{"grants":["ALLOW_READ_LOCATION"]}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestGetLocationAllowsWithLiveGrant(t *testing.T) {
	loc := auth.Location{ID: "loc-4", OrganizationID: "org-3", Name: "Plant West"}
	locations := &stubLocations{
		findFn: func(_ context.Context, id string) (auth.Location, error) {
			if id != "loc-4" {
				return auth.Location{}, auth.ErrNotFound
			}
			return loc, nil
		},
	}
	authorizer := &stubAuthorizer{
		readLocFn: func(_ context.Context, userID string, l auth.Location) (bool, error) {
			return userID == "reader-1" && l.ID == "loc-4", nil
		},
	}
	principal := auth.NewPrincipal("reader-1", auth.PrincipalUser, []auth.Scope{auth.ScopeLocationsRead})
	api := New(ReadyProbe{}, "dev", tokenFor(principal), authorizer, &stubReconciler{}, locations)

	rr := doAuthed(t, api, http.MethodGet, "/v1/locations/loc-4", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body auth.Location
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != "loc-4" || body.Name != "Plant West" {
		t.Fatalf("unexpected location: %+v", body)
	}
}

func TestGetLocationDeniedWithoutGrant(t *testing.T) {
	locations := &stubLocations{
		findFn: func(_ context.Context, id string) (auth.Location, error) {
			return auth.Location{ID: id, OrganizationID: "org-3"}, nil
		},
	}
	authorizer := &stubAuthorizer{
		readLocFn: func(context.Context, string, auth.Location) (bool, error) { return false, nil },
	}
	principal := auth.NewPrincipal("reader-1", auth.PrincipalUser, []auth.Scope{auth.ScopeLocationsRead})
	api := New(ReadyProbe{}, "dev", tokenFor(principal), authorizer, &stubReconciler{}, locations)

	rr := doAuthed(t, api, http.MethodGet, "/v1/locations/loc-4", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("scope alone must not grant access, got %d", rr.Code)
	}
}

func TestGetLocationCheckFaultIs500NotDenial(t *testing.T) {
	locations := &stubLocations{
		findFn: func(_ context.Context, id string) (auth.Location, error) {
			return auth.Location{ID: id, OrganizationID: "org-3"}, nil
		},
	}
	authorizer := &stubAuthorizer{
		readLocFn: func(context.Context, string, auth.Location) (bool, error) {
			return false, fmt.Errorf("%w: organization grant lookup: timeout", auth.ErrAuthorizationCheck)
		},
	}
	principal := auth.NewPrincipal("reader-1", auth.PrincipalUser, []auth.Scope{auth.ScopeLocationsRead})
	api := New(ReadyProbe{}, "dev", tokenFor(principal), authorizer, &stubReconciler{}, locations)

	rr := doAuthed(t, api, http.MethodGet, "/v1/locations/loc-4", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for check fault, got %d", rr.Code)
	}
}

func TestGetLocationRejectsAPIKeyPrincipal(t *testing.T) {
	principal := auth.NewPrincipal("key-1", auth.PrincipalAPIKey, []auth.Scope{auth.ScopeLocationsRead})
	api := New(ReadyProbe{}, "dev", tokenFor(principal), &stubAuthorizer{}, &stubReconciler{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodGet, "/v1/locations/loc-4", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for api-key principal, got %d", rr.Code)
	}
}

func TestOrganizationAccessSummary(t *testing.T) {
	authorizer := &stubAuthorizer{
		readOrgFn:   func(context.Context, string, string) (bool, error) { return true, nil },
		updateOrgFn: func(context.Context, string, string) (bool, error) { return false, nil },
		createLocFn: func(context.Context, string, string) (bool, error) { return true, nil },
	}
	principal := auth.NewPrincipal("user-1", auth.PrincipalUser, nil)
	api := New(ReadyProbe{}, "dev", tokenFor(principal), authorizer, &stubReconciler{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodGet, "/v1/organizations/org-3/access", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		CanRead           bool `json:"can_read"`
		CanUpdate         bool `json:"can_update"`
		CanCreateLocation bool `json:"can_create_location"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.CanRead || body.CanUpdate || !body.CanCreateLocation {
		t.Fatalf("unexpected summary: %+v", body)
	}
}

func TestResolvedScopesEndpoint(t *testing.T) {
	principal := auth.NewPrincipal("admin-1", auth.PrincipalUser, []auth.Scope{auth.ScopeAdmin})
	svc := tokenFor(principal)
	svc.resolveFn = func(_ context.Context, principalID string) ([]auth.Scope, error) {
		if principalID != "user-9" {
			return nil, auth.ErrNotFound
		}
		return []auth.Scope{auth.ScopeHVACWrite, auth.ScopeHVACRead}, nil
	}
	api := New(ReadyProbe{}, "dev", svc, &stubAuthorizer{}, &stubReconciler{}, &stubLocations{})

	rr := doAuthed(t, api, http.MethodGet, "/v1/users/user-9/scopes", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Scopes []string `json:"scopes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Scopes) != 2 || body.Scopes[0] != "HVAC_READ" {
		t.Fatalf("expected sorted scopes, got %v", body.Scopes)
	}

	rr = doAuthed(t, api, http.MethodGet, "/v1/users/ghost/scopes", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown principal, got %d", rr.Code)
	}
}
