package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"voltmesh.io/internal/audit"
	"voltmesh.io/internal/auth"
	"voltmesh.io/internal/obs"
)

type setGrantsRequest struct {
	Grants []string `json:"grants"`
}

type setScopesRequest struct {
	Scopes []string `json:"scopes"`
}

type applyRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	if a.reconciler == nil {
		writeError(w, r, http.StatusServiceUnavailable, "grant service unavailable")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "scopes":
		a.handleUserScopes(w, r, userID)
	case len(parts) == 4 && parts[1] == "organizations" && parts[3] == "grants":
		a.handleOrganizationGrants(w, r, userID, parts[2])
	case len(parts) == 4 && parts[1] == "organizations" && parts[3] == "role":
		a.handleOrganizationRole(w, r, userID, parts[2])
	case len(parts) == 4 && parts[1] == "locations" && parts[3] == "grants":
		a.handleLocationGrants(w, r, userID, parts[2])
	case len(parts) == 4 && parts[1] == "locations" && parts[3] == "role":
		a.handleLocationRole(w, r, userID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUserScopes(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureScopes(w, r, auth.ScopeAdmin, auth.ScopeUsersRead) {
			return
		}
		scopes, err := a.auth.ResolveScopes(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"principal_id": userID,
			"scopes":       auth.SortScopes(scopes),
		})
	case http.MethodPut:
		if !a.ensureScopes(w, r, auth.ScopeAdmin) {
			return
		}
		var req setScopesRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		wanted := make([]auth.Scope, 0, len(req.Scopes))
		for _, s := range req.Scopes {
			wanted = append(wanted, auth.Scope(s))
		}
		scopes, err := a.reconciler.SetDirectScopes(r.Context(), userID, wanted)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "grants.scopes.set", "principal", userID, map[string]string{
			"count": fmt.Sprintf("%d", len(scopes)),
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"principal_id": userID,
			"scopes":       scopes,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleOrganizationGrants(w http.ResponseWriter, r *http.Request, userID, orgID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensureScopes(w, r, auth.ScopeAdmin, auth.ScopeUsersWrite) {
		return
	}
	var req setGrantsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	wanted := make([]auth.OrganizationGrantKind, 0, len(req.Grants))
	for _, g := range req.Grants {
		wanted = append(wanted, auth.OrganizationGrantKind(g))
	}
	grants, err := a.reconciler.SetOrganizationGrants(r.Context(), userID, orgID, wanted)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "grants.organization.set", "user", userID, map[string]string{
		"organization_id": orgID,
		"count":           fmt.Sprintf("%d", len(grants)),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":         userID,
		"organization_id": orgID,
		"grants":          grantKindsOf(grants),
	})
}

func (a *API) handleOrganizationRole(w http.ResponseWriter, r *http.Request, userID, orgID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensureScopes(w, r, auth.ScopeAdmin, auth.ScopeUsersWrite) {
		return
	}
	var req applyRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// The role name picks the template family: organization-level roles and
	// all-location roles both reconcile organization grants.
	var (
		grants []auth.OrganizationGrant
		err    error
	)
	if orgRole := auth.OrganizationRole(req.Role); roleKnown(orgRole) {
		grants, err = a.reconciler.ApplyOrganizationRole(r.Context(), userID, orgID, orgRole)
	} else if allRole := auth.AllLocationRole(req.Role); allRoleKnown(allRole) {
		grants, err = a.reconciler.ApplyAllLocationRole(r.Context(), userID, orgID, allRole)
	} else {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "grants.organization.role", "user", userID, map[string]string{
		"organization_id": orgID,
		"role":            req.Role,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":         userID,
		"organization_id": orgID,
		"grants":          grantKindsOf(grants),
	})
}

func (a *API) handleLocationGrants(w http.ResponseWriter, r *http.Request, userID, locationID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensureScopes(w, r, auth.ScopeAdmin, auth.ScopeUsersWrite) {
		return
	}
	var req setGrantsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	wanted := make([]auth.LocationGrantKind, 0, len(req.Grants))
	for _, g := range req.Grants {
		wanted = append(wanted, auth.LocationGrantKind(g))
	}
	grants, err := a.reconciler.SetLocationGrants(r.Context(), userID, locationID, wanted)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "grants.location.set", "user", userID, map[string]string{
		"location_id": locationID,
		"count":       fmt.Sprintf("%d", len(grants)),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"location_id": locationID,
		"grants":      locationKindsOf(grants),
	})
}

func (a *API) handleLocationRole(w http.ResponseWriter, r *http.Request, userID, locationID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensureScopes(w, r, auth.ScopeAdmin, auth.ScopeUsersWrite) {
		return
	}
	var req applyRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	grants, err := a.reconciler.ApplyLocationRole(r.Context(), userID, locationID, auth.PerLocationRole(req.Role))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "grants.location.role", "user", userID, map[string]string{
		"location_id": locationID,
		"role":        req.Role,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"location_id": locationID,
		"grants":      locationKindsOf(grants),
	})
}

func (a *API) handleOrganizationScoped(w http.ResponseWriter, r *http.Request) {
	if a.authorizer == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authorization service unavailable")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "access" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	orgID := parts[0]

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondAuthError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if principal.Kind != auth.PrincipalUser {
		// Resource grants are held by users only.
		respondAuthError(w, r, http.StatusForbidden, "resource access requires a user principal")
		return
	}

	canRead, err := a.authorizer.CanReadOrganization(r.Context(), principal.ID, orgID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	canUpdate, err := a.authorizer.CanUpdateOrganization(r.Context(), principal.ID, orgID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	canCreate, err := a.authorizer.CanCreateLocation(r.Context(), principal.ID, orgID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.AuthDecision("read_organization", outcomeLabel(canRead))
	writeJSON(w, http.StatusOK, map[string]any{
		"organization_id":     orgID,
		"can_read":            canRead,
		"can_update":          canUpdate,
		"can_create_location": canCreate,
	})
}

func (a *API) handleLocationScoped(w http.ResponseWriter, r *http.Request) {
	if a.authorizer == nil || a.locations == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authorization service unavailable")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/locations/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	locationID := parts[0]

	switch {
	case len(parts) == 1:
		a.getLocation(w, r, locationID)
	case len(parts) == 2 && parts[1] == "access":
		a.getLocationAccess(w, r, locationID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// getLocation serves the location record after a live grant check. A token
// scope alone is not enough here, the caller must also hold a read grant on
// this location or its organization.
func (a *API) getLocation(w http.ResponseWriter, r *http.Request, locationID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureScopes(w, r, auth.ScopeAdmin, auth.ScopeLocationsRead) {
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	if principal.Kind != auth.PrincipalUser {
		respondAuthError(w, r, http.StatusForbidden, "resource access requires a user principal")
		return
	}

	location, err := a.locations.FindLocation(r.Context(), locationID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	ok, err := a.authorizer.CanReadLocation(r.Context(), principal.ID, location)
	if err != nil {
		obs.AuthDecision("read_location", "error")
		handleAuthError(w, r, err)
		return
	}
	if !ok {
		obs.AuthDecision("read_location", "deny")
		respondAuthError(w, r, http.StatusForbidden, "access denied")
		return
	}
	obs.AuthDecision("read_location", "allow")
	writeJSON(w, http.StatusOK, location)
}

func (a *API) getLocationAccess(w http.ResponseWriter, r *http.Request, locationID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondAuthError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if principal.Kind != auth.PrincipalUser {
		respondAuthError(w, r, http.StatusForbidden, "resource access requires a user principal")
		return
	}

	location, err := a.locations.FindLocation(r.Context(), locationID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	canRead, err := a.authorizer.CanReadLocation(r.Context(), principal.ID, location)
	if err != nil {
		obs.AuthDecision("read_location", "error")
		handleAuthError(w, r, err)
		return
	}
	canUpdate, err := a.authorizer.CanUpdateLocation(r.Context(), principal.ID, location)
	if err != nil {
		obs.AuthDecision("update_location", "error")
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location_id": locationID,
		"can_read":    canRead,
		"can_update":  canUpdate,
	})
}

func (a *API) audit(ctx context.Context, event, resourceType, resourceID string, meta map[string]string) {
	fields := map[string]any{
		"resource_type": resourceType,
		"resource_id":   resourceID,
	}
	for k, v := range meta {
		fields[k] = v
	}
	_ = audit.LogEvent(ctx, event, fields)
}

func grantKindsOf(grants []auth.OrganizationGrant) []auth.OrganizationGrantKind {
	kinds := make([]auth.OrganizationGrantKind, 0, len(grants))
	for _, g := range grants {
		kinds = append(kinds, g.Kind)
	}
	return kinds
}

func locationKindsOf(grants []auth.LocationGrant) []auth.LocationGrantKind {
	kinds := make([]auth.LocationGrantKind, 0, len(grants))
	for _, g := range grants {
		kinds = append(kinds, g.Kind)
	}
	return kinds
}

func roleKnown(r auth.OrganizationRole) bool {
	_, err := r.Grants()
	return err == nil
}

func allRoleKnown(r auth.AllLocationRole) bool {
	_, err := r.Grants()
	return err == nil
}

func outcomeLabel(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}

// handleAuthError maps service errors to HTTP statuses. An authorization
// check fault is a server error, never a denial.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusForbidden, "access denied")
	case errors.Is(err, auth.ErrAuthorizationCheck):
		writeError(w, r, http.StatusInternalServerError, "authorization check failed")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
