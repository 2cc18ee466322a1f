package auth

import (
	"context"
	"fmt"
	"strings"
)

// Reconciler replaces a user's grant rows for one organization or location
// with a declared desired set. Callers pass the end state, never an
// add/remove diff; the delta is computed here and applied atomically by the
// store. Applying the same desired set twice is a no-op the second time.
type Reconciler struct {
	grants GrantStore
	scopes ScopeStore
}

// NewReconciler constructs a Reconciler. The scope store backs bulk direct
// scope replacement and may be nil if only grant reconciliation is used.
func NewReconciler(grants GrantStore, scopes ScopeStore) (*Reconciler, error) {
	if grants == nil {
		return nil, fmt.Errorf("%w: grant store is required", ErrInvalidInput)
	}
	return &Reconciler{grants: grants, scopes: scopes}, nil
}

// SetDirectScopes reconciles a principal's direct scope grants against
// wanted and returns the stored set after the change. Role-inherited scopes
// are untouched.
func (r *Reconciler) SetDirectScopes(ctx context.Context, principalID string, wanted []Scope) ([]Scope, error) {
	if r.scopes == nil {
		return nil, fmt.Errorf("%w: scope store is not configured", ErrInvalidInput)
	}
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, fmt.Errorf("%w: principal id is required", ErrInvalidInput)
	}
	for _, s := range wanted {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, string(s))
		}
	}

	current, err := r.scopes.DirectScopes(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("load direct scopes: %w", err)
	}
	add, remove := diffKinds(wanted, current)
	if len(add) > 0 || len(remove) > 0 {
		if err := r.scopes.ReplaceDirectScopes(ctx, principalID, add, remove); err != nil {
			return nil, fmt.Errorf("replace direct scopes: %w", err)
		}
	}
	return r.scopes.DirectScopes(ctx, principalID)
}

// SetOrganizationGrants reconciles the user's grants for the organization
// against wanted and returns the stored rows after the change.
func (r *Reconciler) SetOrganizationGrants(ctx context.Context, userID, organizationID string, wanted []OrganizationGrantKind) ([]OrganizationGrant, error) {
	userID = strings.TrimSpace(userID)
	organizationID = strings.TrimSpace(organizationID)
	if userID == "" || organizationID == "" {
		return nil, fmt.Errorf("%w: user_id and organization_id are required", ErrInvalidInput)
	}
	for _, k := range wanted {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: unknown organization grant kind %q", ErrInvalidInput, string(k))
		}
	}

	current, err := r.grants.OrganizationGrants(ctx, userID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("load organization grants: %w", err)
	}
	currentKinds := make([]OrganizationGrantKind, 0, len(current))
	for _, g := range current {
		currentKinds = append(currentKinds, g.Kind)
	}

	add, remove := diffKinds(wanted, currentKinds)
	if len(add) > 0 || len(remove) > 0 {
		if err := r.grants.ApplyOrganizationGrantDelta(ctx, userID, organizationID, add, remove); err != nil {
			return nil, fmt.Errorf("apply organization grant delta: %w", err)
		}
	}
	return r.grants.OrganizationGrants(ctx, userID, organizationID)
}

// SetLocationGrants reconciles the user's grants for the location against
// wanted and returns the stored rows after the change.
func (r *Reconciler) SetLocationGrants(ctx context.Context, userID, locationID string, wanted []LocationGrantKind) ([]LocationGrant, error) {
	userID = strings.TrimSpace(userID)
	locationID = strings.TrimSpace(locationID)
	if userID == "" || locationID == "" {
		return nil, fmt.Errorf("%w: user_id and location_id are required", ErrInvalidInput)
	}
	for _, k := range wanted {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: unknown location grant kind %q", ErrInvalidInput, string(k))
		}
	}

	current, err := r.grants.LocationGrants(ctx, userID, locationID)
	if err != nil {
		return nil, fmt.Errorf("load location grants: %w", err)
	}
	currentKinds := make([]LocationGrantKind, 0, len(current))
	for _, g := range current {
		currentKinds = append(currentKinds, g.Kind)
	}

	add, remove := diffKinds(wanted, currentKinds)
	if len(add) > 0 || len(remove) > 0 {
		if err := r.grants.ApplyLocationGrantDelta(ctx, userID, locationID, add, remove); err != nil {
			return nil, fmt.Errorf("apply location grant delta: %w", err)
		}
	}
	return r.grants.LocationGrants(ctx, userID, locationID)
}

// ApplyOrganizationRole expands the template and reconciles the user's
// organization grants against it.
func (r *Reconciler) ApplyOrganizationRole(ctx context.Context, userID, organizationID string, role OrganizationRole) ([]OrganizationGrant, error) {
	kinds, err := role.Grants()
	if err != nil {
		return nil, err
	}
	return r.SetOrganizationGrants(ctx, userID, organizationID, kinds)
}

// ApplyAllLocationRole expands the template into cascading organization
// grants and reconciles against it. No per-location rows are written.
func (r *Reconciler) ApplyAllLocationRole(ctx context.Context, userID, organizationID string, role AllLocationRole) ([]OrganizationGrant, error) {
	kinds, err := role.Grants()
	if err != nil {
		return nil, err
	}
	return r.SetOrganizationGrants(ctx, userID, organizationID, kinds)
}

// ApplyLocationRole expands the template and reconciles the user's grants
// for the single location against it.
func (r *Reconciler) ApplyLocationRole(ctx context.Context, userID, locationID string, role PerLocationRole) ([]LocationGrant, error) {
	kinds, err := role.Grants()
	if err != nil {
		return nil, err
	}
	return r.SetLocationGrants(ctx, userID, locationID, kinds)
}

// diffKinds computes wanted−current and current−wanted with set semantics.
func diffKinds[K comparable](wanted, current []K) (add, remove []K) {
	wantedSet := make(map[K]struct{}, len(wanted))
	for _, k := range wanted {
		wantedSet[k] = struct{}{}
	}
	currentSet := make(map[K]struct{}, len(current))
	for _, k := range current {
		currentSet[k] = struct{}{}
	}
	for k := range wantedSet {
		if _, ok := currentSet[k]; !ok {
			add = append(add, k)
		}
	}
	for k := range currentSet {
		if _, ok := wantedSet[k]; !ok {
			remove = append(remove, k)
		}
	}
	return add, remove
}
