package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Resolver computes the effective scope set of a principal: the union of
// directly-granted scopes and scopes inherited through assigned roles.
// The same code path serves users and API keys.
type Resolver struct {
	store ScopeStore
	log   *log.Logger
}

// NewResolver constructs a Resolver. The logger is used for
// internal-consistency warnings and may be nil.
func NewResolver(store ScopeStore, logger *log.Logger) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("auth: scope store is required")
	}
	return &Resolver{store: store, log: logger}, nil
}

// ResolveScopes returns the deduplicated union of the principal's direct
// scopes and all role-inherited scopes. Output order is unspecified;
// callers must treat the result as a set.
//
// A role assignment pointing at a role that no longer exists is an
// internal-consistency defect, not a caller error: it is logged and
// contributes zero scopes.
func (r *Resolver) ResolveScopes(ctx context.Context, principalID string) ([]Scope, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, fmt.Errorf("%w: principal id is required", ErrInvalidInput)
	}

	direct, err := r.store.DirectScopes(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("resolve direct scopes: %w", err)
	}
	assignments, err := r.store.RoleAssignments(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("resolve role assignments: %w", err)
	}

	set := make(map[Scope]struct{}, len(direct))
	for _, s := range direct {
		set[s] = struct{}{}
	}
	for _, a := range assignments {
		scopes, err := r.store.RoleScopes(ctx, a.RoleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				if r.log != nil {
					r.log.Printf(`{"level":"warn","msg":"role assignment references missing role","principal_id":%q,"role_id":%q}`,
						principalID, a.RoleID)
				}
				continue
			}
			return nil, fmt.Errorf("resolve scopes for role %s: %w", a.RoleID, err)
		}
		for _, s := range scopes {
			set[s] = struct{}{}
		}
	}

	out := make([]Scope, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out, nil
}
