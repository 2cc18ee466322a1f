package auth

import "sort"

// Scope is a capability tag authorizing a class of operations. Scopes are
// embedded into access tokens as a snapshot at mint time; they are never
// checked live against the database.
//
// The catalog is closed: scopes are version-controlled constants, never
// user-defined.
type Scope string

const (
	ScopeAdmin Scope = "ADMIN"

	ScopeOrganizationsRead  Scope = "ORGANIZATIONS_READ"
	ScopeOrganizationsWrite Scope = "ORGANIZATIONS_WRITE"
	ScopeLocationsRead      Scope = "LOCATIONS_READ"
	ScopeLocationsWrite     Scope = "LOCATIONS_WRITE"

	ScopePanelsRead     Scope = "PANELS_READ"
	ScopePanelsWrite    Scope = "PANELS_WRITE"
	ScopeCircuitsRead   Scope = "CIRCUITS_READ"
	ScopeCircuitsWrite  Scope = "CIRCUITS_WRITE"
	ScopeHVACRead       Scope = "HVAC_READ"
	ScopeHVACWrite      Scope = "HVAC_WRITE"
	ScopeSensorsRead    Scope = "SENSORS_READ"
	ScopeSensorsWrite   Scope = "SENSORS_WRITE"
	ScopeDashboardsRead Scope = "DASHBOARDS_READ"
	ScopeDashboardsWrite Scope = "DASHBOARDS_WRITE"
	ScopeGatewaysRead   Scope = "GATEWAYS_READ"
	ScopeGatewaysWrite  Scope = "GATEWAYS_WRITE"

	ScopeUsersRead    Scope = "USERS_READ"
	ScopeUsersWrite   Scope = "USERS_WRITE"
	ScopeAPIKeysRead  Scope = "API_KEYS_READ"
	ScopeAPIKeysWrite Scope = "API_KEYS_WRITE"
)

// AllScopes enumerates every scope in the catalog, ordered for display.
var AllScopes = []Scope{
	ScopeAdmin,
	ScopeOrganizationsRead,
	ScopeOrganizationsWrite,
	ScopeLocationsRead,
	ScopeLocationsWrite,
	ScopePanelsRead,
	ScopePanelsWrite,
	ScopeCircuitsRead,
	ScopeCircuitsWrite,
	ScopeHVACRead,
	ScopeHVACWrite,
	ScopeSensorsRead,
	ScopeSensorsWrite,
	ScopeDashboardsRead,
	ScopeDashboardsWrite,
	ScopeGatewaysRead,
	ScopeGatewaysWrite,
	ScopeUsersRead,
	ScopeUsersWrite,
	ScopeAPIKeysRead,
	ScopeAPIKeysWrite,
}

var scopeSet = func() map[Scope]struct{} {
	m := make(map[Scope]struct{}, len(AllScopes))
	for _, s := range AllScopes {
		m[s] = struct{}{}
	}
	return m
}()

// Valid reports whether s is part of the catalog.
func (s Scope) Valid() bool {
	_, ok := scopeSet[s]
	return ok
}

func (s Scope) String() string { return string(s) }

// SortScopes orders a scope slice lexicographically in place and returns it.
// Resolution produces sets; sorting is only applied at serialization
// boundaries (token claims, API responses).
func SortScopes(scopes []Scope) []Scope {
	sort.Slice(scopes, func(i, j int) bool { return scopes[i] < scopes[j] })
	return scopes
}
