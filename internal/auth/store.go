package auth

import "context"

// Store interfaces describe the persistence operations the authorization
// core consumes. Domain entities (panels, sensors, dashboards, schedules)
// live behind their own repositories and never reach this package.

// UserStore loads user accounts.
type UserStore interface {
	FindUser(ctx context.Context, id string) (User, error)
	// FindUserByEmail matches the stored email exactly, case-sensitively.
	FindUserByEmail(ctx context.Context, email string) (User, error)
}

// APIKeyStore loads machine credentials by secret hash. The raw key is
// never persisted.
type APIKeyStore interface {
	FindAPIKey(ctx context.Context, id string) (APIKey, error)
	FindAPIKeyBySecretHash(ctx context.Context, secretHash string) (APIKey, error)
}

// LocationStore resolves a location to its owning organization, which the
// cascade check needs.
type LocationStore interface {
	FindLocation(ctx context.Context, id string) (Location, error)
}

// ScopeStore manages capability scopes: direct grants, roles, role-scope
// links and role assignments. Principal ids refer to users and API keys
// alike; the store does not distinguish them.
type ScopeStore interface {
	DirectScopes(ctx context.Context, principalID string) ([]Scope, error)
	AddDirectScope(ctx context.Context, principalID string, scope Scope) error
	RemoveDirectScope(ctx context.Context, principalID string, scope Scope) error
	// ReplaceDirectScopes applies a computed delta atomically.
	ReplaceDirectScopes(ctx context.Context, principalID string, add, remove []Scope) error

	CreateRole(ctx context.Context, name string) (AccessRole, error)
	SetRoleScopes(ctx context.Context, roleID string, scopes []Scope) error
	RoleScopes(ctx context.Context, roleID string) ([]Scope, error)

	AssignRole(ctx context.Context, principalID, roleID string) error
	RemoveRoleAssignment(ctx context.Context, principalID, roleID string) error
	RoleAssignments(ctx context.Context, principalID string) ([]RoleAssignment, error)
}

// GrantStore manages resource grants. Delta application must be atomic:
// concurrent readers observe either the full old set or the full new set
// for the affected (user, organization|location) pair, never an
// intermediate mix, and pairs do not share a lock.
type GrantStore interface {
	OrganizationGrants(ctx context.Context, userID, organizationID string) ([]OrganizationGrant, error)
	HasOrganizationGrant(ctx context.Context, userID, organizationID string, kind OrganizationGrantKind) (bool, error)
	ApplyOrganizationGrantDelta(ctx context.Context, userID, organizationID string, add, remove []OrganizationGrantKind) error

	LocationGrants(ctx context.Context, userID, locationID string) ([]LocationGrant, error)
	HasLocationGrant(ctx context.Context, userID, locationID string, kind LocationGrantKind) (bool, error)
	ApplyLocationGrantDelta(ctx context.Context, userID, locationID string, add, remove []LocationGrantKind) error
}

// Store aggregates everything the auth service needs from persistence.
type Store interface {
	UserStore
	APIKeyStore
	LocationStore
	ScopeStore
	GrantStore
}
