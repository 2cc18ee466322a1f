package auth

import "time"

// Organization is a tenant: a customer owning locations and their devices.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Location is one physical site (building, floor, plant) inside an
// organization. Grant cascade resolution needs both ids, so the pair always
// travels together.
type Location struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// User is a human account. PasswordHash may be empty for accounts that
// authenticate elsewhere; such accounts cannot log in with a password.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// APIKey is a machine credential. Only the SHA-256 hash of the raw key is
// stored; the raw key is shown once at creation time.
type APIKey struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// PrincipalKind distinguishes the two authenticable identity types.
type PrincipalKind string

const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalAPIKey PrincipalKind = "api_key"
)

// DirectScopeGrant attaches one scope directly to a principal. Unique per
// (principal, scope) pair.
type DirectScopeGrant struct {
	PrincipalID string    `json:"principal_id"`
	Scope       Scope     `json:"scope"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessRole is a named scope bundle assigned to principals.
type AccessRole struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleScopeLink attaches one scope to a role.
type RoleScopeLink struct {
	RoleID string `json:"role_id"`
	Scope  Scope  `json:"scope"`
}

// RoleAssignment gives a principal every scope linked to the role.
type RoleAssignment struct {
	PrincipalID string    `json:"principal_id"`
	RoleID      string    `json:"role_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrganizationGrant entitles a user to an organization-level operation.
// Grants are issued to users only; API keys carry scopes exclusively.
type OrganizationGrant struct {
	UserID         string                `json:"user_id"`
	OrganizationID string                `json:"organization_id"`
	Kind           OrganizationGrantKind `json:"kind"`
	CreatedAt      time.Time             `json:"created_at"`
}

// LocationGrant entitles a user to an operation on a single location.
type LocationGrant struct {
	UserID     string            `json:"user_id"`
	LocationID string            `json:"location_id"`
	Kind       LocationGrantKind `json:"kind"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Principal is an authenticated identity with its resolved scope set.
type Principal struct {
	ID     string
	Kind   PrincipalKind
	Email  string
	Name   string
	Scopes map[Scope]struct{}
}

// NewPrincipal builds a principal from a resolved scope list.
func NewPrincipal(id string, kind PrincipalKind, scopes []Scope) Principal {
	set := make(map[Scope]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return Principal{ID: id, Kind: kind, Scopes: set}
}

// HasScope reports whether the principal holds the scope. ADMIN does not
// imply other scopes; routes that accept it list it explicitly.
func (p Principal) HasScope(s Scope) bool {
	_, ok := p.Scopes[s]
	return ok
}

// HasAnyScope reports whether the principal holds at least one of the given
// scopes.
func (p Principal) HasAnyScope(scopes ...Scope) bool {
	for _, s := range scopes {
		if p.HasScope(s) {
			return true
		}
	}
	return false
}

// ScopeList returns the principal's scopes sorted for serialization.
func (p Principal) ScopeList() []Scope {
	out := make([]Scope, 0, len(p.Scopes))
	for s := range p.Scopes {
		out = append(out, s)
	}
	return SortScopes(out)
}
