package auth

import "fmt"

// Grants are resource-instance entitlements checked live against current
// rows on every request. They are deliberately kept apart from scopes: a
// scope is a capability class frozen into a token, a grant names one
// organization or location and is never embedded anywhere.

// OrganizationGrantKind is an entitlement held against one organization.
// The location-flavored kinds cascade: holding them at the organization
// level satisfies the equivalent check for every location underneath.
type OrganizationGrantKind string

const (
	OrgGrantReadOrganization   OrganizationGrantKind = "ALLOW_READ_ORGANIZATION"
	OrgGrantUpdateOrganization OrganizationGrantKind = "ALLOW_UPDATE_ORGANIZATION"
	OrgGrantCreateLocation     OrganizationGrantKind = "ALLOW_CREATE_LOCATION"
	OrgGrantReadLocation       OrganizationGrantKind = "ALLOW_READ_LOCATION"
	OrgGrantUpdateLocation     OrganizationGrantKind = "ALLOW_UPDATE_LOCATION"
)

// LocationGrantKind is an entitlement held against one location only. It is
// the narrow, non-cascading fallback for principals without any
// organization-level access (e.g. guests invited to a single site).
type LocationGrantKind string

const (
	LocationGrantRead   LocationGrantKind = "ALLOW_READ_LOCATION"
	LocationGrantUpdate LocationGrantKind = "ALLOW_UPDATE_LOCATION"
)

// Valid reports whether k is part of the organization grant catalog.
func (k OrganizationGrantKind) Valid() bool {
	switch k {
	case OrgGrantReadOrganization, OrgGrantUpdateOrganization,
		OrgGrantCreateLocation, OrgGrantReadLocation, OrgGrantUpdateLocation:
		return true
	}
	return false
}

// Valid reports whether k is part of the location grant catalog.
func (k LocationGrantKind) Valid() bool {
	switch k {
	case LocationGrantRead, LocationGrantUpdate:
		return true
	}
	return false
}

// cascadeKind maps a location grant kind to the organization grant kind that
// satisfies it through the organization→location cascade.
func cascadeKind(k LocationGrantKind) OrganizationGrantKind {
	switch k {
	case LocationGrantRead:
		return OrgGrantReadLocation
	case LocationGrantUpdate:
		return OrgGrantUpdateLocation
	}
	return ""
}

// Role templates expand to concrete grant kind sets. Templates are not
// persisted; applying one reconciles the stored grant rows for a single
// (user, organization|location) pair against the expansion.

// OrganizationRole templates expand to organization-management grants.
type OrganizationRole string

const (
	OrganizationViewer OrganizationRole = "ORGANIZATION_VIEWER"
	OrganizationAdmin  OrganizationRole = "ORGANIZATION_ADMIN"
)

// AllLocationRole templates expand to cascading organization grants that
// apply to every location in the organization.
type AllLocationRole string

const (
	AllLocationViewer AllLocationRole = "ALL_LOCATION_VIEWER"
	AllLocationEditor AllLocationRole = "ALL_LOCATION_EDITOR"
	AllLocationAdmin  AllLocationRole = "ALL_LOCATION_ADMIN"
)

// PerLocationRole templates expand to grants on one location only.
type PerLocationRole string

const (
	LocationViewer PerLocationRole = "LOCATION_VIEWER"
	LocationEditor PerLocationRole = "LOCATION_EDITOR"
)

// Grants returns the organization grant kinds the template implies.
func (r OrganizationRole) Grants() ([]OrganizationGrantKind, error) {
	switch r {
	case OrganizationViewer:
		return []OrganizationGrantKind{OrgGrantReadOrganization}, nil
	case OrganizationAdmin:
		return []OrganizationGrantKind{OrgGrantReadOrganization, OrgGrantUpdateOrganization}, nil
	}
	return nil, fmt.Errorf("%w: unknown organization role %q", ErrInvalidInput, string(r))
}

// Grants returns the cascading organization grant kinds the template implies.
func (r AllLocationRole) Grants() ([]OrganizationGrantKind, error) {
	switch r {
	case AllLocationViewer:
		return []OrganizationGrantKind{OrgGrantReadLocation}, nil
	case AllLocationEditor:
		return []OrganizationGrantKind{OrgGrantReadLocation, OrgGrantUpdateLocation}, nil
	case AllLocationAdmin:
		return []OrganizationGrantKind{OrgGrantCreateLocation, OrgGrantReadLocation, OrgGrantUpdateLocation}, nil
	}
	return nil, fmt.Errorf("%w: unknown all-location role %q", ErrInvalidInput, string(r))
}

// Grants returns the location grant kinds the template implies.
func (r PerLocationRole) Grants() ([]LocationGrantKind, error) {
	switch r {
	case LocationViewer:
		return []LocationGrantKind{LocationGrantRead}, nil
	case LocationEditor:
		return []LocationGrantKind{LocationGrantRead, LocationGrantUpdate}, nil
	}
	return nil, fmt.Errorf("%w: unknown location role %q", ErrInvalidInput, string(r))
}
