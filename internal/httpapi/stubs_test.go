package httpapi

import (
	"context"
	"time"

	"voltmesh.io/internal/auth"
)

type stubAuthService struct {
	loginFn   func(ctx context.Context, email, password string) (auth.TokenPair, auth.Principal, error)
	apiKeyFn  func(ctx context.Context, rawKey string) (auth.Principal, error)
	refreshFn func(ctx context.Context, refreshToken string) (string, time.Time, auth.Principal, error)
	accessFn  func(token string) (auth.Principal, error)
	resolveFn func(ctx context.Context, principalID string) ([]auth.Scope, error)
}

func (s *stubAuthService) LoginWithPassword(ctx context.Context, email, password string) (auth.TokenPair, auth.Principal, error) {
	if s.loginFn == nil {
		return auth.TokenPair{}, auth.Principal{}, auth.ErrUnauthenticated
	}
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) AuthenticateAPIKey(ctx context.Context, rawKey string) (auth.Principal, error) {
	if s.apiKeyFn == nil {
		return auth.Principal{}, auth.ErrUnauthenticated
	}
	return s.apiKeyFn(ctx, rawKey)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, auth.Principal, error) {
	if s.refreshFn == nil {
		return "", time.Time{}, auth.Principal{}, auth.ErrInvalidToken
	}
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) AuthenticateAccessToken(token string) (auth.Principal, error) {
	if s.accessFn == nil {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return s.accessFn(token)
}

func (s *stubAuthService) ResolveScopes(ctx context.Context, principalID string) ([]auth.Scope, error) {
	if s.resolveFn == nil {
		return nil, nil
	}
	return s.resolveFn(ctx, principalID)
}

type stubAuthorizer struct {
	readOrgFn   func(ctx context.Context, userID, organizationID string) (bool, error)
	updateOrgFn func(ctx context.Context, userID, organizationID string) (bool, error)
	createLocFn func(ctx context.Context, userID, organizationID string) (bool, error)
	readLocFn   func(ctx context.Context, userID string, location auth.Location) (bool, error)
	updateLocFn func(ctx context.Context, userID string, location auth.Location) (bool, error)
}

func (s *stubAuthorizer) CanReadOrganization(ctx context.Context, userID, organizationID string) (bool, error) {
	if s.readOrgFn == nil {
		return false, nil
	}
	return s.readOrgFn(ctx, userID, organizationID)
}

func (s *stubAuthorizer) CanUpdateOrganization(ctx context.Context, userID, organizationID string) (bool, error) {
	if s.updateOrgFn == nil {
		return false, nil
	}
	return s.updateOrgFn(ctx, userID, organizationID)
}

func (s *stubAuthorizer) CanCreateLocation(ctx context.Context, userID, organizationID string) (bool, error) {
	if s.createLocFn == nil {
		return false, nil
	}
	return s.createLocFn(ctx, userID, organizationID)
}

func (s *stubAuthorizer) CanReadLocation(ctx context.Context, userID string, location auth.Location) (bool, error) {
	if s.readLocFn == nil {
		return false, nil
	}
	return s.readLocFn(ctx, userID, location)
}

func (s *stubAuthorizer) CanUpdateLocation(ctx context.Context, userID string, location auth.Location) (bool, error) {
	if s.updateLocFn == nil {
		return false, nil
	}
	return s.updateLocFn(ctx, userID, location)
}

type stubReconciler struct {
	setScopesFn    func(ctx context.Context, principalID string, wanted []auth.Scope) ([]auth.Scope, error)
	setOrgFn       func(ctx context.Context, userID, organizationID string, wanted []auth.OrganizationGrantKind) ([]auth.OrganizationGrant, error)
	setLocFn       func(ctx context.Context, userID, locationID string, wanted []auth.LocationGrantKind) ([]auth.LocationGrant, error)
	applyOrgFn     func(ctx context.Context, userID, organizationID string, role auth.OrganizationRole) ([]auth.OrganizationGrant, error)
	applyAllLocFn  func(ctx context.Context, userID, organizationID string, role auth.AllLocationRole) ([]auth.OrganizationGrant, error)
	applyPerLocFn  func(ctx context.Context, userID, locationID string, role auth.PerLocationRole) ([]auth.LocationGrant, error)
}

func (s *stubReconciler) SetDirectScopes(ctx context.Context, principalID string, wanted []auth.Scope) ([]auth.Scope, error) {
	if s.setScopesFn == nil {
		return nil, auth.ErrInvalidInput
	}
	return s.setScopesFn(ctx, principalID, wanted)
}

func (s *stubReconciler) SetOrganizationGrants(ctx context.Context, userID, organizationID string, wanted []auth.OrganizationGrantKind) ([]auth.OrganizationGrant, error) {
	if s.setOrgFn == nil {
		return nil, auth.ErrInvalidInput
	}
	return s.setOrgFn(ctx, userID, organizationID, wanted)
}

func (s *stubReconciler) SetLocationGrants(ctx context.Context, userID, locationID string, wanted []auth.LocationGrantKind) ([]auth.LocationGrant, error) {
	if s.setLocFn == nil {
		return nil, auth.ErrInvalidInput
	}
	return s.setLocFn(ctx, userID, locationID, wanted)
}

func (s *stubReconciler) ApplyOrganizationRole(ctx context.Context, userID, organizationID string, role auth.OrganizationRole) ([]auth.OrganizationGrant, error) {
	if s.applyOrgFn == nil {
		return nil, auth.ErrInvalidInput
	}
	return s.applyOrgFn(ctx, userID, organizationID, role)
}

func (s *stubReconciler) ApplyAllLocationRole(ctx context.Context, userID, organizationID string, role auth.AllLocationRole) ([]auth.OrganizationGrant, error) {
	if s.applyAllLocFn == nil {
		return nil, auth.ErrInvalidInput
	}
	return s.applyAllLocFn(ctx, userID, organizationID, role)
}

func (s *stubReconciler) ApplyLocationRole(ctx context.Context, userID, locationID string, role auth.PerLocationRole) ([]auth.LocationGrant, error) {
	if s.applyPerLocFn == nil {
		return nil, auth.ErrInvalidInput
	}
	return s.applyPerLocFn(ctx, userID, locationID, role)
}

type stubLocations struct {
	findFn func(ctx context.Context, id string) (auth.Location, error)
}

func (s *stubLocations) FindLocation(ctx context.Context, id string) (auth.Location, error) {
	if s.findFn == nil {
		return auth.Location{}, auth.ErrNotFound
	}
	return s.findFn(ctx, id)
}

// tokenFor wires the stub access-token decoder to a fixed principal.
func tokenFor(principal auth.Principal) *stubAuthService {
	return &stubAuthService{
		accessFn: func(token string) (auth.Principal, error) {
			if token != "valid-token" {
				return auth.Principal{}, auth.ErrInvalidToken
			}
			return principal, nil
		},
	}
}
