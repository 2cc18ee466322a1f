package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service composes credential verification, scope resolution and token
// issuance into the operations the request-handling layer calls. It holds
// no cache: every login and refresh resolves scopes fresh, and every access
// token authentication is pure in-memory verification.
type Service struct {
	store    Store
	resolver *Resolver
	tokens   *TokenIssuer
}

// NewService constructs the auth service.
func NewService(store Store, resolver *Resolver, tokens *TokenIssuer) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if resolver == nil {
		return nil, errors.New("auth: resolver is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	return &Service{store: store, resolver: resolver, tokens: tokens}, nil
}

// TokenPair is the login result: one access token with a scope snapshot and
// one independently-expiring refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginWithPassword authenticates a user by email and password and mints a
// token pair. Unknown email, missing password hash and failed verification
// all collapse into ErrUnauthenticated so the API cannot be used to probe
// which emails are registered. Email matching is exact and case-sensitive.
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) (TokenPair, Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return TokenPair{}, Principal{}, ErrUnauthenticated
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, Principal{}, ErrUnauthenticated
		}
		return TokenPair{}, Principal{}, fmt.Errorf("load user: %w", err)
	}
	if user.Status != UserStatusActive {
		return TokenPair{}, Principal{}, ErrUnauthenticated
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return TokenPair{}, Principal{}, ErrUnauthenticated
	}

	principal, err := s.userPrincipal(ctx, user)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	access, accessExp, err := s.tokens.IssueAccessToken(principal, nil)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(principal)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, principal, nil
}

// AuthenticateAPIKey verifies a presented raw API key and returns the
// principal with freshly resolved scopes. Lookup is by hash; the raw key is
// never stored.
func (s *Service) AuthenticateAPIKey(ctx context.Context, rawKey string) (Principal, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return Principal{}, ErrUnauthenticated
	}
	key, err := s.store.FindAPIKeyBySecretHash(ctx, HashAPIKey(rawKey))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, fmt.Errorf("load api key: %w", err)
	}
	if !VerifyAPIKey(key.SecretHash, rawKey) {
		return Principal{}, ErrUnauthenticated
	}
	scopes, err := s.resolver.ResolveScopes(ctx, key.ID)
	if err != nil {
		return Principal{}, err
	}
	principal := NewPrincipal(key.ID, PrincipalAPIKey, scopes)
	principal.Name = key.Name
	return principal, nil
}

// Refresh exchanges a valid refresh token for a new access token. Scopes
// are re-resolved against current rows, which is how permission changes
// eventually reach token holders. No new refresh token is minted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, Principal, error) {
	claims, err := s.tokens.DecodeRefreshToken(refreshToken)
	if err != nil {
		return "", time.Time{}, Principal{}, ErrInvalidToken
	}
	principal, err := s.principalByID(ctx, claims.Subject, PrincipalKind(claims.PrincipalKind))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthenticated) {
			return "", time.Time{}, Principal{}, ErrInvalidToken
		}
		return "", time.Time{}, Principal{}, err
	}
	access, exp, err := s.tokens.IssueAccessToken(principal, nil)
	if err != nil {
		return "", time.Time{}, Principal{}, err
	}
	return access, exp, principal, nil
}

// AuthenticateAccessToken verifies an access token and reconstructs the
// principal from the embedded snapshot. No database access: this is the
// fast path run on every request.
func (s *Service) AuthenticateAccessToken(token string) (Principal, error) {
	claims, err := s.tokens.DecodeAccessToken(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	scopes := make([]Scope, 0, len(claims.Scopes))
	for _, raw := range claims.Scopes {
		scopes = append(scopes, Scope(raw))
	}
	kind := PrincipalKind(claims.PrincipalKind)
	if kind != PrincipalUser && kind != PrincipalAPIKey {
		return Principal{}, ErrInvalidToken
	}
	principal := NewPrincipal(claims.Subject, kind, scopes)
	principal.Email = claims.Email
	principal.Name = claims.Name
	return principal, nil
}

// ResolveScopes exposes fresh scope resolution to the request-handling
// layer (admin views, refresh diagnostics).
func (s *Service) ResolveScopes(ctx context.Context, principalID string) ([]Scope, error) {
	return s.resolver.ResolveScopes(ctx, principalID)
}

func (s *Service) principalByID(ctx context.Context, id string, kind PrincipalKind) (Principal, error) {
	switch kind {
	case PrincipalUser:
		user, err := s.store.FindUser(ctx, id)
		if err != nil {
			return Principal{}, err
		}
		if user.Status != UserStatusActive {
			return Principal{}, ErrUnauthenticated
		}
		return s.userPrincipal(ctx, user)
	case PrincipalAPIKey:
		key, err := s.store.FindAPIKey(ctx, id)
		if err != nil {
			return Principal{}, err
		}
		scopes, err := s.resolver.ResolveScopes(ctx, key.ID)
		if err != nil {
			return Principal{}, err
		}
		principal := NewPrincipal(key.ID, PrincipalAPIKey, scopes)
		principal.Name = key.Name
		return principal, nil
	}
	return Principal{}, fmt.Errorf("%w: unknown principal kind %q", ErrInvalidInput, string(kind))
}

func (s *Service) userPrincipal(ctx context.Context, user User) (Principal, error) {
	scopes, err := s.resolver.ResolveScopes(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	principal := NewPrincipal(user.ID, PrincipalUser, scopes)
	principal.Email = user.Email
	principal.Name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	return principal, nil
}
