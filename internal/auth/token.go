package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer     = "voltmesh"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 14

	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// AccessClaims is the payload of an access token: subject, display fields
// and the scope snapshot taken at mint time. The snapshot is intentionally
// stale; permission changes reach holders only through refresh or expiry.
type AccessClaims struct {
	Scopes        []string `json:"scopes"`
	Email         string   `json:"email,omitempty"`
	Name          string   `json:"name,omitempty"`
	PrincipalKind string   `json:"principal_kind"`
	TokenKind     string   `json:"token_kind"`
	jwt.RegisteredClaims
}

// RefreshClaims carries subject and expiry only. No scopes: the exchange
// re-resolves them fresh.
type RefreshClaims struct {
	PrincipalKind string `json:"principal_kind"`
	TokenKind     string `json:"token_kind"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and decodes signed access and refresh tokens. The two
// artifact kinds use distinct HS256 secrets, so a token of one kind can
// never verify as the other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer) error

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) error {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			t.issuer = issuer
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) error {
		if ttl > 0 {
			t.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) error {
		if ttl > 0 {
			t.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(t *TokenIssuer) error {
		if fn != nil {
			t.now = fn
		}
		return nil
	}
}

// NewTokenIssuer constructs a TokenIssuer. Both secrets are required and
// must differ.
func NewTokenIssuer(accessSecret, refreshSecret string, opts ...TokenOption) (*TokenIssuer, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: access and refresh token secrets are required")
	}
	if subtle.ConstantTimeCompare([]byte(accessSecret), []byte(refreshSecret)) == 1 {
		return nil, errors.New("auth: access and refresh token secrets must differ")
	}
	t := &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        defaultIssuer,
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// IssueAccessToken signs an access token for the principal. scopeOverride
// replaces the principal's resolved scope set when non-nil; passing nil
// snapshots the principal's scopes as-is.
func (t *TokenIssuer) IssueAccessToken(principal Principal, scopeOverride []Scope) (string, time.Time, error) {
	if strings.TrimSpace(principal.ID) == "" {
		return "", time.Time{}, fmt.Errorf("%w: principal id is required", ErrInvalidInput)
	}
	scopes := scopeOverride
	if scopes == nil {
		scopes = principal.ScopeList()
	}
	snapshot := make([]string, 0, len(scopes))
	for _, s := range SortScopes(scopes) {
		snapshot = append(snapshot, string(s))
	}

	now := t.now().UTC()
	exp := now.Add(t.accessTTL)
	claims := AccessClaims{
		Scopes:        snapshot,
		Email:         principal.Email,
		Name:          principal.Name,
		PrincipalKind: string(principal.Kind),
		TokenKind:     tokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefreshToken signs a refresh token for the principal. Refresh tokens
// are minted at login only and are never exchanged for another refresh
// token; once one expires, re-login is required.
func (t *TokenIssuer) IssueRefreshToken(principal Principal) (string, time.Time, error) {
	if strings.TrimSpace(principal.ID) == "" {
		return "", time.Time{}, fmt.Errorf("%w: principal id is required", ErrInvalidInput)
	}
	now := t.now().UTC()
	exp := now.Add(t.refreshTTL)
	claims := RefreshClaims{
		PrincipalKind: string(principal.Kind),
		TokenKind:     tokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, exp, nil
}

// DecodeAccessToken verifies signature and expiry and returns the embedded
// payload. Scope resolution is NOT re-run here; the snapshot in the token
// is authoritative until the token expires or is refreshed.
func (t *TokenIssuer) DecodeAccessToken(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := t.decode(token, &claims, t.accessSecret); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.TokenKind != tokenKindAccess {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// DecodeRefreshToken verifies signature and expiry of a refresh token.
func (t *TokenIssuer) DecodeRefreshToken(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := t.decode(token, &claims, t.refreshSecret); err != nil {
		return RefreshClaims{}, ErrInvalidToken
	}
	if claims.TokenKind != tokenKindRefresh {
		return RefreshClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) decode(token string, claims jwt.Claims, secret []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return ErrInvalidToken
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return ErrInvalidToken
	}
	return nil
}
