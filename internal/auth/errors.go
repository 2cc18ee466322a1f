package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: resource conflict")
	ErrInvalidInput = errors.New("auth: invalid input")

	// ErrUnauthenticated covers every credential failure: unknown email,
	// wrong password, account without a password hash, unknown API key.
	// The reasons are deliberately indistinguishable to the caller.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrUnauthorized means an authenticated principal lacks the required
	// scope or grant.
	ErrUnauthorized = errors.New("auth: unauthorized")

	// ErrInvalidToken covers bad signature, wrong artifact kind, expiry and
	// malformed structure. The reason is logged server-side only.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrAuthorizationCheck marks a persistence fault during a grant check.
	// It is distinct from a denial and must propagate as a fault; callers
	// must not collapse it into allowed or denied.
	ErrAuthorizationCheck = errors.New("auth: authorization check failed")

	// ErrMultipleMatches signals that a supposedly-unique lookup returned
	// more than one row. Data-integrity bug, not a user-facing condition.
	ErrMultipleMatches = errors.New("auth: multiple rows matched a unique lookup")
)
