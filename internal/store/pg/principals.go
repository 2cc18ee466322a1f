package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voltmesh.io/internal/auth"
)

func (s *Store) FindUser(ctx context.Context, id string) (auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, first_name, last_name, coalesce(password_hash, ''), status, created_at, updated_at
		from users
		where id = $1
	`, id).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return u, nil
}

// FindUserByEmail matches the stored email byte-for-byte. The email column
// carries a unique index; more than one row here is a data-integrity bug
// and surfaces as ErrMultipleMatches rather than an arbitrary pick.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, email, first_name, last_name, coalesce(password_hash, ''), status, created_at, updated_at
		from users
		where email = $1
	`, email)
	if err != nil {
		return auth.User{}, err
	}
	defer rows.Close()

	var (
		u     auth.User
		found bool
	)
	for rows.Next() {
		if found {
			return auth.User{}, fmt.Errorf("%w: email %s", auth.ErrMultipleMatches, email)
		}
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return auth.User{}, err
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return auth.User{}, err
	}
	if !found {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindAPIKey(ctx context.Context, id string) (auth.APIKey, error) {
	var k auth.APIKey
	err := s.db.QueryRowContext(ctx, `
		select id, name, secret_hash, created_at
		from api_keys
		where id = $1
	`, id).Scan(&k.ID, &k.Name, &k.SecretHash, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.APIKey{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.APIKey{}, err
	}
	return k, nil
}

// FindAPIKeyBySecretHash looks a key up by the hash of the presented raw
// key. Same multiple-row policy as FindUserByEmail.
func (s *Store) FindAPIKeyBySecretHash(ctx context.Context, secretHash string) (auth.APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, secret_hash, created_at
		from api_keys
		where secret_hash = $1
	`, secretHash)
	if err != nil {
		return auth.APIKey{}, err
	}
	defer rows.Close()

	var (
		k     auth.APIKey
		found bool
	)
	for rows.Next() {
		if found {
			return auth.APIKey{}, fmt.Errorf("%w: api key secret hash", auth.ErrMultipleMatches)
		}
		if err := rows.Scan(&k.ID, &k.Name, &k.SecretHash, &k.CreatedAt); err != nil {
			return auth.APIKey{}, err
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return auth.APIKey{}, err
	}
	if !found {
		return auth.APIKey{}, auth.ErrNotFound
	}
	return k, nil
}

func (s *Store) FindLocation(ctx context.Context, id string) (auth.Location, error) {
	var l auth.Location
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, name, created_at, updated_at
		from locations
		where id = $1
	`, id).Scan(&l.ID, &l.OrganizationID, &l.Name, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Location{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Location{}, err
	}
	return l, nil
}
