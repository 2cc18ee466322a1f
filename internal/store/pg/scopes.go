package pg

import (
	"context"
	"database/sql"
	"errors"

	"voltmesh.io/internal/auth"
	"voltmesh.io/internal/ids"
)

func (s *Store) DirectScopes(ctx context.Context, principalID string) ([]auth.Scope, error) {
	rows, err := s.db.QueryContext(ctx, `
		select scope
		from scope_grants
		where principal_id = $1
	`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []auth.Scope
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, err
		}
		scopes = append(scopes, auth.Scope(scope))
	}
	return scopes, rows.Err()
}

func (s *Store) AddDirectScope(ctx context.Context, principalID string, scope auth.Scope) error {
	_, err := s.db.ExecContext(ctx, `
		insert into scope_grants (principal_id, scope)
		values ($1, $2)
		on conflict do nothing
	`, principalID, string(scope))
	return mapWriteError(err)
}

func (s *Store) RemoveDirectScope(ctx context.Context, principalID string, scope auth.Scope) error {
	res, err := s.db.ExecContext(ctx, `
		delete from scope_grants
		where principal_id = $1 and scope = $2
	`, principalID, string(scope))
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// ReplaceDirectScopes applies the computed delta inside one transaction so
// concurrent resolvers never observe a half-applied scope set.
func (s *Store) ReplaceDirectScopes(ctx context.Context, principalID string, add, remove []auth.Scope) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, scope := range remove {
		if _, err := tx.ExecContext(ctx, `
			delete from scope_grants
			where principal_id = $1 and scope = $2
		`, principalID, string(scope)); err != nil {
			return err
		}
	}
	for _, scope := range add {
		if _, err := tx.ExecContext(ctx, `
			insert into scope_grants (principal_id, scope)
			values ($1, $2)
			on conflict do nothing
		`, principalID, string(scope)); err != nil {
			return mapWriteError(err)
		}
	}
	return tx.Commit()
}

func (s *Store) CreateRole(ctx context.Context, name string) (auth.AccessRole, error) {
	var role auth.AccessRole
	err := s.db.QueryRowContext(ctx, `
		insert into access_roles (id, name)
		values ($1, $2)
		returning id, name, created_at, updated_at
	`, ids.New(), name).Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return auth.AccessRole{}, mapWriteError(err)
	}
	return role, nil
}

// SetRoleScopes replaces the role's scope links with the given set.
func (s *Store) SetRoleScopes(ctx context.Context, roleID string, scopes []auth.Scope) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from access_roles where id = $1`, roleID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `delete from role_scopes where role_id = $1`, roleID); err != nil {
		return err
	}
	for _, scope := range scopes {
		if _, err := tx.ExecContext(ctx, `
			insert into role_scopes (role_id, scope)
			values ($1, $2)
		`, roleID, string(scope)); err != nil {
			return mapWriteError(err)
		}
	}
	return tx.Commit()
}

// RoleScopes returns the scopes a role confers. A missing role is
// ErrNotFound so the resolver can tell a dangling assignment from an empty
// role.
func (s *Store) RoleScopes(ctx context.Context, roleID string) ([]auth.Scope, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `select 1 from access_roles where id = $1`, roleID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select scope
		from role_scopes
		where role_id = $1
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []auth.Scope
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, err
		}
		scopes = append(scopes, auth.Scope(scope))
	}
	return scopes, rows.Err()
}

func (s *Store) AssignRole(ctx context.Context, principalID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into role_assignments (principal_id, role_id)
		values ($1, $2)
		on conflict do nothing
	`, principalID, roleID)
	return mapWriteError(err)
}

func (s *Store) RemoveRoleAssignment(ctx context.Context, principalID, roleID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from role_assignments
		where principal_id = $1 and role_id = $2
	`, principalID, roleID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) RoleAssignments(ctx context.Context, principalID string) ([]auth.RoleAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select principal_id, role_id, created_at
		from role_assignments
		where principal_id = $1
		order by role_id
	`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []auth.RoleAssignment
	for rows.Next() {
		var a auth.RoleAssignment
		if err := rows.Scan(&a.PrincipalID, &a.RoleID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
