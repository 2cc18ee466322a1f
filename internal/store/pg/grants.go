package pg

import (
	"context"

	"voltmesh.io/internal/auth"
)

func (s *Store) OrganizationGrants(ctx context.Context, userID, organizationID string) ([]auth.OrganizationGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select user_id, organization_id, kind, created_at
		from organization_grants
		where user_id = $1 and organization_id = $2
		order by kind
	`, userID, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []auth.OrganizationGrant
	for rows.Next() {
		var (
			g    auth.OrganizationGrant
			kind string
		)
		if err := rows.Scan(&g.UserID, &g.OrganizationID, &kind, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Kind = auth.OrganizationGrantKind(kind)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *Store) HasOrganizationGrant(ctx context.Context, userID, organizationID string, kind auth.OrganizationGrantKind) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		select 1
		from organization_grants
		where user_id = $1 and organization_id = $2 and kind = $3
	`, userID, organizationID, string(kind)).Scan(&one)
	if err == nil {
		return true, nil
	}
	if isNoRows(err) {
		return false, nil
	}
	return false, err
}

// ApplyOrganizationGrantDelta runs the delete-then-insert pair in one
// transaction. Readers see the old set or the new set, never a mix; pairs
// for other users or organizations are untouched.
func (s *Store) ApplyOrganizationGrantDelta(ctx context.Context, userID, organizationID string, add, remove []auth.OrganizationGrantKind) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, kind := range remove {
		if _, err := tx.ExecContext(ctx, `
			delete from organization_grants
			where user_id = $1 and organization_id = $2 and kind = $3
		`, userID, organizationID, string(kind)); err != nil {
			return err
		}
	}
	for _, kind := range add {
		if _, err := tx.ExecContext(ctx, `
			insert into organization_grants (user_id, organization_id, kind)
			values ($1, $2, $3)
			on conflict do nothing
		`, userID, organizationID, string(kind)); err != nil {
			return mapWriteError(err)
		}
	}
	return tx.Commit()
}

func (s *Store) LocationGrants(ctx context.Context, userID, locationID string) ([]auth.LocationGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select user_id, location_id, kind, created_at
		from location_grants
		where user_id = $1 and location_id = $2
		order by kind
	`, userID, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []auth.LocationGrant
	for rows.Next() {
		var (
			g    auth.LocationGrant
			kind string
		)
		if err := rows.Scan(&g.UserID, &g.LocationID, &kind, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Kind = auth.LocationGrantKind(kind)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *Store) HasLocationGrant(ctx context.Context, userID, locationID string, kind auth.LocationGrantKind) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		select 1
		from location_grants
		where user_id = $1 and location_id = $2 and kind = $3
	`, userID, locationID, string(kind)).Scan(&one)
	if err == nil {
		return true, nil
	}
	if isNoRows(err) {
		return false, nil
	}
	return false, err
}

func (s *Store) ApplyLocationGrantDelta(ctx context.Context, userID, locationID string, add, remove []auth.LocationGrantKind) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, kind := range remove {
		if _, err := tx.ExecContext(ctx, `
			delete from location_grants
			where user_id = $1 and location_id = $2 and kind = $3
		`, userID, locationID, string(kind)); err != nil {
			return err
		}
	}
	for _, kind := range add {
		if _, err := tx.ExecContext(ctx, `
			insert into location_grants (user_id, location_id, kind)
			values ($1, $2, $3)
			on conflict do nothing
		`, userID, locationID, string(kind)); err != nil {
			return mapWriteError(err)
		}
	}
	return tx.Commit()
}
