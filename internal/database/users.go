package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/grocerycompare/price-service/internal/access"
)

const userColumns = `id, email, is_data_contributor, is_pending, created_at, last_login`

func scanUser(row pgx.Row) (*access.User, error) {
	var u access.User
	if err := row.Scan(&u.ID, &u.Email, &u.Contributor, &u.Pending, &u.CreatedAt, &u.LastLogin); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser selects an app user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*access.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM app_users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, access.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// InsertUser inserts a new app user row.
func (s *Store) InsertUser(ctx context.Context, u *access.User) error {
	const q = `
INSERT INTO app_users (id, email, is_data_contributor, is_pending, created_at, last_login)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.Exec(ctx, q, u.ID, u.Email, u.Contributor, u.Pending, u.CreatedAt, u.LastLogin); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateUser writes the mutable fields of u.
func (s *Store) UpdateUser(ctx context.Context, u *access.User) error {
	const q = `
UPDATE app_users
SET email = $2, is_data_contributor = $3, is_pending = $4, last_login = $5
WHERE id = $1`
	tag, err := s.db.Exec(ctx, q, u.ID, u.Email, u.Contributor, u.Pending, u.LastLogin)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return access.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes an app user; a missing row is not an error.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM app_users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ListUsers returns every app user ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]access.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM app_users ORDER BY email, id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []access.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// DeleteSupersededTempUsers removes placeholder users whose email already
// has a real user record and returns how many were removed.
func (s *Store) DeleteSupersededTempUsers(ctx context.Context) (int64, error) {
	const q = `
DELETE FROM app_users t
WHERE t.id LIKE $1
AND EXISTS (
    SELECT 1 FROM app_users u
    WHERE u.email = t.email AND u.id NOT LIKE $1
)`
	tag, err := s.db.Exec(ctx, q, `pending\_%`)
	if err != nil {
		return 0, fmt.Errorf("delete superseded temp users: %w", err)
	}
	return tag.RowsAffected(), nil
}
