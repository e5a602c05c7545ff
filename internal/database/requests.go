package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grocerycompare/price-service/internal/access"
)

const requestColumns = `id, email, password_hash, status, requested_at, reviewed_by, reviewed_at`

func reviewColumns(s access.State) (*string, *time.Time) {
	r, ok := access.ReviewOf(s)
	if !ok {
		return nil, nil
	}
	by, at := r.By, r.At
	return &by, &at
}

// CreateRequest inserts a pending access request. A second pending
// request for the same email violates user_requests_one_pending_idx.
func (s *Store) CreateRequest(ctx context.Context, r *access.Request) error {
	const q = `
INSERT INTO user_requests (id, email, password_hash, status, requested_at, reviewed_by, reviewed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	by, at := reviewColumns(r.State)
	_, err := s.db.Exec(ctx, q, r.ID, r.Email, r.PasswordHash, string(r.State.Status()), r.RequestedAt, by, at)
	if isUniqueViolation(err) {
		return access.ErrDuplicatePending
	}
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row) (*access.Request, error) {
	var (
		r          access.Request
		status     string
		reviewedBy *string
		reviewedAt *time.Time
	)
	if err := row.Scan(&r.ID, &r.Email, &r.PasswordHash, &status, &r.RequestedAt, &reviewedBy, &reviewedAt); err != nil {
		return nil, err
	}
	state, err := access.StateFromRecord(status, reviewedBy, reviewedAt)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", r.ID, err)
	}
	r.State = state
	return &r, nil
}

// GetRequest selects a request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (*access.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM user_requests WHERE id = $1`
	r, err := scanRequest(s.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, access.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

func (s *Store) queryRequests(ctx context.Context, q string, args ...any) ([]access.Request, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var out []access.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListRequests returns requests newest first, all of them when status is empty.
func (s *Store) ListRequests(ctx context.Context, status access.Status) ([]access.Request, error) {
	if status == "" {
		return s.queryRequests(ctx, `SELECT `+requestColumns+` FROM user_requests ORDER BY requested_at DESC`)
	}
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM user_requests WHERE status = $1 ORDER BY requested_at DESC`,
		string(status))
}

// ListRequestsByEmail returns the requests for email newest first.
func (s *Store) ListRequestsByEmail(ctx context.Context, email string) ([]access.Request, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM user_requests WHERE email = $1 ORDER BY requested_at DESC`,
		email)
}

// UpdateRequest writes the state, review and digest of r.
func (s *Store) UpdateRequest(ctx context.Context, r *access.Request) error {
	const q = `
UPDATE user_requests
SET status = $2, reviewed_by = $3, reviewed_at = $4, password_hash = $5
WHERE id = $1`
	by, at := reviewColumns(r.State)
	tag, err := s.db.Exec(ctx, q, r.ID, string(r.State.Status()), by, at, r.PasswordHash)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return access.ErrRequestNotFound
	}
	return nil
}

// DeleteRequest removes a request by ID.
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM user_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return access.ErrRequestNotFound
	}
	return nil
}
