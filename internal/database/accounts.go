package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grocerycompare/price-service/internal/identity"
)

// CreateAccount inserts a login account.
func (s *Store) CreateAccount(ctx context.Context, a *identity.Account) error {
	const q = `
INSERT INTO accounts (id, email, password_hash, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := s.db.Exec(ctx, q, a.ID, a.Email, a.PasswordHash, a.CreatedAt)
	if isUniqueViolation(err) {
		return identity.ErrEmailInUse
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccountByEmail selects an account by email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*identity.Account, error) {
	const q = `SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1`
	var a identity.Account
	err := s.db.QueryRow(ctx, q, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// RevokeSession records a signed-out session ID until it expires.
func (s *Store) RevokeSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	const q = `
INSERT INTO revoked_sessions (session_id, expires_at)
VALUES ($1, $2)
ON CONFLICT (session_id) DO NOTHING`
	if _, err := s.db.Exec(ctx, q, sessionID, expiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// IsSessionRevoked reports whether a session was signed out.
func (s *Store) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	var revoked bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE session_id = $1)`,
		sessionID).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}
	return revoked, nil
}

// DeleteExpiredRevocations drops revocations whose token expired before
// cutoff; such tokens fail verification on their own.
func (s *Store) DeleteExpiredRevocations(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM revoked_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}
