// Package identity is the account and session provider. It is the only
// component that decides whether a password is correct.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrAccountNotFound indicates no account exists for the email.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidCredentials indicates the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWeakPassword indicates the password is below the minimum strength.
	ErrWeakPassword = errors.New("password should be at least 6 characters")

	// ErrEmailInUse indicates an account with the email already exists.
	ErrEmailInUse = errors.New("email already in use")

	// ErrInvalidSession indicates a missing, malformed, expired or revoked token.
	ErrInvalidSession = errors.New("invalid session")
)

// MinPasswordLength is the shortest password CreateAccount accepts.
const MinPasswordLength = 6

// Account is a provider-side login identity.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is an authenticated login.
type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists accounts and revoked sessions.
type Store interface {
	// CreateAccount inserts a; it returns ErrEmailInUse on duplicate email.
	CreateAccount(ctx context.Context, a *Account) error
	// GetAccountByEmail returns ErrAccountNotFound when absent.
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	RevokeSession(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Event is a session change.
type Event int

const (
	SignedIn Event = iota + 1
	SignedOut
)

func (e Event) String() string {
	switch e {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// Observer is notified after sessions start or end.
type Observer func(ctx context.Context, event Event, s Session)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
