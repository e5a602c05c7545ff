package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grocerycompare/price-service/internal/crypto"
	"github.com/grocerycompare/price-service/internal/pkg/cuid2"
)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Provider issues HS256 session tokens for accounts held in a Store.
type Provider struct {
	store   Store
	signKey []byte
	ttl     time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	observers []Observer
}

// NewProvider constructs a Provider.
func NewProvider(store Store, signKey []byte, ttl time.Duration) *Provider {
	return &Provider{store: store, signKey: signKey, ttl: ttl, now: time.Now}
}

// OnSessionChange registers an observer for sign-in and sign-out.
func (p *Provider) OnSessionChange(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

func (p *Provider) notify(ctx context.Context, e Event, s Session) {
	p.mu.RLock()
	observers := p.observers
	p.mu.RUnlock()
	for _, o := range observers {
		o(ctx, e, s)
	}
}

// CreateAccount registers email with password and signs it in.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (Session, error) {
	email = NormalizeEmail(email)
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Session{}, ErrWeakPassword
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	a := &Account{
		ID:           cuid2.New(cuid2.PrefixAccount),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.store.CreateAccount(ctx, a); err != nil {
		return Session{}, err
	}
	return p.startSession(ctx, a)
}

// SignIn checks the password for email and starts a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	a, err := p.store.GetAccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return Session{}, err
	}

	ok, err := crypto.VerifyPassword(password, a.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	return p.startSession(ctx, a)
}

func (p *Provider) startSession(ctx context.Context, a *Account) (Session, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	sid := cuid2.Random(cuid2.PrefixSession, 24)

	claims := sessionClaims{
		Email: a.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signKey)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}

	s := Session{ID: sid, UserID: a.ID, Email: a.Email, Token: signed, ExpiresAt: exp}
	p.notify(ctx, SignedIn, s)
	return s, nil
}

func (p *Provider) parse(token string, opts ...jwt.ParserOption) (*sessionClaims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.signKey, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return &claims, nil
}

// Verify validates token and returns its session.
func (p *Provider) Verify(ctx context.Context, token string) (Session, error) {
	claims, err := p.parse(token)
	if err != nil {
		return Session{}, err
	}

	revoked, err := p.store.IsSessionRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, fmt.Errorf("check session: %w", err)
	}
	if revoked {
		return Session{}, ErrInvalidSession
	}
	return claimsSession(claims, token), nil
}

// SignOut revokes token. Expired tokens are accepted so a client can
// always end its session.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := p.store.RevokeSession(ctx, claims.ID, exp); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	p.notify(ctx, SignedOut, claimsSession(claims, token))
	return nil
}

func claimsSession(c *sessionClaims, token string) Session {
	s := Session{ID: c.ID, UserID: c.Subject, Email: c.Email, Token: token}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

// IsAuthError reports whether err is a credential failure rather than an
// infrastructure error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrInvalidCredentials)
}
