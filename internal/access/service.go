package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/grocerycompare/price-service/internal/crypto"
	"github.com/grocerycompare/price-service/internal/identity"
	"github.com/grocerycompare/price-service/internal/metrics"
	"github.com/grocerycompare/price-service/internal/pkg/cuid2"
)

var tracer = otel.Tracer("github.com/grocerycompare/price-service/internal/access")

// Store persists requests and app users. InTx runs fn against a store
// bound to one transaction; fn's error rolls it back.
type Store interface {
	CreateRequest(ctx context.Context, r *Request) error
	// GetRequest returns ErrRequestNotFound when absent.
	GetRequest(ctx context.Context, id string) (*Request, error)
	// ListRequests returns requests newest first. An empty status lists all.
	ListRequests(ctx context.Context, status Status) ([]Request, error)
	// ListRequestsByEmail returns the requests for email newest first.
	ListRequestsByEmail(ctx context.Context, email string) ([]Request, error)
	UpdateRequest(ctx context.Context, r *Request) error
	DeleteRequest(ctx context.Context, id string) error

	// GetUser returns ErrUserNotFound when absent.
	GetUser(ctx context.Context, id string) (*User, error)
	InsertUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	// DeleteUser is a no-op when the user does not exist.
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)

	InTx(ctx context.Context, fn func(Store) error) error
}

// IdentityProvider authenticates accounts.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (identity.Session, error)
	CreateAccount(ctx context.Context, email, password string) (identity.Session, error)
	SignOut(ctx context.Context, token string) error
}

// Options tunes the Service.
type Options struct {
	// EagerTempUsers creates a placeholder user on approval so the
	// requester shows up in the user list before first login.
	EagerTempUsers bool
	Logger         *zerolog.Logger
	Metrics        *metrics.Recorder
}

// Service runs the access request workflow.
type Service struct {
	store   Store
	idp     IdentityProvider
	opts    Options
	logger  *zerolog.Logger
	metrics *metrics.Recorder
	digest  func(string) (string, error)
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, idp IdentityProvider, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:   store,
		idp:     idp,
		opts:    opts,
		logger:  logger,
		metrics: opts.Metrics,
		digest:  crypto.HashPassword,
		now:     time.Now,
	}
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "access."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Submit files a new pending request for email. It fails when a request
// for the email is already pending or was rejected.
func (s *Service) Submit(ctx context.Context, email, password string) (req *Request, err error) {
	ctx, span := s.span(ctx, "Submit")
	defer func() { endSpan(span, err) }()

	email = identity.NormalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	existing, err := s.store.ListRequestsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if e := blockingRequestError(existing); e != nil {
		return nil, e
	}

	hash, err := s.digest(password)
	if err != nil {
		return nil, fmt.Errorf("digest password: %w", err)
	}

	req = &Request{
		ID:           cuid2.New(cuid2.PrefixRequest),
		Email:        email,
		PasswordHash: hash,
		State:        Pending{},
		RequestedAt:  s.now().UTC(),
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.metrics.RecordAccessRequest("submitted")
	s.logger.Info().Str("requestID", req.ID).Str("email", email).Msg("Access request submitted")
	return req, nil
}

func blockingRequestError(existing []Request) error {
	rejected := false
	for _, r := range existing {
		switch r.State.(type) {
		case Pending:
			return ErrDuplicatePending
		case Rejected:
			rejected = true
		}
	}
	if rejected {
		return ErrPreviouslyRejected
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

// Approve marks a pending request approved by admin. With EagerTempUsers
// the placeholder user is written in the same transaction.
func (s *Service) Approve(ctx context.Context, id, admin string) (req *Request, err error) {
	ctx, span := s.span(ctx, "Approve", attribute.String("request.id", id))
	defer func() { endSpan(span, err) }()

	err = s.store.InTx(ctx, func(tx Store) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := r.Approve(admin, now); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, r); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if s.opts.EagerTempUsers {
			if err := ensureTempUser(ctx, tx, r.Email, now); err != nil {
				return err
			}
		}
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAccessRequest("approved")
	s.logger.Info().Str("requestID", id).Str("admin", admin).Str("email", req.Email).Msg("Access request approved")
	return req, nil
}

func ensureTempUser(ctx context.Context, tx Store, email string, now time.Time) error {
	tempID := TempUserID(email)
	_, err := tx.GetUser(ctx, tempID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, ErrUserNotFound):
		return fmt.Errorf("get temp user: %w", err)
	}
	u := &User{
		ID:        tempID,
		Email:     email,
		Pending:   true,
		CreatedAt: now,
		LastLogin: now,
	}
	if err := tx.InsertUser(ctx, u); err != nil {
		return fmt.Errorf("insert temp user: %w", err)
	}
	return nil
}

// Reject marks a pending request rejected and discards its password digest.
func (s *Service) Reject(ctx context.Context, id, admin string) (req *Request, err error) {
	ctx, span := s.span(ctx, "Reject", attribute.String("request.id", id))
	defer func() { endSpan(span, err) }()

	err = s.store.InTx(ctx, func(tx Store) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Reject(admin, s.now().UTC()); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, r); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAccessRequest("rejected")
	s.logger.Info().Str("requestID", id).Str("admin", admin).Str("email", req.Email).Msg("Access request rejected")
	return req, nil
}

// Delete removes a decided request. Pending requests must be reviewed first.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.span(ctx, "Delete", attribute.String("request.id", id))
	defer func() { endSpan(span, err) }()

	err = s.store.InTx(ctx, func(tx Store) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if _, ok := r.State.(Pending); ok {
			return ErrPendingDelete
		}
		return tx.DeleteRequest(ctx, id)
	})
	if err != nil {
		return err
	}

	s.metrics.RecordAccessRequest("deleted")
	s.logger.Info().Str("requestID", id).Msg("Access request deleted")
	return nil
}

// List returns requests newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status) ([]Request, error) {
	return s.store.ListRequests(ctx, status)
}

// SignIn authenticates against the identity provider. When the account
// does not exist yet, the newest access request for the email decides:
// pending and rejected requests fail with a user-facing message, and an
// approved request creates the account with the supplied password.
func (s *Service) SignIn(ctx context.Context, email, password string) (sess identity.Session, err error) {
	ctx, span := s.span(ctx, "SignIn")
	defer func() { endSpan(span, err) }()

	email = identity.NormalizeEmail(email)
	sess, err = s.idp.SignIn(ctx, email, password)
	if err == nil {
		s.metrics.RecordSignIn("ok")
		return s.finishSignIn(ctx, sess)
	}
	if !identity.IsAuthError(err) {
		s.metrics.RecordSignIn("error")
		return identity.Session{}, err
	}
	authErr := err

	reqs, err := s.store.ListRequestsByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordSignIn("error")
		return identity.Session{}, fmt.Errorf("list requests: %w", err)
	}
	if len(reqs) == 0 {
		s.metrics.RecordSignIn("denied")
		return identity.Session{}, authErr
	}

	switch reqs[0].State.(type) {
	case Pending:
		s.metrics.RecordSignIn("pending")
		return identity.Session{}, ErrRequestPending
	case Rejected:
		s.metrics.RecordSignIn("rejected")
		return identity.Session{}, ErrRequestRejected
	}

	// Approved: only a missing account is created. A wrong password for
	// an existing account stays a credential failure.
	if !errors.Is(authErr, identity.ErrAccountNotFound) {
		s.metrics.RecordSignIn("denied")
		return identity.Session{}, authErr
	}

	sess, err = s.idp.CreateAccount(ctx, email, password)
	if errors.Is(err, identity.ErrWeakPassword) {
		s.metrics.RecordSignIn("weak_password")
		return identity.Session{}, ErrWeakPassword
	}
	if err != nil {
		s.metrics.RecordSignIn("error")
		return identity.Session{}, fmt.Errorf("create account: %w", err)
	}

	s.metrics.RecordSignIn("account_created")
	s.logger.Info().Str("userID", sess.UserID).Str("email", email).Msg("Account created from approved request")
	return s.finishSignIn(ctx, sess)
}

func (s *Service) finishSignIn(ctx context.Context, sess identity.Session) (identity.Session, error) {
	if err := s.MaterializeUser(ctx, sess.UserID, sess.Email); err != nil {
		return identity.Session{}, err
	}
	return sess, nil
}

// MaterializeUser writes the app user for an authenticated login. A new
// user inherits the contributor flag and creation time of its placeholder,
// which is removed in the same transaction. An existing user gets its
// last login refreshed and its pending marker cleared.
func (s *Service) MaterializeUser(ctx context.Context, userID, email string) (err error) {
	ctx, span := s.span(ctx, "MaterializeUser", attribute.String("user.id", userID))
	defer func() { endSpan(span, err) }()

	email = identity.NormalizeEmail(email)
	tempID := TempUserID(email)
	path := ""

	err = s.store.InTx(ctx, func(tx Store) error {
		now := s.now().UTC()
		u, err := tx.GetUser(ctx, userID)
		if err == nil {
			u.LastLogin = now
			u.Pending = false
			// a grant made on the placeholder after the real row existed
			// carries over before the placeholder goes
			temp, err := tx.GetUser(ctx, tempID)
			switch {
			case err == nil:
				u.Contributor = u.Contributor || temp.Contributor
			case !errors.Is(err, ErrUserNotFound):
				return fmt.Errorf("get temp user: %w", err)
			}
			if err := tx.UpdateUser(ctx, u); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			path = "updated"
			return tx.DeleteUser(ctx, tempID)
		}
		if !errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("get user: %w", err)
		}

		nu := &User{ID: userID, Email: email, CreatedAt: now, LastLogin: now}
		path = "created"
		temp, err := tx.GetUser(ctx, tempID)
		switch {
		case err == nil:
			nu.Contributor = temp.Contributor
			nu.CreatedAt = temp.CreatedAt
			path = "merged"
			if err := tx.DeleteUser(ctx, tempID); err != nil {
				return fmt.Errorf("delete temp user: %w", err)
			}
		case !errors.Is(err, ErrUserNotFound):
			return fmt.Errorf("get temp user: %w", err)
		}
		if err := tx.InsertUser(ctx, nu); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("userID", userID).Msg("Failed to materialize user")
		return err
	}

	s.metrics.RecordUserMaterialized(path)
	s.logger.Debug().Str("userID", userID).Str("path", path).Msg("User materialized")
	return nil
}

// SignOut ends the session for token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.idp.SignOut(ctx, token)
}

// GetUser returns the app user with id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.store.GetUser(ctx, id)
}

// ListUsers returns all app users, placeholders included.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// SetContributor grants or revokes the right to submit price entries.
func (s *Service) SetContributor(ctx context.Context, id string, contributor bool) (*User, error) {
	var out *User
	err := s.store.InTx(ctx, func(tx Store) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		u.Contributor = contributor
		if err := tx.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("userID", id).Bool("contributor", contributor).Msg("Contributor flag changed")
	return out, nil
}

// IsContributor reports whether the user may submit entries. Unknown
// users are not contributors.
func (s *Service) IsContributor(ctx context.Context, id string) (bool, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Contributor, nil
}
