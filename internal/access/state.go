// Package access implements the user onboarding workflow: access requests
// reviewed by an administrator and the lazy materialization of app users
// on first sign-in.
package access

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status is the stored form of a request state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status string. The empty string is not a status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown request status %q", s)
	}
}

// Review records who decided a request and when.
type Review struct {
	By string
	At time.Time
}

// State is the lifecycle position of a request: Pending, Approved or
// Rejected. Approved and Rejected are only reachable from Pending.
type State interface {
	Status() Status
	sealed()
}

// Pending is the initial state.
type Pending struct{}

// Approved is terminal; the requester may now create an account.
type Approved struct{ Review }

// Rejected is terminal; no account can be created from the request.
type Rejected struct{ Review }

func (Pending) Status() Status  { return StatusPending }
func (Approved) Status() Status { return StatusApproved }
func (Rejected) Status() Status { return StatusRejected }

func (Pending) sealed()  {}
func (Approved) sealed() {}
func (Rejected) sealed() {}

// Approve moves a pending request to approved.
func (Pending) Approve(by string, at time.Time) Approved {
	return Approved{Review{By: by, At: at}}
}

// Reject moves a pending request to rejected.
func (Pending) Reject(by string, at time.Time) Rejected {
	return Rejected{Review{By: by, At: at}}
}

// ReviewOf returns the review of a decided state.
func ReviewOf(s State) (Review, bool) {
	switch st := s.(type) {
	case Approved:
		return st.Review, true
	case Rejected:
		return st.Review, true
	default:
		return Review{}, false
	}
}

// StateFromRecord rebuilds a State from stored columns. Decided states
// must carry a review timestamp.
func StateFromRecord(status string, reviewedBy *string, reviewedAt *time.Time) (State, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if st == StatusPending {
		return Pending{}, nil
	}
	if reviewedAt == nil {
		return nil, fmt.Errorf("%s request without review time", st)
	}
	r := Review{At: *reviewedAt}
	if reviewedBy != nil {
		r.By = *reviewedBy
	}
	if st == StatusApproved {
		return Approved{r}, nil
	}
	return Rejected{r}, nil
}

// Request is a user's request for access.
type Request struct {
	ID           string
	Email        string
	PasswordHash string // one-way digest; cleared on rejection
	State        State
	RequestedAt  time.Time
}

// Approve transitions r to approved.
func (r *Request) Approve(by string, at time.Time) error {
	p, ok := r.State.(Pending)
	if !ok {
		return ErrNotPending
	}
	r.State = p.Approve(by, at)
	return nil
}

// Reject transitions r to rejected and drops its password digest.
func (r *Request) Reject(by string, at time.Time) error {
	p, ok := r.State.(Pending)
	if !ok {
		return ErrNotPending
	}
	r.State = p.Reject(by, at)
	r.PasswordHash = ""
	return nil
}

// TempUserPrefix marks user records created at approval time, before the
// requester's first login.
const TempUserPrefix = "pending_"

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// TempUserID is the surrogate user ID for email before first login.
func TempUserID(email string) string {
	return TempUserPrefix + nonAlnum.ReplaceAllString(email, "_")
}

// User is an application account record.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Contributor bool      `json:"isDataContributor"`
	Pending     bool      `json:"isPending"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLogin   time.Time `json:"lastLogin"`
}

// IsTemporary reports whether u is a pre-login placeholder.
func (u User) IsTemporary() bool {
	return strings.HasPrefix(u.ID, TempUserPrefix)
}
