package access

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerycompare/price-service/internal/identity"
)

// memStore keeps committed state in maps; InTx works on a copy and swaps
// it in only when fn succeeds.
type memStore struct {
	mu       *sync.Mutex
	requests map[string]Request
	users    map[string]User
	failOn   string
}

func newMemStore() *memStore {
	return &memStore{mu: &sync.Mutex{}, requests: map[string]Request{}, users: map[string]User{}}
}

var errInjected = errors.New("injected failure")

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		return errInjected
	}
	return nil
}

func (m *memStore) CreateRequest(_ context.Context, r *Request) error {
	if err := m.fail("CreateRequest"); err != nil {
		return err
	}
	m.requests[r.ID] = *r
	return nil
}

func (m *memStore) GetRequest(_ context.Context, id string) (*Request, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return &r, nil
}

func (m *memStore) ListRequests(_ context.Context, status Status) ([]Request, error) {
	var out []Request
	for _, r := range m.requests {
		if status == "" || r.State.Status() == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (m *memStore) ListRequestsByEmail(ctx context.Context, email string) ([]Request, error) {
	all, _ := m.ListRequests(ctx, "")
	var out []Request
	for _, r := range all {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) UpdateRequest(_ context.Context, r *Request) error {
	if err := m.fail("UpdateRequest"); err != nil {
		return err
	}
	m.requests[r.ID] = *r
	return nil
}

func (m *memStore) DeleteRequest(_ context.Context, id string) error {
	delete(m.requests, id)
	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) InsertUser(_ context.Context, u *User) error {
	if err := m.fail("InsertUser"); err != nil {
		return err
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) UpdateUser(_ context.Context, u *User) error {
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	delete(m.users, id)
	return nil
}

func (m *memStore) ListUsers(_ context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) InTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memStore{mu: m.mu, requests: map[string]Request{}, users: map[string]User{}, failOn: m.failOn}
	for k, v := range m.requests {
		tx.requests[k] = v
	}
	for k, v := range m.users {
		tx.users[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.requests, m.users = tx.requests, tx.users
	return nil
}

type fakeIDP struct {
	accounts map[string]string // email -> password
	ids      map[string]string
	next     int
}

func newFakeIDP() *fakeIDP {
	return &fakeIDP{accounts: map[string]string{}, ids: map[string]string{}}
}

func (f *fakeIDP) SignIn(_ context.Context, email, password string) (identity.Session, error) {
	pw, ok := f.accounts[email]
	if !ok {
		return identity.Session{}, identity.ErrAccountNotFound
	}
	if pw != password {
		return identity.Session{}, identity.ErrInvalidCredentials
	}
	return identity.Session{UserID: f.ids[email], Email: email, Token: "tok-" + f.ids[email]}, nil
}

func (f *fakeIDP) CreateAccount(ctx context.Context, email, password string) (identity.Session, error) {
	if len(password) < identity.MinPasswordLength {
		return identity.Session{}, identity.ErrWeakPassword
	}
	if _, ok := f.accounts[email]; ok {
		return identity.Session{}, identity.ErrEmailInUse
	}
	f.next++
	f.accounts[email] = password
	f.ids[email] = "uid_" + string(rune('a'+f.next))
	return f.SignIn(ctx, email, password)
}

func (f *fakeIDP) SignOut(context.Context, string) error { return nil }

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestService(eager bool) (*Service, *memStore, *fakeIDP) {
	store := newMemStore()
	idp := newFakeIDP()
	svc := NewService(store, idp, Options{EagerTempUsers: eager})
	c := &clock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	svc.now = c.now
	svc.digest = func(p string) (string, error) { return "digest:" + p, nil }
	return svc, store, idp
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(false)

	req, err := svc.Submit(ctx, " Anna@Example.SE ", "hemligt")
	require.NoError(t, err)
	assert.Equal(t, "anna@example.se", req.Email)
	assert.Equal(t, StatusPending, req.State.Status())
	assert.Equal(t, "digest:hemligt", req.PasswordHash)
	assert.NotEqual(t, "hemligt", req.PasswordHash)
	assert.Regexp(t, `^req_`, req.ID)
	assert.Len(t, store.requests, 1)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService(false)
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "secret1", ErrInvalidEmail},
		{"no at sign", "anna.example.se", "secret1", ErrInvalidEmail},
		{"nothing after at", "anna@", "secret1", ErrInvalidEmail},
		{"empty password", "anna@example.se", "", ErrEmptyPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.email, tt.password)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitDuplicatePending(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(false)

	_, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "A@B.dk", "secret2")
	require.ErrorIs(t, err, ErrDuplicatePending)
	assert.Equal(t, "A request for this email is already pending approval", err.Error())
	assert.Len(t, store.requests, 1)
}

func TestSubmitAfterRejection(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(false)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "a@b.dk", "secret1")
	require.ErrorIs(t, err, ErrPreviouslyRejected)
}

func TestSubmitAfterApprovalIsAllowed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(false)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "a@b.dk", "secret2")
	require.NoError(t, err)
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(false)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)

	got, err := svc.Approve(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)
	approved, ok := got.State.(Approved)
	require.True(t, ok)
	assert.Equal(t, "admin@example.com", approved.By)
	assert.False(t, approved.At.IsZero())
	assert.Equal(t, "digest:secret1", got.PasswordHash)

	assert.Empty(t, store.users, "no placeholder without eager temp users")
}

func TestApproveEagerTempUser(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(true)

	req, err := svc.Submit(ctx, "anna.b@example.se", "secret1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	u, ok := store.users["pending_anna_b_example_se"]
	require.True(t, ok)
	assert.True(t, u.Pending)
	assert.False(t, u.Contributor)
	assert.True(t, u.IsTemporary())
}

func TestApproveIsAtomic(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(true)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)

	store.failOn = "InsertUser"
	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.ErrorIs(t, err, errInjected)

	stored := store.requests[req.ID]
	assert.Equal(t, StatusPending, stored.State.Status(), "request must stay pending when the placeholder write fails")
	assert.Empty(t, store.users)
}

func TestReviewOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(false)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.ErrorIs(t, err, ErrNotPending)
	_, err = svc.Reject(ctx, req.ID, "admin@example.com")
	require.ErrorIs(t, err, ErrNotPending)

	_, err = svc.Approve(ctx, "req_missing", "admin@example.com")
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRejectClearsDigest(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(false)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	stored := store.requests[req.ID]
	assert.Equal(t, StatusRejected, stored.State.Status())
	assert.Empty(t, stored.PasswordHash)
	review, ok := ReviewOf(stored.State)
	require.True(t, ok)
	assert.Equal(t, "admin@example.com", review.By)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(false)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)

	err = svc.Delete(ctx, req.ID)
	require.ErrorIs(t, err, ErrPendingDelete)
	assert.Len(t, store.requests, 1)

	_, err = svc.Reject(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, req.ID))
	assert.Empty(t, store.requests)

	// the email may request again once the rejection is gone
	_, err = svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, "req_missing"), ErrRequestNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(false)

	a, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "c@d.se", "secret1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, a.ID, "admin@example.com")
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c@d.se", all[0].Email, "newest first")

	pending, err := svc.List(ctx, StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c@d.se", pending[0].Email)
}

func TestSignInByRequestState(t *testing.T) {
	ctx := context.Background()

	t.Run("no request", func(t *testing.T) {
		svc, _, _ := newTestService(false)
		_, err := svc.SignIn(ctx, "a@b.dk", "secret1")
		require.ErrorIs(t, err, identity.ErrAccountNotFound)
	})

	t.Run("pending", func(t *testing.T) {
		svc, _, _ := newTestService(false)
		_, err := svc.Submit(ctx, "a@b.dk", "secret1")
		require.NoError(t, err)
		_, err = svc.SignIn(ctx, "a@b.dk", "secret1")
		require.ErrorIs(t, err, ErrRequestPending)
		assert.Equal(t, "Your access request is pending approval. Please wait for administrator approval.", err.Error())
	})

	t.Run("rejected", func(t *testing.T) {
		svc, _, _ := newTestService(false)
		req, err := svc.Submit(ctx, "a@b.dk", "secret1")
		require.NoError(t, err)
		_, err = svc.Reject(ctx, req.ID, "admin@example.com")
		require.NoError(t, err)
		_, err = svc.SignIn(ctx, "a@b.dk", "secret1")
		require.ErrorIs(t, err, ErrRequestRejected)
	})

	t.Run("approved with weak password", func(t *testing.T) {
		svc, store, idp := newTestService(false)
		req, err := svc.Submit(ctx, "a@b.dk", "12345")
		require.NoError(t, err)
		_, err = svc.Approve(ctx, req.ID, "admin@example.com")
		require.NoError(t, err)
		_, err = svc.SignIn(ctx, "a@b.dk", "12345")
		require.ErrorIs(t, err, ErrWeakPassword)
		assert.Empty(t, idp.accounts)
		assert.Empty(t, store.users)
	})
}

func TestFirstSignInAfterApproval(t *testing.T) {
	ctx := context.Background()
	svc, store, idp := newTestService(false)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	sess, err := svc.SignIn(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.dk", sess.Email)
	assert.Contains(t, idp.accounts, "a@b.dk")

	u, ok := store.users[sess.UserID]
	require.True(t, ok)
	assert.False(t, u.Contributor)
	assert.False(t, u.Pending)
	assert.Len(t, store.users, 1)

	// second sign-in goes straight through the provider
	sess2, err := svc.SignIn(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, sess2.UserID)
	assert.Len(t, store.users, 1)
}

func TestSignInWrongPasswordAfterAccountExists(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(false)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)
	_, err = svc.SignIn(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "a@b.dk", "wrong-password")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestFirstSignInMergesTempUser(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(true)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	tempID := TempUserID("a@b.dk")
	temp := store.users[tempID]
	_, err = svc.SetContributor(ctx, tempID, true)
	require.NoError(t, err)

	sess, err := svc.SignIn(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)

	require.Len(t, store.users, 1, "placeholder is replaced by the real user")
	u := store.users[sess.UserID]
	assert.True(t, u.Contributor, "contributor flag carried over")
	assert.Equal(t, temp.CreatedAt, u.CreatedAt, "creation time carried over")
	assert.False(t, u.Pending)
	assert.True(t, u.LastLogin.After(u.CreatedAt))
}

func TestMaterializeUserIsAtomic(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(true)

	req, err := svc.Submit(ctx, "a@b.dk", "secret1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	store.failOn = "InsertUser"
	err = svc.MaterializeUser(ctx, "uid_x", "a@b.dk")
	require.ErrorIs(t, err, errInjected)

	_, ok := store.users[TempUserID("a@b.dk")]
	assert.True(t, ok, "placeholder survives a failed merge")
	_, ok = store.users["uid_x"]
	assert.False(t, ok)
}

func TestMaterializeExistingUser(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(false)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.users["uid_x"] = User{ID: "uid_x", Email: "a@b.dk", Contributor: true, Pending: true, CreatedAt: created, LastLogin: created}
	store.users[TempUserID("a@b.dk")] = User{ID: TempUserID("a@b.dk"), Email: "a@b.dk", Pending: true}

	require.NoError(t, svc.MaterializeUser(ctx, "uid_x", "a@b.dk"))

	u := store.users["uid_x"]
	assert.True(t, u.Contributor)
	assert.False(t, u.Pending)
	assert.Equal(t, created, u.CreatedAt)
	assert.True(t, u.LastLogin.After(created))
	assert.Len(t, store.users, 1, "stale placeholder removed")
}

func TestMaterializeExistingUserKeepsPlaceholderGrant(t *testing.T) {
	tests := []struct {
		name            string
		userContributor bool
		tempContributor bool
		want            bool
	}{
		{"placeholder granted", false, true, true},
		{"user granted", true, false, true},
		{"neither", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store, _ := newTestService(false)
			store.users["uid_x"] = User{ID: "uid_x", Email: "a@b.dk", Contributor: tt.userContributor}
			store.users[TempUserID("a@b.dk")] = User{ID: TempUserID("a@b.dk"), Email: "a@b.dk", Contributor: tt.tempContributor}

			require.NoError(t, svc.MaterializeUser(ctx, "uid_x", "a@b.dk"))

			assert.Equal(t, tt.want, store.users["uid_x"].Contributor)
			_, ok := store.users[TempUserID("a@b.dk")]
			assert.False(t, ok)
		})
	}
}

func TestContributorFlag(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(false)
	store.users["uid_x"] = User{ID: "uid_x", Email: "a@b.dk"}

	ok, err := svc.IsContributor(ctx, "uid_x")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.SetContributor(ctx, "uid_x", true)
	require.NoError(t, err)
	ok, err = svc.IsContributor(ctx, "uid_x")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsContributor(ctx, "uid_unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.SetContributor(ctx, "uid_unknown", true)
	require.ErrorIs(t, err, ErrUserNotFound)
}
