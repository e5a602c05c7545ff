package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFromRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	admin := "admin@example.com"

	tests := []struct {
		name    string
		status  string
		by      *string
		at      *time.Time
		want    State
		wantErr bool
	}{
		{"pending", "pending", nil, nil, Pending{}, false},
		{"pending ignores review", "pending", &admin, &at, Pending{}, false},
		{"approved", "approved", &admin, &at, Approved{Review{By: admin, At: at}}, false},
		{"rejected", "Rejected", &admin, &at, Rejected{Review{By: admin, At: at}}, false},
		{"approved without time", "approved", &admin, nil, nil, true},
		{"unknown", "archived", nil, nil, nil, true},
		{"empty", "", nil, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StateFromRecord(tt.status, tt.by, tt.at)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestTransitions(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	r := &Request{ID: "req_1", Email: "a@b.dk", PasswordHash: "x", State: Pending{}}
	require.NoError(t, r.Approve("admin", at))
	assert.Equal(t, StatusApproved, r.State.Status())
	assert.Equal(t, "x", r.PasswordHash)
	require.ErrorIs(t, r.Approve("admin", at), ErrNotPending)
	require.ErrorIs(t, r.Reject("admin", at), ErrNotPending)

	r = &Request{ID: "req_2", Email: "a@b.dk", PasswordHash: "x", State: Pending{}}
	require.NoError(t, r.Reject("admin", at))
	assert.Equal(t, StatusRejected, r.State.Status())
	assert.Empty(t, r.PasswordHash)

	_, ok := ReviewOf(Pending{})
	assert.False(t, ok)
}

func TestTempUserID(t *testing.T) {
	assert.Equal(t, "pending_anna_b_example_se", TempUserID("anna.b@example.se"))
	assert.Equal(t, "pending_a_b_dk", TempUserID("a+b.dk"))
	assert.True(t, User{ID: TempUserID("x@y.z")}.IsTemporary())
	assert.False(t, User{ID: "uid_123"}.IsTemporary())
}
