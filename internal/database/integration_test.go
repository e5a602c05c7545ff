//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/grocerycompare/price-service/internal/access"
	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/identity"
	"github.com/grocerycompare/price-service/internal/pricing"
)

// setupTestDB starts postgres, applies the migrations and returns a Store.
func setupTestDB(t *testing.T) *Store {
	if testing.Short() {
		t.Skip("skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("grocery"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return New(pool)
}

func TestIntegration_AccessWorkflow(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	idp := identity.NewProvider(store, []byte("integration-secret"), time.Hour)
	svc := access.NewService(AccessStore{store}, idp, access.Options{EagerTempUsers: true})

	req, err := svc.Submit(ctx, "anna@example.se", "hemligt")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "anna@example.se", "hemligt")
	require.ErrorIs(t, err, access.ErrDuplicatePending)

	_, err = svc.SignIn(ctx, "anna@example.se", "hemligt")
	require.ErrorIs(t, err, access.ErrRequestPending)

	_, err = svc.Approve(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.True(t, users[0].IsTemporary())

	_, err = svc.SetContributor(ctx, users[0].ID, true)
	require.NoError(t, err)

	sess, err := svc.SignIn(ctx, "anna@example.se", "hemligt")
	require.NoError(t, err)

	users, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, sess.UserID, users[0].ID)
	assert.True(t, users[0].Contributor)
	assert.False(t, users[0].Pending)

	require.NoError(t, svc.SignOut(ctx, sess.Token))
	_, err = idp.Verify(ctx, sess.Token)
	require.ErrorIs(t, err, identity.ErrInvalidSession)
}

func TestIntegration_Entries(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, e := range []pricing.Entry{
		{ID: "ent_1", Item: "Milk", Price: 20, Currency: pricing.CurrencySEK, Unit: pricing.UnitLiter, Country: pricing.CountrySE, Date: "2024-05-01", UserID: "uid_1", CreatedAt: now},
		{ID: "ent_2", Item: "milk", Price: 10, Currency: pricing.CurrencyDKK, Unit: pricing.UnitLiter, Country: pricing.CountryDK, Date: "2024-05-03", UserID: "uid_1", CreatedAt: now},
	} {
		e := e
		require.NoError(t, store.InsertEntry(ctx, &e))
	}

	list, err := store.ListEntries(ctx, entries.Filter{Item: "MILK", From: "2024-05-02"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ent_2", list[0].ID)
	assert.Equal(t, "2024-05-03", list[0].Date)

	sugg, err := store.DistinctValues(ctx, entries.FieldItem, "mil", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Milk", "milk"}, sugg)
}
