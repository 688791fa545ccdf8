package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/monban/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newIncident(userID, description string) model.Incident {
	return model.Incident{
		UserID:         userID,
		Category:       model.CategorySoftware,
		Description:    description,
		DateObserved:   "2026-08-27",
		Level:          3,
		NormalizedHash: "abcd1234",
	}
}

func TestCreateIncidentAssignsSequentialIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.CreateIncident(ctx, newIncident("u1", "game crashes on startup"))
	require.NoError(t, err)
	second, err := db.CreateIncident(ctx, newIncident("u1", "save file corrupted"))
	require.NoError(t, err)

	assert.Equal(t, "BUG-00001", first.ID)
	assert.Equal(t, "BUG-00002", second.ID)
	assert.Equal(t, model.StatusOpen, first.Status, "new incidents default to Open")
	assert.False(t, first.CreatedAt.IsZero())
}

func TestCreateIncidentIDsArePerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := db.CreateIncident(ctx, newIncident("alice", "cannot login"))
	require.NoError(t, err)
	b, err := db.CreateIncident(ctx, newIncident("bob", "cannot login"))
	require.NoError(t, err)

	assert.Equal(t, "BUG-00001", a.ID)
	assert.Equal(t, "BUG-00001", b.ID, "each user's numbering starts at 1")
}

func TestCreateIncidentRejectsBadLevel(t *testing.T) {
	db := newTestDB(t)

	inc := newIncident("u1", "whatever")
	inc.Level = 0
	_, err := db.CreateIncident(context.Background(), inc)

	assert.ErrorIs(t, err, model.ErrInvalidLevel)
}

func TestGetIncident(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateIncident(ctx, newIncident("u1", "lag in multiplayer"))
	require.NoError(t, err)

	got, err := db.GetIncident(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Description, got.Description)
	assert.Equal(t, created.NormalizedHash, got.NormalizedHash)

	_, err = db.GetIncident(ctx, "u1", "BUG-09999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetIncident(ctx, "someone-else", created.ID)
	assert.ErrorIs(t, err, ErrNotFound, "incidents are scoped to their user")
}

func TestOpenAndResolvedIncidents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := db.CreateIncident(ctx, newIncident("u1", "first issue"))
	require.NoError(t, err)
	b, err := db.CreateIncident(ctx, newIncident("u1", "second issue"))
	require.NoError(t, err)
	_, err = db.CreateIncident(ctx, newIncident("u1", "third issue"))
	require.NoError(t, err)

	require.NoError(t, db.UpdateStatus(ctx, "u1", a.ID, model.StatusResolved))
	require.NoError(t, db.UpdateStatus(ctx, "u1", b.ID, model.StatusInProgress))

	open, err := db.OpenIncidents(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, open, 2, "Open and In Progress both count as open")

	resolved, err := db.ResolvedIncidents(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, a.ID, resolved[0].ID)
}

func TestListIncidentsFilterAndLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, desc := range []string{"one", "two", "three"} {
		_, err := db.CreateIncident(ctx, newIncident("u1", desc))
		require.NoError(t, err)
	}

	all, err := db.ListIncidents(ctx, "u1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := db.ListIncidents(ctx, "u1", "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	open, err := db.ListIncidents(ctx, "u1", model.StatusOpen, 0)
	require.NoError(t, err)
	assert.Len(t, open, 3)

	none, err := db.ListIncidents(ctx, "u1", model.StatusClosed, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateStatusNotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateStatus(context.Background(), "u1", "BUG-00001", model.StatusResolved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateLevel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateIncident(ctx, newIncident("u1", "minor glitch"))
	require.NoError(t, err)

	require.NoError(t, db.UpdateLevel(ctx, "u1", created.ID, 5))
	got, err := db.GetIncident(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Level)

	assert.ErrorIs(t, db.UpdateLevel(ctx, "u1", created.ID, 7), model.ErrInvalidLevel)
}

func TestContactUpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetContact(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.UpsertContact(ctx, model.Contact{UserID: "u1", Email: "old@example.com"}))
	require.NoError(t, db.UpsertContact(ctx, model.Contact{UserID: "u1", Email: "new@example.com"}))

	c, err := db.GetContact(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", c.Email)
}

func TestRecentIncidentsAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, userID := range []string{"alice", "bob", "carol"} {
		_, err := db.CreateIncident(ctx, newIncident(userID, "something broke for "+userID))
		require.NoError(t, err)
	}

	recent, err := db.RecentIncidents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	all, err := db.RecentIncidents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "non-positive limit falls back to the default")
}
