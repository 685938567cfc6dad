package session

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drivetree/internal/tree"
)

func openTestDB(t *testing.T) *StateDB {
	t.Helper()

	db, err := OpenStateDB(context.Background(), filepath.Join(t.TempDir(), "state.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func sampleSession() Session {
	created := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)

	return Session{
		Identity: Identity{
			ID:           "u1",
			Name:         "Ada",
			Email:        "ada@example.com",
			Picture:      "p.png",
			CreatedAt:    created,
			RootFolderID: "root",
		},
		ActiveFolder: tree.Folder{
			ID:             "f2",
			ParentFolderID: "f1",
			Name:           "Sub",
			Path:           []string{"root", "f1"},
			SubFolders:     []tree.Folder{{ID: "f3", ParentFolderID: "f2"}},
		},
		BreadCrumb: []tree.Summary{
			{ID: "root", Name: "My Drive"},
			{ID: "f1", ParentFolderID: "root", Name: "Docs"},
			{ID: "f2", ParentFolderID: "f1", Name: "Sub"},
		},
		Accounts: []Account{
			{ID: "a1", UserID: "u1", Provider: "google", CreatedAt: created},
			{ID: "a2", UserID: "u1", Provider: "dropbox"},
		},
	}
}

func TestStateDB_LoadEmpty(t *testing.T) {
	db := openTestDB(t)

	_, ok, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateDB_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	want := sampleSession()

	require.NoError(t, db.Save(ctx, want))

	got, ok, err := db.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, want.Identity, got.Identity)
	assert.Equal(t, want.BreadCrumb, got.BreadCrumb)
	assert.Equal(t, want.Accounts, got.Accounts)

	// Only the position is stored, never the contents.
	assert.Equal(t, "f2", got.ActiveFolder.ID)
	assert.Equal(t, "f1", got.ActiveFolder.ParentFolderID)
	assert.Equal(t, "Sub", got.ActiveFolder.Name)
	assert.Equal(t, []string{"root", "f1"}, got.ActiveFolder.Path)
	assert.Empty(t, got.ActiveFolder.SubFolders)
}

func TestStateDB_SaveReplaces(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, sampleSession()))

	next := sampleSession()
	next.BreadCrumb = next.BreadCrumb[:1]
	next.ActiveFolder = tree.Folder{ID: "root", Name: "My Drive"}
	next.Accounts = nil
	require.NoError(t, db.Save(ctx, next))

	got, ok, err := db.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.BreadCrumb, 1)
	assert.Empty(t, got.Accounts)
	assert.Equal(t, "root", got.ActiveFolder.ID)
	assert.Empty(t, got.ActiveFolder.Path)
}

func TestStateDB_SaveSignedOutClears(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, sampleSession()))
	require.NoError(t, db.Save(ctx, Session{}))

	_, ok, err := db.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateDB_Clear(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, sampleSession()))
	require.NoError(t, db.Clear(ctx))

	_, ok, err := db.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateDB_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := OpenStateDB(ctx, path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, db.Save(ctx, sampleSession()))
	require.NoError(t, db.Close())

	db, err = OpenStateDB(ctx, path, slog.Default())
	require.NoError(t, err)
	defer db.Close()

	got, ok, err := db.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.Identity.ID)
}

func TestPersist_SavesEveryChange(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore()

	cancel := Persist(ctx, store, db, slog.Default())

	store.Restore(sampleSession())

	got, ok, err := db.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ada", got.Identity.Name)

	store.SetName("Grace")
	got, _, err = db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Identity.Name)

	store.Reset()
	_, ok, err = db.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cancel()
	store.Restore(sampleSession())
	_, ok, err = db.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no saves after cancel")
}
