package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/activity-architect/internal/storage/sqlite"
	"github.com/scrypster/activity-architect/pkg/types"
)

func newDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "architect.db")
	store, err := sqlite.NewStore(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.SetOverride(ctx, "Chess", "flow", 3))
	require.NoError(t, store.SaveCustomActivity(ctx, &types.Activity{
		Name:   "Kite Surfing",
		Scores: types.Scores{"risk": 9},
	}))
	require.NoError(t, store.Close())
	return path
}

func TestCreateAndRestore(t *testing.T) {
	ctx := context.Background()
	dbPath := newDatabase(t)
	dir := filepath.Join(t.TempDir(), "backups")
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	info, err := Create(ctx, dbPath, dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "architect-20260304-050607.db"), info.Path)
	assert.True(t, info.Verified)
	assert.Positive(t, info.Size)

	// a second backup in the same second is refused
	_, err = Create(ctx, dbPath, dir, now)
	assert.Error(t, err)

	// wipe the live data, then restore
	store, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.ClearOverrides(ctx))
	require.NoError(t, store.DeleteCustomActivity(ctx, "Kite Surfing"))
	require.NoError(t, store.Close())

	require.NoError(t, Restore(ctx, info.Path, dbPath))

	store, err = sqlite.NewStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	edits, err := store.LoadOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Overrides{"Chess": {"flow": 3}}, edits)
	custom, err := store.ListCustomActivities(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, "Kite Surfing", custom[0].Name)
}

func TestRestore_RejectsCorruptBackup(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "architect-20260101-000000.db")
	require.NoError(t, os.WriteFile(bad, []byte("not a database"), 0o600))

	target := filepath.Join(dir, "target.db")
	assert.Error(t, Restore(context.Background(), bad, target))
	assert.NoFileExists(t, target)
}

func TestListAndPrune(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"architect-20260101-000000.db",
		"architect-20260103-000000.db",
		"architect-20260102-000000.db",
		"notes.txt",
		"architect-garbage.db",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600))
	}

	backups, err := List(dir)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, "architect-20260103-000000.db", filepath.Base(backups[0].Path))
	assert.Equal(t, "architect-20260101-000000.db", filepath.Base(backups[2].Path))

	latest, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, backups[0].Path, latest.Path)

	deleted, err := Prune(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "architect-20260101-000000.db")}, deleted)

	backups, err = List(dir)
	require.NoError(t, err)
	assert.Len(t, backups, 2)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))

	deleted, err = Prune(dir, 0)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestList_MissingDirectory(t *testing.T) {
	backups, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, backups)

	_, err = Latest(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrNoBackups)
}
