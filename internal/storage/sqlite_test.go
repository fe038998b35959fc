package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "dob", "1990-05-15"))
	require.NoError(t, store.Set(ctx, "todos", []map[string]any{{"id": 1, "text": "hi"}}))

	data, err := store.Get(ctx, "dob", "todos", "missing")
	require.NoError(t, err)

	assert.JSONEq(t, `"1990-05-15"`, string(data["dob"]))
	assert.Contains(t, string(data["todos"]), `"text":"hi"`)
	_, present := data["missing"]
	assert.False(t, present, "absent keys are omitted, not errors")
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "theme", "dark"))
	require.NoError(t, store.Set(ctx, "theme", "light"))

	data, err := store.Get(ctx, "theme")
	require.NoError(t, err)
	assert.JSONEq(t, `"light"`, string(data["theme"]))
}

func TestSQLiteStore_SetMultiple(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.SetMultiple(ctx, map[string]any{
		"milestoneHistory":     []string{"a"},
		"celebratedMilestones": []string{"a", "b"},
	})
	require.NoError(t, err)

	data, err := store.Get(ctx, "milestoneHistory", "celebratedMilestones")
	require.NoError(t, err)
	assert.JSONEq(t, `["a"]`, string(data["milestoneHistory"]))
	assert.JSONEq(t, `["a","b"]`, string(data["celebratedMilestones"]))
}

func TestSQLiteStore_RemoveAndClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", 1))
	require.NoError(t, store.Set(ctx, "b", 2))

	require.NoError(t, store.Remove(ctx, "a"))
	data, err := store.Get(ctx, "a", "b")
	require.NoError(t, err)
	_, present := data["a"]
	assert.False(t, present)
	assert.JSONEq(t, "2", string(data["b"]))

	require.NoError(t, store.Clear(ctx))
	data, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "dob", "1990-05-15"))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	data, err := reopened.Get(ctx, "dob")
	require.NoError(t, err)
	assert.JSONEq(t, `"1990-05-15"`, string(data["dob"]))
}
