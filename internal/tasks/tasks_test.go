package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/idgen"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
)

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func heldAfter(d time.Duration, fn func()) storage.Timer { return noopTimer{} }

func newTestManager() (*Manager, *storage.MemoryStore) {
	backing := storage.NewMemoryStore()
	coalescer := storage.NewCoalescerWithTimer(backing, config.StorageDebounce, heldAfter)
	return NewManager(coalescer, idgen.NewSource()), backing
}

func TestManager_AddTrimsAndAssignsID(t *testing.T) {
	m, _ := newTestManager()

	todo := m.Add("  buy milk  ")

	require.NotNil(t, todo)
	assert.Equal(t, "buy milk", todo.Text)
	assert.False(t, todo.Completed)
	assert.NotZero(t, todo.ID)
}

func TestManager_AddRejectsBlankText(t *testing.T) {
	m, _ := newTestManager()

	assert.Nil(t, m.Add(""))
	assert.Nil(t, m.Add("   "))
	assert.Nil(t, m.Add("\t\n"))
	assert.Empty(t, m.All(), "blank adds leave the list untouched")
}

func TestManager_AddKeepsInsertionOrder(t *testing.T) {
	m, _ := newTestManager()

	m.Add("first")
	m.Add("second")
	m.Add("third")

	all := m.All()
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Text)
	assert.Equal(t, "third", all[2].Text)
	assert.Less(t, all[0].ID, all[1].ID)
}

func TestManager_Toggle(t *testing.T) {
	m, _ := newTestManager()
	todo := m.Add("task")

	assert.True(t, m.Toggle(todo.ID))
	assert.True(t, m.All()[0].Completed)

	assert.True(t, m.Toggle(todo.ID))
	assert.False(t, m.All()[0].Completed)

	assert.False(t, m.Toggle(999), "unknown id is a no-op")
}

func TestManager_DeletePreservesOrder(t *testing.T) {
	m, _ := newTestManager()
	m.Add("a")
	b := m.Add("b")
	m.Add("c")

	assert.True(t, m.Delete(b.ID))

	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Text)
	assert.Equal(t, "c", all[1].Text)

	assert.False(t, m.Delete(b.ID), "second delete of the same id fails")
}

func TestManager_FiltersAndStats(t *testing.T) {
	m, _ := newTestManager()
	done := m.Add("done")
	m.Add("open one")
	m.Add("open two")
	m.Toggle(done.ID)

	assert.Len(t, m.Completed(), 1)
	assert.Len(t, m.Pending(), 2)

	stats := m.TaskStats()
	assert.Equal(t, Stats{Total: 3, Completed: 1, Pending: 2}, stats)
}

func TestManager_ClearAll(t *testing.T) {
	m, _ := newTestManager()
	m.Add("a")
	m.Add("b")

	m.ClearAll()

	assert.Empty(t, m.All())
	assert.Equal(t, Stats{}, m.TaskStats())
}

func TestManager_LoadRoundTrip(t *testing.T) {
	m, backing := newTestManager()
	ctx := context.Background()

	require.NoError(t, backing.Set(ctx, config.KeyTodos, []Todo{
		{ID: 1, Text: "persisted", Completed: true},
	}))

	require.NoError(t, m.Load(ctx))

	all := m.All()
	require.Len(t, all, 1)
	assert.Equal(t, "persisted", all[0].Text)
	assert.True(t, all[0].Completed)
}

func TestManager_LoadToleratesCorruptValue(t *testing.T) {
	m, backing := newTestManager()
	ctx := context.Background()

	require.NoError(t, backing.Set(ctx, config.KeyTodos, "not-an-array"))

	require.NoError(t, m.Load(ctx))
	assert.Empty(t, m.All())
}

func TestManager_ImportExport(t *testing.T) {
	m, _ := newTestManager()
	m.Add("exported")

	out := m.Export()
	assert.Contains(t, out, `"text": "exported"`)

	other, _ := newTestManager()
	require.NoError(t, other.Import([]byte(out)))
	require.Len(t, other.All(), 1)
	assert.Equal(t, "exported", other.All()[0].Text)

	assert.Error(t, other.Import([]byte(`{"not":"an array"}`)))
}
