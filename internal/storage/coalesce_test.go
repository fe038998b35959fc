package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Manual scheduler (deterministic debounce windows)
// -----------------------------------------------------------------------------

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

// manualScheduler records scheduled callbacks so tests can expire debounce
// windows explicitly instead of sleeping.
type manualScheduler struct {
	timers []*manualTimer
}

func (s *manualScheduler) After(d time.Duration, fn func()) Timer {
	t := &manualTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Expire runs every armed callback, simulating the debounce delay elapsing.
func (s *manualScheduler) Expire() {
	timers := s.timers
	s.timers = nil
	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

func newTestCoalescer() (*Coalescer, *MemoryStore, *manualScheduler) {
	backing := NewMemoryStore()
	sched := &manualScheduler{}
	return NewCoalescerWithTimer(backing, 300*time.Millisecond, sched.After), backing, sched
}

// -----------------------------------------------------------------------------
// Debounce semantics
// -----------------------------------------------------------------------------

// TestCoalescer_RapidWritesCollapse verifies that two writes to the same key
// inside one window produce a single store write carrying the last value.
func TestCoalescer_RapidWritesCollapse(t *testing.T) {
	c, backing, sched := newTestCoalescer()

	c.Set("counter", 1)
	c.Set("counter", 2)
	assert.Equal(t, 0, backing.WriteCount("counter"), "nothing flushes before the window expires")

	sched.Expire()

	assert.Equal(t, 1, backing.WriteCount("counter"))
	data, err := backing.Get(context.Background(), "counter")
	require.NoError(t, err)
	assert.JSONEq(t, "2", string(data["counter"]))
}

// TestCoalescer_DistinctKeysIndependent verifies that writes to different
// keys each get their own window.
func TestCoalescer_DistinctKeysIndependent(t *testing.T) {
	c, backing, sched := newTestCoalescer()

	c.Set("alpha", "a")
	c.Set("beta", "b")
	assert.Equal(t, 2, c.PendingCount())

	sched.Expire()

	assert.Equal(t, 1, backing.WriteCount("alpha"))
	assert.Equal(t, 1, backing.WriteCount("beta"))
}

// TestCoalescer_GroupWrite verifies that SetMultiple lands as one grouped
// write and cancels stale single-key windows for its members.
func TestCoalescer_GroupWrite(t *testing.T) {
	c, backing, sched := newTestCoalescer()

	c.Set("history", []int{1})
	c.SetMultiple(map[string]any{
		"history":    []int{1, 2},
		"celebrated": []string{"x"},
	})

	sched.Expire()

	assert.Equal(t, 1, backing.WriteCount("history"), "single-key window must not double-write")
	assert.Equal(t, 1, backing.WriteCount("celebrated"))

	data, err := backing.Get(context.Background(), "history")
	require.NoError(t, err)
	assert.JSONEq(t, "[1,2]", string(data["history"]))
}

func TestCoalescer_SetNowBypassesWindow(t *testing.T) {
	c, backing, sched := newTestCoalescer()

	c.Set("dob", "1990-01-01")
	require.NoError(t, c.SetNow(context.Background(), "dob", "1990-05-15"))

	assert.Equal(t, 1, backing.WriteCount("dob"))
	assert.Equal(t, 0, c.PendingCount(), "pending window for the key is cancelled")

	// The stale window expiring later must not resurrect the old value.
	sched.Expire()
	assert.Equal(t, 1, backing.WriteCount("dob"))
}

func TestCoalescer_SetNowSurfacesFailure(t *testing.T) {
	c, backing, _ := newTestCoalescer()

	boom := errors.New("disk full")
	backing.FailWith(boom)

	err := c.SetNow(context.Background(), "dob", "1990-05-15")
	assert.ErrorIs(t, err, boom)
}

func TestCoalescer_FlushDrainsPending(t *testing.T) {
	c, backing, _ := newTestCoalescer()

	c.Set("todos", []string{"one"})
	c.Set("settings", map[string]bool{"x": true})
	require.Equal(t, 2, c.PendingCount())

	require.NoError(t, c.Flush(context.Background()))

	assert.Equal(t, 0, c.PendingCount())
	assert.Equal(t, 1, backing.WriteCount("todos"))
	assert.Equal(t, 1, backing.WriteCount("settings"))
}

func TestCoalescer_GetPrefersCache(t *testing.T) {
	c, backing, _ := newTestCoalescer()

	require.NoError(t, backing.Set(context.Background(), "theme", "light"))
	c.Set("theme", "dark") // not yet flushed

	data, err := c.Get(context.Background(), "theme")
	require.NoError(t, err)
	assert.JSONEq(t, `"dark"`, string(data["theme"]))
}

// TestCoalescer_FailedWriteKeepsCache verifies that a store failure leaves
// the cached value authoritative for subsequent reads.
func TestCoalescer_FailedWriteKeepsCache(t *testing.T) {
	c, backing, sched := newTestCoalescer()

	backing.FailWith(errors.New("locked"))
	c.Set("todos", []string{"keep me"})
	sched.Expire()

	assert.Equal(t, 0, backing.WriteCount("todos"))

	backing.FailWith(nil)
	data, err := c.Get(context.Background(), "todos")
	require.NoError(t, err)
	assert.JSONEq(t, `["keep me"]`, string(data["todos"]))
}

func TestCoalescer_RemoveCancelsAndDeletes(t *testing.T) {
	c, backing, sched := newTestCoalescer()

	require.NoError(t, backing.Set(context.Background(), "todos", "[]"))
	c.Set("todos", []string{"pending"})

	require.NoError(t, c.Remove(context.Background(), "todos"))
	sched.Expire()

	assert.Equal(t, 1, backing.WriteCount("todos"), "cancelled window must not rewrite the key")
	_, cached := c.Cached("todos")
	assert.False(t, cached)
	assert.Equal(t, 0, backing.Len())
}

// -----------------------------------------------------------------------------
// Decode helper
// -----------------------------------------------------------------------------

func TestDecode(t *testing.T) {
	var out []int
	ok, err := Decode(nil, &out)
	require.NoError(t, err)
	assert.False(t, ok, "missing key decodes to nothing")

	ok, err = Decode([]byte("[1,2,3]"), &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, out)

	_, err = Decode([]byte("{broken"), &out)
	assert.Error(t, err)
}
