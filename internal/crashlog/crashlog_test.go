package crashlog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestRecorder() (*Recorder, *storage.MemoryStore, *fakeClock) {
	backing := storage.NewMemoryStore()
	coalescer := storage.NewCoalescer(backing)
	clock := &fakeClock{now: time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)}
	return NewRecorder(coalescer, clock), backing, clock
}

func TestRecorder_RecordPersistsImmediately(t *testing.T) {
	r, backing, clock := newTestRecorder()

	err := r.Record(context.Background(), "engine", errors.New("boom"))
	require.NoError(t, err)

	logs := r.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "engine", logs[0].Context)
	assert.Equal(t, "boom", logs[0].Message)
	assert.Equal(t, clock.now.UnixMilli(), logs[0].Timestamp)
	assert.NotEmpty(t, logs[0].Stack)

	// Crash records skip the debounce window.
	assert.Equal(t, 1, backing.WriteCount(config.KeyCrashLogs))
}

func TestRecorder_NewestFirstAndCapped(t *testing.T) {
	r, _, clock := newTestRecorder()
	ctx := context.Background()

	for i := 0; i < config.MaxCrashLogs+10; i++ {
		clock.now = clock.now.Add(time.Second)
		require.NoError(t, r.Record(ctx, "loop", fmt.Errorf("crash %d", i)))
	}

	logs := r.Logs()
	assert.Len(t, logs, config.MaxCrashLogs)
	assert.Equal(t, fmt.Sprintf("crash %d", config.MaxCrashLogs+9), logs[0].Message)
	assert.Greater(t, logs[0].Timestamp, logs[1].Timestamp)
}

func TestRecorder_LoopDetected(t *testing.T) {
	r, _, clock := newTestRecorder()
	ctx := context.Background()

	assert.False(t, r.LoopDetected())

	for i := 0; i < config.MaxCrashesInWindow-1; i++ {
		clock.now = clock.now.Add(time.Second)
		require.NoError(t, r.Record(ctx, "loop", errors.New("crash")))
	}
	assert.False(t, r.LoopDetected(), "one below the threshold is not a loop")

	clock.now = clock.now.Add(time.Second)
	require.NoError(t, r.Record(ctx, "loop", errors.New("crash")))
	assert.True(t, r.LoopDetected())
}

func TestRecorder_OldCrashesAgeOut(t *testing.T) {
	r, _, clock := newTestRecorder()
	ctx := context.Background()

	for i := 0; i < config.MaxCrashesInWindow; i++ {
		require.NoError(t, r.Record(ctx, "loop", errors.New("crash")))
	}
	require.True(t, r.LoopDetected())

	clock.now = clock.now.Add(config.CrashLoopWindow + time.Minute)
	assert.False(t, r.LoopDetected(), "crashes outside the window no longer count")
}

func TestRecorder_LoadAndClear(t *testing.T) {
	r, backing, _ := newTestRecorder()
	ctx := context.Background()

	require.NoError(t, backing.Set(ctx, config.KeyCrashLogs, []Entry{
		{Timestamp: 1, Context: "old", Message: "persisted"},
	}))

	require.NoError(t, r.Load(ctx))
	require.Len(t, r.Logs(), 1)

	require.NoError(t, r.Clear(ctx))
	assert.Empty(t, r.Logs())
	assert.Equal(t, 0, backing.Len())
}
