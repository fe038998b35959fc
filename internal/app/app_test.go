package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/engine"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

// heldAfter keeps debounce windows open without arming real timers, so
// goleak stays quiet and persistence is asserted through Flush.
func heldAfter(d time.Duration, fn func()) storage.Timer { return noopTimer{} }

func newTestApp(now time.Time) (*App, *storage.MemoryStore, *fakeClock) {
	backing := storage.NewMemoryStore()
	coalescer := storage.NewCoalescerWithTimer(backing, config.StorageDebounce, heldAfter)
	clock := &fakeClock{now: now}
	a := New(Options{
		Clock: clock,
		Store: coalescer,
	})
	return a, backing, clock
}

var appNow = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func TestApp_RunOnlyOnce(t *testing.T) {
	a, _, _ := newTestApp(appNow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Run(ctx))

	err := a.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrAlreadyRunning)
}

func TestApp_RunLoadsPersistedDOB(t *testing.T) {
	a, backing, _ := newTestApp(appNow)
	require.NoError(t, backing.Set(context.Background(), config.KeyDOB, "1990-05-15"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Run(ctx))

	dob, ok := a.DateOfBirth()
	require.True(t, ok)
	assert.Equal(t, "1990-05-15", dob.Format(config.DateFormatISO))
}

func TestApp_SaveDateOfBirth(t *testing.T) {
	a, backing, _ := newTestApp(appNow)
	ctx := context.Background()

	msg, err := a.SaveDateOfBirth(ctx, "1990-05-15")
	require.NoError(t, err)
	assert.Empty(t, msg)

	dob, ok := a.DateOfBirth()
	require.True(t, ok)
	assert.Equal(t, 1990, dob.Year())

	// The save bypasses the debounce window.
	assert.Equal(t, 1, backing.WriteCount(config.KeyDOB))
}

func TestApp_SaveDateOfBirthRejectsInvalid(t *testing.T) {
	a, backing, _ := newTestApp(appNow)
	ctx := context.Background()

	tests := []struct {
		input string
		want  string
	}{
		{"not-a-date", "valid date"},
		{"2030-01-01", "future"},
		{"1700-01-01", "maximum"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			msg, err := a.SaveDateOfBirth(ctx, tt.input)
			require.Error(t, err)
			assert.Contains(t, msg, tt.want)
		})
	}

	_, ok := a.DateOfBirth()
	assert.False(t, ok)
	assert.Equal(t, 0, backing.WriteCount(config.KeyDOB))
}

func TestApp_SaveDateOfBirthCelebratesReachedMilestones(t *testing.T) {
	a, _, clock := newTestApp(appNow)
	ctx := context.Background()

	var names []string
	var labels []string
	a.OnCelebration(func(m engine.Milestone, label string) {
		names = append(names, m.Name)
		labels = append(labels, label)
	})

	dob := clock.now.Add(-1000 * 24 * time.Hour)
	_, err := a.SaveDateOfBirth(ctx, dob.Format(config.DateFormatISO))
	require.NoError(t, err)

	require.NotEmpty(t, names)
	assert.Equal(t, "1,000 Days", names[0])
	assert.Contains(t, labels[0], "1,000 Days")
	assert.True(t, a.Milestones.Celebrated("1,000 Days"))
}

func TestApp_BuildSnapshotWithoutDOB(t *testing.T) {
	a, _, _ := newTestApp(appNow)

	snap := a.BuildSnapshot()

	assert.Equal(t, a.SessionID(), snap.SessionID)
	assert.Nil(t, snap.Age)
	assert.Nil(t, snap.Statistics)
	assert.NotEmpty(t, snap.Countdown, "missing date surfaces a localized hint")
	assert.NotEmpty(t, snap.Clock)
	assert.Equal(t, config.ThemeDark, snap.Settings.Theme)
}

func TestApp_BuildSnapshotWithDOB(t *testing.T) {
	a, _, _ := newTestApp(appNow)
	ctx := context.Background()

	_, err := a.SaveDateOfBirth(ctx, "1990-05-15")
	require.NoError(t, err)
	a.Tasks.Add("write tests")

	snap := a.BuildSnapshot()

	require.NotNil(t, snap.Age)
	assert.Equal(t, "34", snap.Age.Whole)
	assert.Len(t, snap.Age.Fraction, config.AgeFractionDigits)
	require.NotNil(t, snap.Statistics)
	assert.True(t, snap.IsBirthday)
	require.NotNil(t, snap.NextMilestone)
	assert.Equal(t, 1, snap.TodoStats.Total)
	assert.NotEmpty(t, snap.Milestones, "decades of milestones are in history")
}

func TestApp_TranslatorFallsBackToKey(t *testing.T) {
	a, _, _ := newTestApp(appNow)

	assert.Equal(t, "no_such_key", a.Translator.GetMsg("no_such_key"))
	assert.NotEqual(t, config.TKeyBirthdayToday, a.Translator.GetMsg(config.TKeyBirthdayToday))
}

func TestApp_TranslatorLoadsBothLanguages(t *testing.T) {
	english := NewTranslator("en")
	assert.Contains(t, english.SupportedLanguages, "en")
	assert.Contains(t, english.SupportedLanguages, "fr")

	french := NewTranslator("fr")
	assert.Contains(t, french.GetMsg(config.TKeyBirthdayToday), "anniversaire")
}
