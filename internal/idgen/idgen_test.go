package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_SameMillisecondStaysUnique(t *testing.T) {
	frozen := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	src := NewSourceWithClock(func() time.Time { return frozen })

	first := src.Next()
	second := src.Next()
	third := src.Next()

	assert.Equal(t, frozen.UnixMilli(), first)
	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, third)
}

func TestSource_ClockGoingBackwardsStillIncreases(t *testing.T) {
	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	src := NewSourceWithClock(func() time.Time { return now })

	first := src.Next()
	now = now.Add(-time.Minute)
	second := src.Next()

	assert.Greater(t, second, first)
}

func TestSource_TracksAdvancingClock(t *testing.T) {
	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	src := NewSourceWithClock(func() time.Time { return now })

	first := src.Next()
	now = now.Add(time.Second)
	second := src.Next()

	assert.Equal(t, first+1000, second)
}

func TestSession(t *testing.T) {
	id, err := Session()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, SessionPrefix))
	assert.Len(t, id, len(SessionPrefix)+Length)

	other, err := Session()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}
