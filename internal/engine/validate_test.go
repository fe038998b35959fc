package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var validateNow = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func TestValidateDateOfBirth(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		ok   bool
		kind ErrorKind
	}{
		{
			name: "valid past date",
			date: time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
			ok:   true,
			kind: ErrorNone,
		},
		{
			name: "zero value",
			date: time.Time{},
			ok:   false,
			kind: ErrorInvalidFormat,
		},
		{
			name: "tomorrow",
			date: validateNow.Add(24 * time.Hour),
			ok:   false,
			kind: ErrorFutureDate,
		},
		{
			name: "exactly 150 years back is accepted",
			date: time.Date(1874, time.May, 15, 0, 0, 0, 0, time.UTC),
			ok:   true,
			kind: ErrorNone,
		},
		{
			name: "one day beyond the 150 year floor",
			date: time.Date(1874, time.May, 14, 0, 0, 0, 0, time.UTC),
			ok:   false,
			kind: ErrorExceedsMaxAge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, kind := ValidateDateOfBirth(tt.date, validateNow)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestParseAndValidate(t *testing.T) {
	parsed, ok, kind := ParseAndValidate("  1990-05-15 ", validateNow)
	assert.True(t, ok)
	assert.Equal(t, ErrorNone, kind)
	assert.Equal(t, 1990, parsed.Year())

	_, ok, kind = ParseAndValidate("15/05/1990", validateNow)
	assert.False(t, ok)
	assert.Equal(t, ErrorInvalidFormat, kind)

	_, ok, kind = ParseAndValidate("2030-01-01", validateNow)
	assert.False(t, ok)
	assert.Equal(t, ErrorFutureDate, kind)

	_, ok, kind = ParseAndValidate("", validateNow)
	assert.False(t, ok)
	assert.Equal(t, ErrorInvalidFormat, kind)
}
