package engine

import (
	"strings"
	"time"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
)

// ErrorKind classifies a date-of-birth validation failure.
type ErrorKind string

const (
	ErrorNone          ErrorKind = ""
	ErrorInvalidFormat ErrorKind = "invalid-format"
	ErrorFutureDate    ErrorKind = "future-date"
	ErrorExceedsMaxAge ErrorKind = "exceeds-max-age"
)

// ValidateDateOfBirth checks a parsed date against now. The 150-year floor
// is now's month/day 150 years back; the boundary itself is valid (only
// dates strictly before it fail).
func ValidateDateOfBirth(date, now time.Time) (bool, ErrorKind) {
	if date.IsZero() {
		return false, ErrorInvalidFormat
	}
	if date.After(now) {
		return false, ErrorFutureDate
	}
	minDate := time.Date(now.Year()-config.MaxAgeYears, now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(minDate) {
		return false, ErrorExceedsMaxAge
	}
	return true, ErrorNone
}

// ParseAndValidate parses an ISO date string and validates it.
// Unparseable input maps to ErrorInvalidFormat.
func ParseAndValidate(s string, now time.Time) (time.Time, bool, ErrorKind) {
	parsed, err := time.ParseInLocation(config.DateFormatISO, strings.TrimSpace(s), now.Location())
	if err != nil {
		return time.Time{}, false, ErrorInvalidFormat
	}
	ok, kind := ValidateDateOfBirth(parsed, now)
	return parsed, ok, kind
}
