// Package engine computes the age display, derived statistics and milestone
// state from a date of birth and the current time.
package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
)

// Breakdown is the two-part age display: whole years plus a fixed-width
// fractional part, both kept as strings so leading zeros survive.
type Breakdown struct {
	Whole    string `json:"whole"`
	Fraction string `json:"fraction"`
}

// Statistics is the derived-numbers panel. All values are recomputed from
// (dob, now) on every tick and never stored.
type Statistics struct {
	DaysLived             int64  `json:"daysLived"`
	HoursLived            int64  `json:"hoursLived"`
	SecondsLived          int64  `json:"secondsLived"`
	DaysUntilBirthday     int64  `json:"daysUntilBirthday"`
	HoursUntilBirthday    int64  `json:"hoursUntilBirthday"`
	DaysSinceLastBirthday int64  `json:"daysSinceBirthday"`
	YearProgress          string `json:"yearProgress"`
}

// AgeBreakdown splits the age in fixed 365.25-day years at the decimal
// point, with exactly AgeFractionDigits fractional digits.
//
// The fraction is produced by integer long division of the millisecond
// remainder, three digits per step, so the result is truncated rather than
// rounded and every intermediate stays inside int64.
func AgeBreakdown(dob, now time.Time) Breakdown {
	ms := now.Sub(dob).Milliseconds()
	if ms < 0 {
		ms = 0
	}

	whole := ms / config.MillisPerYear
	rem := ms % config.MillisPerYear

	var frac strings.Builder
	for i := 0; i < config.AgeFractionDigits/3; i++ {
		rem *= 1000
		fmt.Fprintf(&frac, "%03d", rem/config.MillisPerYear)
		rem %= config.MillisPerYear
	}

	return Breakdown{
		Whole:    strconv.FormatInt(whole, 10),
		Fraction: frac.String(),
	}
}

// AgeStatistics derives the statistics panel for a valid dob <= now.
func AgeStatistics(dob, now time.Time) Statistics {
	ms := now.Sub(dob).Milliseconds()
	if ms < 0 {
		ms = 0
	}

	next := NextBirthday(dob, now)
	until := next.Sub(now).Milliseconds()

	last := LastBirthday(dob, now)
	daysSince := now.Sub(last).Milliseconds() / config.MillisPerDay

	progress := float64(daysSince) / 365.25 * 100
	if progress > 100 {
		progress = 100
	}

	return Statistics{
		DaysLived:             ms / config.MillisPerDay,
		HoursLived:            ms / config.MillisPerHour,
		SecondsLived:          ms / config.MillisPerSecond,
		DaysUntilBirthday:     until / config.MillisPerDay,
		HoursUntilBirthday:    (until % config.MillisPerDay) / config.MillisPerHour,
		DaysSinceLastBirthday: daysSince,
		YearProgress:          strconv.FormatFloat(progress, 'f', 1, 64),
	}
}

// NextBirthday returns the next calendar occurrence of dob's month/day
// strictly after now, at midnight in now's location.
//
// Go's time.Date normalizes Feb 29 to March 1st in non-leap years; that
// normalization is the leapling policy here, matching how the calendar
// projection treats truncated dates elsewhere in the app.
func NextBirthday(dob, now time.Time) time.Time {
	loc := now.Location()
	candidate := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, loc)
	if !candidate.After(now) {
		candidate = time.Date(now.Year()+1, dob.Month(), dob.Day(), 0, 0, 0, 0, loc)
	}
	return candidate
}

// LastBirthday returns the most recent occurrence of dob's month/day at or
// before now, at midnight in now's location.
func LastBirthday(dob, now time.Time) time.Time {
	loc := now.Location()
	last := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, loc)
	if last.After(now) {
		last = time.Date(now.Year()-1, dob.Month(), dob.Day(), 0, 0, 0, 0, loc)
	}
	return last
}

// IsBirthday reports whether now falls on dob's month/day.
func IsBirthday(dob, now time.Time) bool {
	return now.Day() == dob.Day() && now.Month() == dob.Month()
}

// MilestoneDate computes the exact crossing instant for a threshold:
// dob plus value whole units. This is the timestamp recorded in history,
// independent of when the crossing was detected.
func MilestoneDate(dob time.Time, value int64, unit string) time.Time {
	return dob.Add(time.Duration(value*unitMillis(unit)) * time.Millisecond)
}

func unitMillis(unit string) int64 {
	switch unit {
	case config.UnitDays:
		return config.MillisPerDay
	case config.UnitHours:
		return config.MillisPerHour
	case config.UnitSeconds:
		return config.MillisPerSecond
	}
	return 0
}

// currentValue picks the lived total matching a milestone unit.
func currentValue(stats Statistics, unit string) int64 {
	switch unit {
	case config.UnitDays:
		return stats.DaysLived
	case config.UnitHours:
		return stats.HoursLived
	case config.UnitSeconds:
		return stats.SecondsLived
	}
	return 0
}
