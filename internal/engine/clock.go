package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// The orchestrator reads it once per tick and passes the instant down, so
// every derived value within a tick agrees on "now".
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}
