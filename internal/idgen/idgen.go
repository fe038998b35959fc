// Package idgen provides the integer id source for user-created records and
// short random session identifiers backed by nanoid.
package idgen

import (
	"fmt"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for session identifiers.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters in a session identifier.
var Length = 10

// SessionPrefix is prepended to every session identifier.
var SessionPrefix = "ses-"

// Source hands out millisecond-seeded integer ids. Two calls within the same
// millisecond still produce distinct ids, which keeps the integer shape of
// timestamp ids without their collision gap.
type Source struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewSource returns a Source seeded from the wall clock.
func NewSource() *Source {
	return NewSourceWithClock(time.Now)
}

// NewSourceWithClock returns a Source with an injectable time function.
func NewSourceWithClock(now func() time.Time) *Source {
	return &Source{now: now}
}

// Next returns a unique, strictly increasing id.
func (s *Source) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Session returns a short random identifier used to tag one dashboard
// session in logs and crash entries.
func Session() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return SessionPrefix + id, nil
}
