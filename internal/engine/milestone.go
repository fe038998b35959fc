package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
)

// Milestone is one fixed threshold from the build-time catalog.
type Milestone struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
	Unit  string `json:"unit"`
}

// Catalog is the fixed milestone set, evaluated in this order. Each entry is
// celebrated exactly once.
var Catalog = []Milestone{
	{Name: "1,000 Days", Value: 1000, Unit: config.UnitDays},
	{Name: "5,000 Days", Value: 5000, Unit: config.UnitDays},
	{Name: "10,000 Days", Value: 10000, Unit: config.UnitDays},
	{Name: "15,000 Days", Value: 15000, Unit: config.UnitDays},
	{Name: "20,000 Days", Value: 20000, Unit: config.UnitDays},
	{Name: "100,000 Hours", Value: 100000, Unit: config.UnitHours},
	{Name: "250,000 Hours", Value: 250000, Unit: config.UnitHours},
	{Name: "500,000 Hours", Value: 500000, Unit: config.UnitHours},
	{Name: "1,000,000 Hours", Value: 1000000, Unit: config.UnitHours},
	{Name: "1 Billion Seconds", Value: 1000000000, Unit: config.UnitSeconds},
	{Name: "2 Billion Seconds", Value: 2000000000, Unit: config.UnitSeconds},
}

// Record is one history entry. Date is the computed crossing instant, not
// the wall-clock time of detection, so a corrected date of birth can rewrite
// it deterministically.
type Record struct {
	Name  string    `json:"name"`
	Date  time.Time `json:"date"`
	Value int64     `json:"value"`
	Unit  string    `json:"unit"`
}

// Upcoming pairs a milestone with the distance still to cover.
type Upcoming struct {
	Milestone
	Remaining     int64 `json:"remaining"`
	RemainingDays int64 `json:"remainingDays"`
}

// Tracker owns the milestone history and the celebrated set. History is kept
// in insertion order (newest first) and capped; the celebrated set only
// grows, except on Reset.
type Tracker struct {
	mu         sync.Mutex
	store      *storage.Coalescer
	history    []Record
	celebrated map[string]struct{}
}

// NewTracker returns an empty tracker persisting through store.
func NewTracker(store *storage.Coalescer) *Tracker {
	return &Tracker{
		store:      store,
		celebrated: make(map[string]struct{}),
	}
}

// Load pulls history and the celebrated set from storage. Missing keys
// default to empty. The pair is written as a best-effort group, so Load
// reconciles: every name present in history is folded into the celebrated
// set even if the paired write was lost.
func (t *Tracker) Load(ctx context.Context) error {
	data, err := t.store.Get(ctx, config.KeyMilestoneHistory, config.KeyCelebrated)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageGet, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = nil
	t.celebrated = make(map[string]struct{})

	var history []Record
	if ok, err := storage.Decode(data[config.KeyMilestoneHistory], &history); err != nil {
		slog.Warn(config.ErrDecodeValue,
			config.LogKeyComponent, config.CompMilestone,
			config.LogKeyKey, config.KeyMilestoneHistory,
			config.LogKeyError, err,
		)
	} else if ok {
		t.history = history
	}

	var names []string
	if ok, err := storage.Decode(data[config.KeyCelebrated], &names); err != nil {
		slog.Warn(config.ErrDecodeValue,
			config.LogKeyComponent, config.CompMilestone,
			config.LogKeyKey, config.KeyCelebrated,
			config.LogKeyError, err,
		)
	} else if ok {
		for _, n := range names {
			t.celebrated[n] = struct{}{}
		}
	}

	for _, r := range t.history {
		t.celebrated[r.Name] = struct{}{}
	}
	return nil
}

// Check evaluates every uncelebrated catalog entry against the lived totals
// at now and returns the ones just reached, in catalog order. Each newly
// reached milestone is marked celebrated, prepended to history with its
// exact crossing instant, and both keys are persisted together.
func (t *Tracker) Check(dob, now time.Time) []Milestone {
	stats := AgeStatistics(dob, now)

	t.mu.Lock()
	defer t.mu.Unlock()

	var reached []Milestone
	for _, m := range Catalog {
		if _, done := t.celebrated[m.Name]; done {
			continue
		}
		if currentValue(stats, m.Unit) < m.Value {
			continue
		}

		t.celebrated[m.Name] = struct{}{}
		rec := Record{
			Name:  m.Name,
			Date:  MilestoneDate(dob, m.Value, m.Unit).UTC(),
			Value: m.Value,
			Unit:  m.Unit,
		}
		t.history = append([]Record{rec}, t.history...)
		if len(t.history) > config.MaxMilestoneHistory {
			t.history = t.history[:config.MaxMilestoneHistory]
		}
		reached = append(reached, m)

		slog.Info(config.MsgMilestoneReached,
			config.LogKeyComponent, config.CompMilestone,
			config.LogKeyName, m.Name,
			config.LogKeyValue, m.Value,
		)
	}

	if len(reached) > 0 {
		t.persistLocked()
	}
	return reached
}

// Next returns the uncelebrated milestone with the least remaining distance
// (catalog order breaks ties), or nil when everything is celebrated.
func (t *Tracker) Next(dob, now time.Time) *Upcoming {
	stats := AgeStatistics(dob, now)

	t.mu.Lock()
	defer t.mu.Unlock()

	var next *Upcoming
	for _, m := range Catalog {
		if _, done := t.celebrated[m.Name]; done {
			continue
		}
		current := currentValue(stats, m.Unit)
		if current >= m.Value {
			continue
		}
		diff := m.Value - current
		if next == nil || diff < next.Remaining {
			next = &Upcoming{
				Milestone:     m,
				Remaining:     diff,
				RemainingDays: remainingDays(diff, m.Unit),
			}
		}
	}
	return next
}

// UpcomingAll lists every unreached milestone sorted by remaining distance.
func (t *Tracker) UpcomingAll(dob, now time.Time) []Upcoming {
	stats := AgeStatistics(dob, now)

	t.mu.Lock()
	defer t.mu.Unlock()

	var upcoming []Upcoming
	for _, m := range Catalog {
		if _, done := t.celebrated[m.Name]; done {
			continue
		}
		current := currentValue(stats, m.Unit)
		if current >= m.Value {
			continue
		}
		diff := m.Value - current
		upcoming = append(upcoming, Upcoming{
			Milestone:     m,
			Remaining:     diff,
			RemainingDays: remainingDays(diff, m.Unit),
		})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Remaining < upcoming[j].Remaining
	})
	return upcoming
}

// History returns a copy of the reached milestones sorted by crossing
// instant, newest first. Storage order (insertion order) is untouched.
func (t *Tracker) History() []Record {
	t.mu.Lock()
	out := make([]Record, len(t.history))
	copy(out, t.history)
	t.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// Celebrated reports whether name has been celebrated.
func (t *Tracker) Celebrated(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.celebrated[name]
	return ok
}

// Recalculate recomputes each history entry's crossing instant from its
// stored threshold against dob, rewriting entries in place when they differ.
// Persists only when something changed, so a second call with the same dob
// performs no write.
func (t *Tracker) Recalculate(dob time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	updated := false
	for i := range t.history {
		correct := MilestoneDate(dob, t.history[i].Value, t.history[i].Unit).UTC()
		if !t.history[i].Date.Equal(correct) {
			t.history[i].Date = correct
			updated = true
		}
	}
	if updated {
		t.persistLocked()
		slog.Info(config.MsgMilestonesRecalc,
			config.LogKeyComponent, config.CompMilestone,
			config.LogKeyCount, len(t.history),
		)
	}
}

// Reset clears all milestone state and removes both keys from storage.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	t.history = nil
	t.celebrated = make(map[string]struct{})
	t.mu.Unlock()
	return t.store.Remove(ctx, config.KeyMilestoneHistory, config.KeyCelebrated)
}

// persistLocked schedules the paired write of history and the celebrated
// set. Caller holds t.mu. The celebrated list is serialized in catalog order
// so the stored bytes are deterministic.
func (t *Tracker) persistLocked() {
	history := make([]Record, len(t.history))
	copy(history, t.history)

	names := make([]string, 0, len(t.celebrated))
	for _, m := range Catalog {
		if _, ok := t.celebrated[m.Name]; ok {
			names = append(names, m.Name)
		}
	}

	t.store.SetMultiple(map[string]any{
		config.KeyMilestoneHistory: history,
		config.KeyCelebrated:       names,
	})
}

func remainingDays(remaining int64, unit string) int64 {
	switch unit {
	case config.UnitDays:
		return remaining
	case config.UnitHours:
		return remaining / 24
	case config.UnitSeconds:
		return remaining / (24 * 3600)
	}
	return 0
}
