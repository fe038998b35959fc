// Package crashlog keeps a bounded record of unexpected failures so a
// restart can detect a crash loop before re-entering the failing path.
package crashlog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/engine"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
)

// Entry is one recorded failure. Timestamp is Unix milliseconds.
type Entry struct {
	Timestamp int64  `json:"timestamp"`
	Context   string `json:"context"`
	Message   string `json:"message"`
	Stack     string `json:"stack"`
}

// Recorder owns the crash log. Entries are newest first and capped; writes
// bypass the debounce window because a crash may be followed by an exit.
type Recorder struct {
	mu      sync.Mutex
	store   *storage.Coalescer
	clock   engine.Clock
	entries []Entry
}

// NewRecorder returns an empty recorder persisting through store.
func NewRecorder(store *storage.Coalescer, clock engine.Clock) *Recorder {
	return &Recorder{store: store, clock: clock}
}

// Load pulls the persisted log; a missing key defaults to empty.
func (r *Recorder) Load(ctx context.Context) error {
	data, err := r.store.Get(ctx, config.KeyCrashLogs)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageGet, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	var entries []Entry
	if ok, decErr := storage.Decode(data[config.KeyCrashLogs], &entries); decErr != nil {
		slog.Warn(config.ErrDecodeValue,
			config.LogKeyComponent, config.CompCrashLog,
			config.LogKeyKey, config.KeyCrashLogs,
			config.LogKeyError, decErr,
		)
	} else if ok {
		r.entries = entries
	}
	return nil
}

// Record prepends a failure with the current goroutine stack and persists
// immediately. The log is capped at the newest entries.
func (r *Recorder) Record(ctx context.Context, failureContext string, failure error) error {
	entry := Entry{
		Timestamp: r.clock.Now().UnixMilli(),
		Context:   failureContext,
		Message:   failure.Error(),
		Stack:     string(debug.Stack()),
	}

	r.mu.Lock()
	r.entries = append([]Entry{entry}, r.entries...)
	if len(r.entries) > config.MaxCrashLogs {
		r.entries = r.entries[:config.MaxCrashLogs]
	}
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	slog.Error(config.MsgCrashRecorded,
		config.LogKeyComponent, config.CompCrashLog,
		config.LogKeyContext, failureContext,
		config.LogKeyError, failure,
	)

	if err := r.store.SetNow(ctx, config.KeyCrashLogs, entries); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSet, err)
	}
	return nil
}

// LoopDetected reports whether enough crashes landed inside the loop window
// to treat the process as crash-looping.
func (r *Recorder) LoopDetected() bool {
	cutoff := r.clock.Now().Add(-config.CrashLoopWindow).UnixMilli()

	r.mu.Lock()
	defer r.mu.Unlock()
	recent := 0
	for _, e := range r.entries {
		if e.Timestamp < cutoff {
			// Entries are newest first, nothing older qualifies.
			break
		}
		recent++
		if recent >= config.MaxCrashesInWindow {
			slog.Warn(config.MsgCrashLoop,
				config.LogKeyComponent, config.CompCrashLog,
				config.LogKeyCount, recent,
			)
			return true
		}
	}
	return false
}

// Logs returns a copy of the entries, newest first.
func (r *Recorder) Logs() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear empties the log and removes the persisted key.
func (r *Recorder) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
	return r.store.Remove(ctx, config.KeyCrashLogs)
}
