package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
)

// Timer is the handle returned by a scheduled debounce window.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d. Production code uses time.AfterFunc;
// tests inject a manual scheduler so the debounce window can be driven
// deterministically.
type AfterFunc func(d time.Duration, fn func()) Timer

func realAfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

type pendingWrite struct {
	timer Timer
	keys  []string
}

// Coalescer fronts a Store with an in-memory cache and per-key debounce
// timers. A new write to a key cancels that key's pending timer and starts a
// fresh window, so only the latest value reaches the store. Writes to
// distinct keys are independent.
//
// The cache is authoritative: a failed store write is logged and the cached
// value stays in place until the next mutation retriggers a write.
type Coalescer struct {
	mu      sync.Mutex
	store   Store
	delay   time.Duration
	after   AfterFunc
	cache   map[string]any
	pending map[string]*pendingWrite
}

// NewCoalescer wraps store with the default debounce delay and timer.
func NewCoalescer(store Store) *Coalescer {
	return NewCoalescerWithTimer(store, config.StorageDebounce, realAfterFunc)
}

// NewCoalescerWithTimer wraps store with an explicit delay and scheduler.
func NewCoalescerWithTimer(store Store, delay time.Duration, after AfterFunc) *Coalescer {
	return &Coalescer{
		store:   store,
		delay:   delay,
		after:   after,
		cache:   make(map[string]any),
		pending: make(map[string]*pendingWrite),
	}
}

// Get returns stored values for the requested keys, with cached (possibly
// not yet flushed) values taking precedence over the backing store.
func (c *Coalescer) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out, err := c.store.Get(ctx, keys...)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		v, ok := c.cache[k]
		if !ok {
			continue
		}
		encoded, encErr := encodeValue(v)
		if encErr != nil {
			continue
		}
		out[k] = json.RawMessage(encoded)
	}
	return out, nil
}

// Set caches value under key and schedules a debounced write.
func (c *Coalescer) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = value
	c.scheduleLocked(key, []string{key})
}

// SetMultiple caches every value and schedules one debounced write covering
// all of them. The backing store applies the group atomically when it can.
func (c *Coalescer) SetMultiple(values map[string]any) {
	if len(values) == 0 {
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.cache[k] = v
		// A stale single-key window for any member would write a duplicate.
		if p, ok := c.pending[k]; ok {
			p.timer.Stop()
			delete(c.pending, k)
		}
	}
	c.scheduleLocked(groupID(keys), keys)
}

// SetNow writes key synchronously, bypassing the debounce window. Any
// pending window for the key is cancelled. Used for the one-time DOB save,
// where the caller needs to react to failure.
func (c *Coalescer) SetNow(ctx context.Context, key string, value any) error {
	c.mu.Lock()
	c.cache[key] = value
	if p, ok := c.pending[key]; ok {
		p.timer.Stop()
		delete(c.pending, key)
	}
	c.mu.Unlock()
	return c.store.Set(ctx, key, value)
}

// Remove drops the keys from the cache, cancels their pending writes and
// deletes them from the store immediately.
func (c *Coalescer) Remove(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.cache, k)
		if p, ok := c.pending[k]; ok {
			p.timer.Stop()
			delete(c.pending, k)
		}
	}
	c.mu.Unlock()
	return c.store.Remove(ctx, keys...)
}

// Cached returns the in-memory value for key, if any.
func (c *Coalescer) Cached(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache[key]
	return v, ok
}

// PendingCount reports how many debounce windows are currently open.
func (c *Coalescer) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush cancels every open window and writes the affected values now.
// Called on teardown so a debounced value is not lost to process exit.
func (c *Coalescer) Flush(ctx context.Context) error {
	c.mu.Lock()
	drained := c.pending
	c.pending = make(map[string]*pendingWrite)
	c.mu.Unlock()

	var errs []error
	for _, p := range drained {
		p.timer.Stop()
		if err := c.write(ctx, p.keys); err != nil {
			errs = append(errs, err)
		}
	}
	if len(drained) > 0 {
		slog.Debug(config.MsgWriteFlushed,
			config.LogKeyComponent, config.CompStorage,
			config.LogKeyCount, len(drained),
		)
	}
	return errors.Join(errs...)
}

// scheduleLocked opens (or restarts) the debounce window identified by id.
// Caller holds c.mu.
func (c *Coalescer) scheduleLocked(id string, keys []string) {
	if p, ok := c.pending[id]; ok {
		p.timer.Stop()
	}
	c.pending[id] = &pendingWrite{
		keys:  keys,
		timer: c.after(c.delay, func() { c.fire(id) }),
	}
}

// fire runs when a debounce window expires.
func (c *Coalescer) fire(id string) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		// Cancelled or flushed between expiry and lock acquisition.
		return
	}
	// write logs failures itself; the cache remains the source of truth.
	_ = c.write(context.Background(), p.keys)
}

// write persists the current cached values for keys, logging failures.
func (c *Coalescer) write(ctx context.Context, keys []string) error {
	c.mu.Lock()
	values := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := c.cache[k]; ok {
			values[k] = v
		}
	}
	c.mu.Unlock()
	if len(values) == 0 {
		return nil
	}

	var err error
	if len(values) == 1 {
		for k, v := range values {
			err = c.store.Set(ctx, k, v)
		}
	} else {
		err = c.store.SetMultiple(ctx, values)
	}
	if err != nil {
		slog.Error(config.MsgWriteFailed,
			config.LogKeyComponent, config.CompStorage,
			config.LogKeyKey, strings.Join(keys, ","),
			config.LogKeyError, err,
		)
	}
	return err
}

func groupID(sortedKeys []string) string {
	return strings.Join(sortedKeys, "\x00")
}
