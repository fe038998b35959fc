// Package settings holds the fixed preference record and its persistence.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
)

// Settings is the fixed preference record persisted under the settings key.
type Settings struct {
	ShowStats         bool   `json:"showStats"`
	ShowMilestones    bool   `json:"showMilestones"`
	ShowClock         bool   `json:"showClock"`
	ShowTodo          bool   `json:"showTodo"`
	ShowAnniversaries bool   `json:"showAnniversaries"`
	ShowAnimation     bool   `json:"showAnimation"`
	Theme             string `json:"theme"`
}

// Defaults returns the hard-coded default preferences.
func Defaults() Settings {
	return Settings{
		ShowAnimation: true,
		Theme:         config.ThemeDark,
	}
}

// knownKeys is the closed set of recognized setting keys, in display order.
var knownKeys = []string{
	config.SettingShowStats,
	config.SettingShowMilestones,
	config.SettingShowClock,
	config.SettingShowTodo,
	config.SettingShowAnniversaries,
	config.SettingShowAnimation,
	config.SettingTheme,
}

// apply sets one key on the record, rejecting unknown keys and wrong value
// types. Theme only accepts the two known theme names.
func (s *Settings) apply(key string, value any) error {
	if key == config.SettingTheme {
		theme, ok := value.(string)
		if !ok || (theme != config.ThemeDark && theme != config.ThemeLight) {
			return fmt.Errorf("%s: %q", config.ErrBadSettingValue, key)
		}
		s.Theme = theme
		return nil
	}

	target := s.boolField(key)
	if target == nil {
		return fmt.Errorf("%s: %q", config.ErrUnknownSetting, key)
	}
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%s: %q", config.ErrBadSettingValue, key)
	}
	*target = b
	return nil
}

// value reads one key off the record.
func (s Settings) value(key string) (any, bool) {
	if key == config.SettingTheme {
		return s.Theme, true
	}
	if target := s.boolField(key); target != nil {
		return *target, true
	}
	return nil, false
}

func (s *Settings) boolField(key string) *bool {
	switch key {
	case config.SettingShowStats:
		return &s.ShowStats
	case config.SettingShowMilestones:
		return &s.ShowMilestones
	case config.SettingShowClock:
		return &s.ShowClock
	case config.SettingShowTodo:
		return &s.ShowTodo
	case config.SettingShowAnniversaries:
		return &s.ShowAnniversaries
	case config.SettingShowAnimation:
		return &s.ShowAnimation
	}
	return nil
}

// Listener receives (key, newValue) after every successful mutation. Bulk
// reset and import additionally fire the wildcard key with the full record.
type Listener func(key string, value any)

// Store is the typed settings store. It caches the current record and
// persists through the write-coalescing storage layer.
type Store struct {
	mu        sync.Mutex
	store     *storage.Coalescer
	current   Settings
	listeners []Listener
}

// New returns a Store holding the defaults until Load runs.
func New(store *storage.Coalescer) *Store {
	return &Store{
		store:   store,
		current: Defaults(),
	}
}

// Load merges persisted settings over the defaults. Persisted values win
// per-key; unknown or type-mismatched persisted entries are skipped, so a
// partially corrupt record degrades to defaults instead of failing.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	data, err := s.store.Get(ctx, config.KeySettings)
	if err != nil {
		return s.All(), fmt.Errorf("%s: %w", config.ErrStorageGet, err)
	}

	merged := Defaults()
	var persisted map[string]any
	if ok, decErr := storage.Decode(data[config.KeySettings], &persisted); decErr != nil {
		slog.Warn(config.ErrDecodeValue,
			config.LogKeyComponent, config.CompSettings,
			config.LogKeyKey, config.KeySettings,
			config.LogKeyError, decErr,
		)
	} else if ok {
		for _, key := range knownKeys {
			value, present := persisted[key]
			if !present {
				continue
			}
			if applyErr := merged.apply(key, value); applyErr != nil {
				slog.Warn(config.ErrBadSettingValue,
					config.LogKeyComponent, config.CompSettings,
					config.LogKeyKey, key,
				)
			}
		}
	}

	s.mu.Lock()
	s.current = merged
	s.mu.Unlock()
	return merged, nil
}

// All returns a copy of the current record.
func (s *Store) All() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Get reads a single setting by key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.value(key)
}

// Set applies one key and schedules a persisted write of the full record.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	if err := s.current.apply(key, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.persistLocked()
	s.mu.Unlock()

	slog.Debug(config.MsgSettingChanged,
		config.LogKeyComponent, config.CompSettings,
		config.LogKeyKey, key,
	)
	s.notify(key, value)
	return nil
}

// Toggle flips a boolean setting and returns the new value.
func (s *Store) Toggle(key string) (bool, error) {
	s.mu.Lock()
	current, ok := s.current.value(key)
	b, isBool := current.(bool)
	if !ok || !isBool {
		s.mu.Unlock()
		return false, fmt.Errorf("%s: %q", config.ErrBadSettingValue, key)
	}
	// apply cannot fail here: the key is known and the value is a bool.
	_ = s.current.apply(key, !b)
	s.persistLocked()
	s.mu.Unlock()

	s.notify(key, !b)
	return !b, nil
}

// Update applies a multi-key patch atomically in memory with a single
// persisted write. Any invalid key or value rejects the whole patch.
func (s *Store) Update(patch map[string]any) error {
	s.mu.Lock()
	next := s.current
	for key, value := range patch {
		if err := next.apply(key, value); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.current = next
	s.persistLocked()
	s.mu.Unlock()

	for key, value := range patch {
		s.notify(key, value)
	}
	return nil
}

// Reset restores the defaults and fires the wildcard notification.
func (s *Store) Reset() {
	s.mu.Lock()
	s.current = Defaults()
	s.persistLocked()
	record := s.current
	s.mu.Unlock()

	slog.Info(config.MsgSettingsReset, config.LogKeyComponent, config.CompSettings)
	s.notify(config.SettingWildcard, record)
}

// Export serializes the current record as indented JSON.
func (s *Store) Export() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// Import parses a JSON object and applies it as an Update. The import is
// rejected wholesale, with no state change, when any key is unrecognized or
// any value has the wrong type. A partial key set is acceptable.
func (s *Store) Import(data []byte) error {
	var incoming map[string]any
	if err := json.Unmarshal(data, &incoming); err != nil {
		return fmt.Errorf("%s: %w", config.ErrImportRejected, err)
	}
	if err := s.Update(incoming); err != nil {
		return fmt.Errorf("%s: %w", config.ErrImportRejected, err)
	}

	slog.Info(config.MsgSettingsImported,
		config.LogKeyComponent, config.CompSettings,
		config.LogKeyCount, len(incoming),
	)
	s.notify(config.SettingWildcard, s.All())
	return nil
}

// OnChange registers a mutation listener.
func (s *Store) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// persistLocked schedules a debounced write of the full record. Caller
// holds s.mu.
func (s *Store) persistLocked() {
	s.store.Set(config.KeySettings, s.current)
}

// notify fans a change out to the listeners. A panicking listener is logged
// and must not break the store or the remaining listeners.
func (s *Store) notify(key string, value any) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error(config.ErrAppFailed,
						config.LogKeyComponent, config.CompSettings,
						config.LogKeyError, fmt.Sprint(r),
					)
				}
			}()
			l(key, value)
		}()
	}
}
