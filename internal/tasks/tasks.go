// Package tasks manages the persisted to-do list.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/idgen"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
)

// Todo is one list entry. The id doubles as the uniqueness key for toggle
// and delete.
type Todo struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Stats summarizes the list for the widget header.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Manager owns the ordered to-do list. Operations never reorder entries;
// deletion removes exactly one element.
type Manager struct {
	mu    sync.Mutex
	store *storage.Coalescer
	ids   *idgen.Source
	todos []Todo
}

// NewManager returns an empty manager persisting through store.
func NewManager(store *storage.Coalescer, ids *idgen.Source) *Manager {
	return &Manager{store: store, ids: ids}
}

// Load pulls the persisted list; a missing key defaults to empty.
func (m *Manager) Load(ctx context.Context) error {
	data, err := m.store.Get(ctx, config.KeyTodos)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageGet, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.todos = nil
	var todos []Todo
	if ok, decErr := storage.Decode(data[config.KeyTodos], &todos); decErr != nil {
		slog.Warn(config.ErrDecodeValue,
			config.LogKeyComponent, config.CompTasks,
			config.LogKeyKey, config.KeyTodos,
			config.LogKeyError, decErr,
		)
	} else if ok {
		m.todos = todos
	}
	return nil
}

// Add appends a new entry. Empty or whitespace-only text is a silent no-op
// returning nil, not an error.
func (m *Manager) Add(text string) *Todo {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		slog.Debug(config.MsgTodoRejected, config.LogKeyComponent, config.CompTasks)
		return nil
	}

	todo := Todo{
		ID:   m.ids.Next(),
		Text: trimmed,
	}

	m.mu.Lock()
	m.todos = append(m.todos, todo)
	m.persistLocked()
	m.mu.Unlock()

	slog.Debug(config.MsgTodoAdded,
		config.LogKeyComponent, config.CompTasks,
		config.LogKeyID, todo.ID,
	)
	return &todo
}

// Toggle flips the completed flag of the entry with id. Returns false when
// no entry matches.
func (m *Manager) Toggle(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos[i].Completed = !m.todos[i].Completed
			m.persistLocked()
			return true
		}
	}
	return false
}

// Delete removes the entry with id, preserving the order of the rest.
// Returns false when no entry matches.
func (m *Manager) Delete(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			m.persistLocked()
			return true
		}
	}
	return false
}

// ClearAll empties the list.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.todos = nil
	m.persistLocked()
}

// All returns a copy of the list in insertion order.
func (m *Manager) All() []Todo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Todo, len(m.todos))
	copy(out, m.todos)
	return out
}

// Pending returns the not-yet-completed entries.
func (m *Manager) Pending() []Todo {
	return m.filter(false)
}

// Completed returns the completed entries.
func (m *Manager) Completed() []Todo {
	return m.filter(true)
}

// TaskStats summarizes the list.
func (m *Manager) TaskStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := Stats{Total: len(m.todos)}
	for _, t := range m.todos {
		if t.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}

// Export serializes the list as indented JSON.
func (m *Manager) Export() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, err := json.MarshalIndent(m.todos, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(out)
}

// Import replaces the list with a parsed JSON array. Anything that is not
// an array rejects the import with no state change.
func (m *Manager) Import(data []byte) error {
	var incoming []Todo
	if err := json.Unmarshal(data, &incoming); err != nil {
		return fmt.Errorf("%s: %w", config.ErrDecodeValue, err)
	}

	m.mu.Lock()
	m.todos = incoming
	m.persistLocked()
	m.mu.Unlock()
	return nil
}

func (m *Manager) filter(completed bool) []Todo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Todo
	for _, t := range m.todos {
		if t.Completed == completed {
			out = append(out, t)
		}
	}
	return out
}

// persistLocked schedules a debounced write of the list. Caller holds m.mu.
func (m *Manager) persistLocked() {
	todos := make([]Todo, len(m.todos))
	copy(todos, m.todos)
	m.store.Set(config.KeyTodos, todos)
}
