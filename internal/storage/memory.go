package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store used by tests and as a degraded
// fallback when the database cannot be opened. It counts writes per key so
// tests can assert on coalescing behavior, and can be forced to fail.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]json.RawMessage
	writes   map[string]int
	failWith error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]json.RawMessage),
		writes: make(map[string]int),
	}
}

// FailWith makes every subsequent operation return err. Pass nil to restore
// normal operation.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// WriteCount reports how many times key has been written.
func (m *MemoryStore) WriteCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[key]
}

// Len reports the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *MemoryStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value any) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.data[key] = json.RawMessage(encoded)
	m.writes[key]++
	return nil
}

func (m *MemoryStore) SetMultiple(ctx context.Context, values map[string]any) error {
	encoded := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		e, err := encodeValue(value)
		if err != nil {
			return err
		}
		encoded[key] = json.RawMessage(e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for key, raw := range encoded {
		m.data[key] = raw
		m.writes[key]++
	}
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.data = make(map[string]json.RawMessage)
	return nil
}
