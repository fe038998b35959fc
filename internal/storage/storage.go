// Package storage provides the persistent key-value store backing all
// dashboard state, plus the write-coalescing cache that sits in front of it.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
)

// Store is the key-value contract consumed by every stateful manager.
// Values are JSON-serializable; keys with no stored value are simply absent
// from the Get result, never an error.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, key string, value any) error
	SetMultiple(ctx context.Context, values map[string]any) error
	Remove(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

// Decode unmarshals a raw stored value into out. A missing (nil) raw value
// leaves out untouched and reports false.
func Decode(raw json.RawMessage, out any) (bool, error) {
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%s: %w", config.ErrDecodeValue, err)
	}
	return true, nil
}

func encodeValue(value any) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrEncodeValue, err)
	}
	return string(b), nil
}
