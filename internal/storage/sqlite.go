package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	_ "modernc.org/sqlite"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

const (
	kvUpsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`
	kvSelect = `SELECT key, value FROM kv WHERE key IN (%s);`
	kvDelete = `DELETE FROM kv WHERE key IN (%s);`
	kvClear  = `DELETE FROM kv;`
)

// SQLiteStore implements Store over a single SQLite file.
//
// One file backs the whole dashboard so multi-key writes can share a
// transaction, which is what keeps the milestone history and the celebrated
// set from drifting apart on a crash.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the dashboard database and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(config.ErrDBPathEmpty)
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrOpenDB, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrPingDB, err)
	}

	if _, err := db.Exec(kvSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrMigrateDB, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the stored values for the requested keys. Keys without a
// stored value are absent from the result.
func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(kvSelect, placeholders(len(keys)))
	rows, err := s.db.QueryContext(ctx, query, keyArgs(keys)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStorageGet, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrStorageGet, err)
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStorageGet, err)
	}
	return out, nil
}

// Set stores a single value under key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key string, value any) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, kvUpsert, key, encoded, nowMillis()); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSet, err)
	}
	return nil
}

// SetMultiple stores several values in one transaction. Either every key is
// written or none is.
func (s *SQLiteStore) SetMultiple(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSet, err)
	}

	stamp := nowMillis()
	for key, value := range values {
		encoded, err := encodeValue(value)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, kvUpsert, key, encoded, stamp); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: %w", config.ErrStorageSet, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSet, err)
	}
	return nil
}

// Remove deletes the given keys. Missing keys are not an error.
func (s *SQLiteStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := fmt.Sprintf(kvDelete, placeholders(len(keys)))
	if _, err := s.db.ExecContext(ctx, query, keyArgs(keys)...); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageRemove, err)
	}
	return nil
}

// Clear deletes every stored key.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, kvClear); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageClear, err)
	}
	return nil
}

// nowMillis normalizes timestamps into millisecond precision for storage.
func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func keyArgs(keys []string) []any {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args
}
