// Package docstore is the persistence boundary: whole-document values stored
// under a key, plus atomic counters.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("docstore: key not found")

// Store holds one JSON document per logical collection.
type Store interface {
	// Get returns the document stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the document stored under key.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Incr atomically increments the counter under key and returns the new
	// value. A missing counter starts at zero.
	Incr(ctx context.Context, key string) (int64, error)
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Backends understood by Open.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Options selects and addresses a backend.
type Options struct {
	Backend     string
	DatabaseURL string
	RedisURL    string
	SQLitePath  string
}

// Open connects to the backend selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendPostgres:
		s, err = OpenPostgres(ctx, opts.DatabaseURL)
	case BackendRedis:
		s, err = OpenRedis(ctx, opts.RedisURL, DefaultRedisPrefix)
	case BackendSQLite:
		s, err = OpenSQLite(ctx, opts.SQLitePath)
	case BackendMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("docstore: unknown backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetJSON decodes the document under key into v. found is false when the key
// is absent, in which case v is left untouched.
func GetJSON(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("docstore: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
