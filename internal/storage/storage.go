// Package storage persists the record snapshot and per-model golden batch
// pointers as opaque values under string keys.
//
// Backends:
//   - file: one file per key in a directory (default)
//   - sqlite: a kv table in a local database file
//   - postgres: a kv table reached through a pgx pool
//   - redis: plain string keys under a prefix
//   - memory: process-local map for tests and ephemeral runs
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// Backend is a key/value store. Implementations are safe for concurrent use.
type Backend interface {
	// Get returns the value of key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}
