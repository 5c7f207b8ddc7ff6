// Package storage defines the durable key-value contract the progress ledger
// is persisted through. Backends live in the subpackages.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has never been written
var ErrNotFound = errors.New("not found")

// KV is a durable key-value store holding opaque values
type KV interface {
	// Get returns the value stored under key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key
	Put(ctx context.Context, key string, value []byte) error

	// Close releases the underlying resources
	Close() error
}
