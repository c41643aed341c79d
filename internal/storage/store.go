// Package storage provides the persistence gateway for the ledger.
//
// The external store is a plain key-value store: string keys, opaque byte
// values. LedgerStore layers JSON-serialized record collections on top of a
// KV backend; it is the only component that talks to the store.
package storage

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV.Get when the key has never been written.
var ErrKeyNotFound = errors.New("key not found")

// KV is the interface a storage backend must implement. This abstraction
// allows swapping backends (SQLite, Redis, in-memory) without changing the
// ledger layer.
type KV interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
