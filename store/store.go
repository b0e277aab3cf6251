// Package store defines the key-value store interface and its backends.
package store

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by CompareAndSet when the stored version no
// longer matches the one the caller read.
var ErrVersionConflict = errors.New("store: version conflict")

// Entry is a stored value together with its version. Versions start at 1 on
// the first write and increase by one on every write; the zero Entry means
// the key is absent.
type Entry struct {
	Value   []byte
	Version uint64
}

// Found reports whether the key existed.
func (e Entry) Found() bool {
	return e.Version > 0
}

// Store is the interface that all backing stores must implement.
// A single Get or a single write is atomic. A Get followed by Set is not:
// callers that need read-modify-write semantics use CompareAndSet.
type Store interface {
	// Get returns the entry for key, or the zero Entry if it does not exist.
	Get(ctx context.Context, key string) (Entry, error)

	// Set unconditionally replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// CompareAndSet replaces the value only if the current version equals
	// version (0 meaning the key must not exist yet). Returns
	// ErrVersionConflict otherwise.
	CompareAndSet(ctx context.Context, key string, value []byte, version uint64) error

	// Close releases backend resources.
	Close() error
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
