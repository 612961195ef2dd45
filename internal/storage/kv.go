// Package storage holds the durable key-value layer the ledger snapshots
// into. Each key stores one full serialized collection and is overwritten
// wholesale on every write.
package storage

import (
	"context"
	"errors"
)

// KV is a durable key-value store of opaque snapshot blobs.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

var ErrEmptyKey = errors.New("empty snapshot key")
