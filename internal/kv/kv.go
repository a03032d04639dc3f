// Package kv provides the key-value persistence layer. Every store in the
// application owns a disjoint key namespace and serializes its records as
// JSON values under those keys.
//
// Mutations go through Update, which applies a transform atomically against
// the latest stored value. Backends implement this with a lock (memory), a
// WATCH/MULTI transaction (Redis), or an optimistic version check (SQL), so
// two concurrent transforms of the same key never lose an update.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// ErrConflict is returned by Update when the transform kept losing the
// compare-and-swap race after the maximum number of retries.
var ErrConflict = errors.New("kv: concurrent update conflict")

// maxUpdateRetries bounds how often a backend replays a contended transform.
const maxUpdateRetries = 5

// UpdateFunc transforms the current value of a key into its next value.
// old is nil when the key does not exist yet. Returning an error aborts the
// update and propagates the error to the caller unchanged.
type UpdateFunc func(old []byte) ([]byte, error)

// Store is the persistence contract shared by all state stores.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set unconditionally overwrites the value under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Update atomically replaces the value under key with fn(current).
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
