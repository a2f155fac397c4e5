// Package cache is the on-device persistence layer: a small key-value
// contract plus the typed DeviceCache that the billing wrappers mutate.
// All mutation happens on the billing controller thread, so implementations
// only need per-key atomicity, not cross-key transactions.
package cache

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cache key not found")

// Store is the key-value store backing the device cache.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}
