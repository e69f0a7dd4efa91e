package cache

import (
	"context"
	"time"
)

// Store is a key-value store with per-entry absolute TTL. Entries are
// immutable once written; a second write under the same key replaces the
// whole value (last writer wins).
type Store interface {
	// Get returns the value for key, or ok=false on a miss or an
	// expired entry.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set writes value under key, expiring after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Close() error
}
