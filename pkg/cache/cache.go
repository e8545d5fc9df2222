package cache

// Package cache defines the TTL key/value store used for read-through
// caching of hot list views. The cache is strictly an optimization: every
// caller must treat errors (and misses) as "fall through to storage" and
// never let a cache failure surface to the request.

import (
	"context"
	"time"
)

// Cache is a string key/value store with per-entry TTL. Values are opaque
// serialized payloads; entries are only ever written whole, never patched.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetTTL stores value under key, expiring after ttl.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// Incr increments the counter stored at key by one, refreshing its TTL,
	// and returns the new value. A missing or expired key starts at zero.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}
