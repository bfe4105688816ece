// Package cache stores byte blobs for the case-file pipeline.
//
// [NullCache] disables caching and [FileCache] keeps entries under a local
// directory (the CLI default). [RedisCache] and [MongoCache] share them
// through a server. Keys come from a [Keyer]; every key embeds the SHA-256
// of the case file bytes, so editing a case file invalidates its entries
// without explicit eviction.
package cache

import (
	"context"
	"time"
)

// Default time-to-live of cached entries.
const (
	SummaryTTL = 7 * 24 * time.Hour
	RenderTTL  = 7 * 24 * time.Hour
)

// Cache is a byte cache with per-entry expiration.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}
