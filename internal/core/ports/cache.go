package ports

import (
	"context"
	"time"
)

// RefreshFunc recomputes a cached value.
type RefreshFunc func(ctx context.Context) (any, error)

// Cache stores JSON-serialisable values under explicit keys and TTLs.
type Cache interface {
	// GetOrRefresh decodes the cached value for key into dst. On a miss it
	// calls refresh, stores the result for ttl and decodes that into dst.
	GetOrRefresh(ctx context.Context, key string, ttl time.Duration, dst any, refresh RefreshFunc) error
	Invalidate(ctx context.Context, keys ...string) error
}
