package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

// Cache is a JSON value cache with per-key TTL. A Redis outage degrades to
// calling the refresh function on every read.
type Cache struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewCache(client *redis.Client, log zerolog.Logger) *Cache {
	return &Cache{client: client, log: log}
}

func (c *Cache) GetOrRefresh(ctx context.Context, name string, ttl time.Duration, dst any, refresh ports.RefreshFunc) error {
	raw, err := c.client.Get(ctx, key("cache", name)).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dst); jsonErr == nil {
			return nil
		}
		c.log.Warn().Str("key", name).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn().Err(err).Str("key", name).Msg("cache read failed, refreshing")
	}

	v, err := refresh(ctx)
	if err != nil {
		return err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, key("cache", name), raw, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", name).Msg("cache write failed")
	}
	return json.Unmarshal(raw, dst)
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = key("cache", k)
	}
	return c.client.Del(ctx, prefixed...).Err()
}
