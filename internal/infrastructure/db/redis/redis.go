// Package redis holds the Redis backed pieces of the service: the stats
// cache and the approval notification dedup store. Every key the package
// writes lives under the "mpt:" namespace.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace = "mpt"
	dialTimeout  = 5 * time.Second
)

// Config selects the Redis instance and logical database.
type Config struct {
	Addr       string
	Password   string
	DB         int
	ClientName string
}

// Connect returns a client for cfg once the server answers PING.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  cfg.ClientName,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, multiClose(err, client))
	}
	return client, nil
}

// key builds a namespaced key such as mpt:notify:approved:<id>.
func key(parts ...string) string {
	return keyNamespace + ":" + strings.Join(parts, ":")
}

func multiClose(err error, client *redis.Client) error {
	if cerr := client.Close(); cerr != nil {
		return fmt.Errorf("%w (close: %v)", err, cerr)
	}
	return err
}
