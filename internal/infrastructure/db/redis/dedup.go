package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 30 * 24 * time.Hour

// NotificationDedup guarantees a notification is sent at most once per key.
// Key format: mpt:notify:<kind>:<account_id>
type NotificationDedup struct {
	client *redis.Client
}

// NewNotificationDedup creates a NotificationDedup wrapping the given Redis client.
func NewNotificationDedup(client *redis.Client) *NotificationDedup {
	return &NotificationDedup{client: client}
}

// Claim atomically marks kind/accountID as sent. It reports false when an
// earlier call already claimed it.
func (d *NotificationDedup) Claim(ctx context.Context, kind, accountID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(kind, accountID), "1", dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Forget removes a claim so the notification can be retried.
func (d *NotificationDedup) Forget(ctx context.Context, kind, accountID string) error {
	return d.client.Del(ctx, d.key(kind, accountID)).Err()
}

func (d *NotificationDedup) key(kind, accountID string) string {
	return key("notify", kind, accountID)
}
