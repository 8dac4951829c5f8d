package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "crest/internal/platform/redis"
)

const keyPrefix = "crest:ledger:confirm:"

// Redis backs the confirmation cache with a shared Redis instance so all
// replicas benefit from one another's ledger reads.
type Redis struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewRedis(client *platformredis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Lookup(ctx context.Context, key string) (bool, bool, error) {
	value, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("confirmation cache lookup: %w", err)
	}
	return value == "1", true, nil
}

func (c *Redis) Store(ctx context.Context, key string, confirmed bool) error {
	value := "0"
	if confirmed {
		value = "1"
	}
	if err := c.client.Set(ctx, keyPrefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("confirmation cache store: %w", err)
	}
	return nil
}
