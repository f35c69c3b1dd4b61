// Package cache is a namespaced key-value cache on Redis.
package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Config holds Redis connection settings.
type Config struct {
	Addr     string `default:"localhost:6379" usage:"Redis address"`
	Password string `usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database"`
}

// NewClient creates a Redis client for cfg. It does not dial.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
	})
}

// Redis stores values under "namespace:key".
type Redis struct {
	client redis.UniversalClient
}

// New wraps a Redis client.
func New(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func key(namespace, k string) string {
	return namespace + ":" + k
}

// Get returns the value of key, or ErrMiss.
func (c *Redis) Get(ctx context.Context, namespace, k string) ([]byte, error) {
	data, err := c.client.Get(ctx, key(namespace, k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, errors.Wrap(err, "get")
	}
	return data, nil
}

// Set stores value with a TTL. Zero TTL means no expiry.
func (c *Redis) Set(ctx context.Context, namespace, k string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key(namespace, k), value, ttl).Err(); err != nil {
		return errors.Wrap(err, "set")
	}
	return nil
}

// Delete removes key.
func (c *Redis) Delete(ctx context.Context, namespace, k string) error {
	if err := c.client.Del(ctx, key(namespace, k)).Err(); err != nil {
		return errors.Wrap(err, "delete")
	}
	return nil
}

// IncrWithExpire increments a counter and starts its expiry window on the
// first increment.
func (c *Redis) IncrWithExpire(ctx context.Context, namespace, k string, window time.Duration) (int64, error) {
	countKey := key(namespace, k)

	cnt, err := c.client.Incr(ctx, countKey).Result()
	if err != nil {
		return 0, errors.Wrap(err, "incr")
	}
	if cnt == 1 {
		if err := c.client.Expire(ctx, countKey, window).Err(); err != nil {
			return 0, errors.Wrap(err, "expire")
		}
	}
	return cnt, nil
}

// Ping checks connectivity.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
