// Package cache holds the optional read-through cache for order status
// polling. Entries carry a short TTL and every status transition
// deletes the key, so clients polling GET /api/orders/:id do not hammer
// the primary store.
package cache

import (
	"context"
	"errors"
	"time"

	rds "github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// OrderKey is the cache key for an order's status entry. Every writer
// that transitions an order, the HTTP layer and the sweeper alike,
// deletes this key.
func OrderKey(orderID string) string {
	return "order:" + orderID
}

type Cache interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	client *rds.Client
	ttl    time.Duration
}

func NewClient(addr, password string, db int) *rds.Client {
	return rds.NewClient(&rds.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(client *rds.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, rds.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
