// internal/infrastructure/cache/redis/recency_cache.go
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const recencyKeyPrefix = "dedup:"

// RecencyCache - время последнего сигнала по ключу symbol:direction.
// Значение - unix nano, срок хранения - TTL ключа.
type RecencyCache struct {
	client *redis.Client
	prefix string
}

// NewRecencyCache создает кэш дедупликации
func NewRecencyCache(client *redis.Client, prefix string) *RecencyCache {
	return &RecencyCache{client: client, prefix: prefix + recencyKeyPrefix}
}

func (c *RecencyCache) key(k string) string {
	return c.prefix + k
}

// Get - время записи; отсутствие ключа не ошибка
func (c *RecencyCache) Get(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := decodeTime(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

// Set записывает время с TTL
func (c *RecencyCache) Set(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), encodeTime(at), ttl).Err()
}

func encodeTime(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func decodeTime(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}
