// internal/infrastructure/cache/redis/redis_test.go
package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart-money-screener/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

func TestTimeEncoding(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 123, time.UTC)
	got, err := decodeTime(encodeTime(at))
	if err != nil {
		t.Fatalf("decodeTime: %v", err)
	}
	if !got.Equal(at) {
		t.Errorf("got %v, want %v", got, at)
	}
	if _, err := decodeTime("not-a-number"); err == nil {
		t.Error("expected error")
	}
}

func TestKeys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	rc := NewRecencyCache(client, "smartmoney:")
	if got := rc.key("BTCUSDT:buy"); got != "smartmoney:dedup:BTCUSDT:buy" {
		t.Errorf("recency key = %q", got)
	}
	c := NewCacheWithClient(client, "smartmoney:")
	if got := c.key("stats:7"); got != "smartmoney:stats:7" {
		t.Errorf("cache key = %q", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := Options(config.RedisConfig{
		Host:        "redis.local",
		Port:        6380,
		DB:          2,
		PoolSize:    7,
		DialTimeout: time.Second,
	})
	if opts.Addr != "redis.local:6380" || opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Errorf("options = %+v", opts)
	}
}

func TestServiceNotStarted(t *testing.T) {
	rs := NewRedisService(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	if rs.GetClient() != nil || rs.GetCache() != nil {
		t.Error("client must be nil before Start")
	}
	if err := rs.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check error")
	}
	if rs.State() != StateStopped {
		t.Errorf("state = %s", rs.State())
	}
	if err := rs.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestStartFailsWithoutServer(t *testing.T) {
	rs := NewRedisService(config.RedisConfig{
		Host:        "127.0.0.1",
		Port:        1,
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	if err := rs.Start(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
	if rs.State() != StateError || rs.GetClient() != nil {
		t.Errorf("state = %s", rs.State())
	}
}

func TestCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	c := NewCacheWithClient(client, "smartmoney:")
	ctx := context.Background()

	var dest map[string]int
	if err := c.Get(ctx, "stats:7", &dest); err == nil || errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get on unreachable redis = %v, want connection error", err)
	}
	if _, _, err := c.CheckRateLimit(ctx, "api:10.0.0.1", 10, time.Minute); err == nil {
		t.Error("expected CheckRateLimit error")
	}
}
