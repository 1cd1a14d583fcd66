package routecache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProvider implements the distributed rate-limit counter using
// Redis INCR/EXPIRE, grounded on the teacher's RedisProvider: same
// connection options, same dial-and-ping-at-startup shape.
type RedisProvider struct {
	client *redis.Client
}

// RedisConfig configures the connection to the Redis instance backing
// the counter store.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisProvider dials Redis and pings it once to fail fast on
// misconfiguration at startup rather than on the first request.
func NewRedisProvider(cfg RedisConfig) (*RedisProvider, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("routecache: failed to connect to redis: %w", err)
	}

	return &RedisProvider{client: client}, nil
}

// Incr increments key, setting its expiry to window only on the first
// increment of a new window so later calls within the same window don't
// reset the TTL prematurely.
func (r *RedisProvider) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (r *RedisProvider) Close() error {
	return r.client.Close()
}
