package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache горячий кеш в Redis, общий для нескольких узлов
type RedisCache struct {
	client *redis.Client
	cfg    Config
	prefix string

	requests, hits, misses atomic.Int64
}

// RedisConfig подключение к Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // по умолчанию "gunguys:cache:"
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(ctx context.Context, rc RedisConfig, cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("подключение к Redis %s: %w", rc.Addr, err)
	}
	return newRedisCache(client, rc.Prefix, cfg), nil
}

func newRedisCache(client *redis.Client, prefix string, cfg Config) *RedisCache {
	cfg.withDefaults()
	if prefix == "" {
		prefix = "gunguys:cache:"
	}
	return &RedisCache{client: client, cfg: cfg, prefix: prefix}
}

func (r *RedisCache) key(k string) string { return r.prefix + k }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	r.requests.Add(1)
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	switch {
	case err == nil:
		r.hits.Add(1)
		return val, nil
	case errors.Is(err, redis.Nil):
		r.misses.Add(1)
		return nil, ErrCacheMiss
	}
	r.misses.Add(1)
	return nil, fmt.Errorf("redis get %s: %w", key, err)
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, r.cfg.clamp(ttl)).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Metrics() Metrics {
	c := counters{requests: r.requests.Load(), hits: r.hits.Load(), misses: r.misses.Load()}
	return c.snapshot()
}

func (r *RedisCache) Close() error { return r.client.Close() }
