// Package cache горячий кеш поверх медленного хранилища и рассылка
// инвалидации между узлами, которые делят одно хранилище.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss ключа нет в кеше
var ErrCacheMiss = errors.New("cache miss")

// CacheRepo кеш байтовых значений с TTL
type CacheRepo interface {
	// Get возвращает ErrCacheMiss, если ключа нет или он истёк
	Get(ctx context.Context, key string) ([]byte, error)
	// Set сохраняет значение; ttl = 0 означает TTL кеша по умолчанию
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Metrics() Metrics
	Close() error
}

// Invalidator рассылает и принимает уведомления об устаревших ключах
type Invalidator interface {
	Publish(ctx context.Context, key string) error
	Subscribe(ctx context.Context, handler InvalidationHandler) error
	Close() error
}

// InvalidationHandler вызывается для ключа, изменённого другим узлом
type InvalidationHandler func(key string)

// Metrics счётчики кеша
type Metrics struct {
	Requests int64   `json:"requests"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// Config параметры кеша
type Config struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

func (c *Config) withDefaults() {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 30 * time.Second
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = time.Hour
	}
}

func (c *Config) clamp(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.DefaultTTL
	}
	if ttl > c.MaxTTL {
		return c.MaxTTL
	}
	return ttl
}

// counters общие счётчики попаданий
type counters struct {
	requests, hits, misses int64
}

func (c *counters) snapshot() Metrics {
	m := Metrics{Requests: c.requests, Hits: c.hits, Misses: c.misses}
	if m.Requests > 0 {
		m.HitRatio = float64(m.Hits) / float64(m.Requests)
	}
	return m
}
