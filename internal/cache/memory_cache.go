package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache кеш в памяти процесса
type MemoryCache struct {
	cfg     Config
	mu      sync.Mutex
	entries map[string]memoryEntry
	stats   counters
	now     func() time.Time
}

// NewMemoryCache создаёт пустой кеш
func NewMemoryCache(cfg Config) *MemoryCache {
	cfg.withDefaults()
	return &MemoryCache{cfg: cfg, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.requests++
	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expires) {
		delete(m.entries, key)
		m.stats.misses++
		return nil, ErrCacheMiss
	}
	m.stats.hits++
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: v, expires: m.now().Add(m.cfg.clamp(ttl))}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.snapshot()
}

func (m *MemoryCache) Close() error { return nil }
