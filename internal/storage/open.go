package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/gunguys/internal/cache"
	"github.com/annel0/gunguys/internal/logging"
)

// Backend имена поддерживаемых хранилищ
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMaria  = "mysql"
	BackendMongo  = "mongo"
)

// Config выбор и параметры хранилища прогресса
type Config struct {
	Backend  string
	DataPath string // каталог BadgerDB
	Redis    RedisConfig
	MariaDSN string
	Mongo    MongoConfig
	Cache    CacheConfig
}

// Кеш чтения перед хранилищем
const (
	CacheNone   = ""
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig кеш чтения прогресса. Имеет смысл для mysql и mongo.
type CacheConfig struct {
	Backend         string
	TTL             time.Duration
	Redis           RedisConfig
	InvalidationURL string // NATS для рассылки инвалидации между узлами
}

// Open открывает хранилище по имени бэкенда. Пустое имя означает память.
// Если задан кеш, хранилище оборачивается в CachedProgressRepo.
func Open(ctx context.Context, cfg Config) (ProgressRepository, error) {
	repo, err := openBackend(ctx, cfg)
	if err != nil || cfg.Cache.Backend == CacheNone {
		return repo, err
	}
	cached, err := withCache(ctx, repo, cfg.Cache)
	if err != nil {
		repo.Close()
		return nil, err
	}
	return cached, nil
}

func withCache(ctx context.Context, repo ProgressRepository, cfg CacheConfig) (*CachedProgressRepo, error) {
	ccfg := cache.Config{DefaultTTL: cfg.TTL}

	var hot cache.CacheRepo
	switch cfg.Backend {
	case CacheMemory:
		hot = cache.NewMemoryCache(ccfg)
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, ccfg)
		if err != nil {
			return nil, err
		}
		hot = rc
	default:
		return nil, fmt.Errorf("неизвестный кеш %q", cfg.Backend)
	}

	var inv cache.Invalidator
	if cfg.InvalidationURL != "" {
		n, err := cache.NewNATSInvalidator(cfg.InvalidationURL, "", logging.GetStorageLogger())
		if err != nil {
			hot.Close()
			return nil, err
		}
		inv = n
	}

	cached, err := NewCachedProgressRepo(ctx, repo, hot, inv, cfg.TTL)
	if err != nil {
		if inv != nil {
			inv.Close()
		}
		hot.Close()
		return nil, err
	}
	return cached, nil
}

func openBackend(ctx context.Context, cfg Config) (ProgressRepository, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryProgressRepo(), nil
	case BackendBadger:
		path := cfg.DataPath
		if path == "" {
			path = "data"
		}
		return NewBadgerProgressRepo(path)
	case BackendRedis:
		return NewRedisProgressRepo(ctx, &cfg.Redis)
	case BackendMaria:
		return NewMariaProgressRepo(ctx, cfg.MariaDSN)
	case BackendMongo:
		return NewMongoProgressRepo(ctx, cfg.Mongo)
	}
	return nil, fmt.Errorf("неизвестное хранилище %q", cfg.Backend)
}
