package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/annel0/gunguys/internal/cache"
	"github.com/annel0/gunguys/internal/logging"
)

// CachedProgressRepo кеширует чтение прогресса перед медленным хранилищем.
// Запись идёт сразу в хранилище, ключ в кеше сбрасывается, другие узлы
// получают уведомление и сбрасывают свою копию.
type CachedProgressRepo struct {
	cold ProgressRepository
	hot  cache.CacheRepo
	inv  cache.Invalidator // может быть nil
	ttl  time.Duration
	log  *logging.Logger
}

// NewCachedProgressRepo оборачивает cold. inv может быть nil для одного узла.
func NewCachedProgressRepo(ctx context.Context, cold ProgressRepository, hot cache.CacheRepo, inv cache.Invalidator, ttl time.Duration) (*CachedProgressRepo, error) {
	r := &CachedProgressRepo{
		cold: cold,
		hot:  hot,
		inv:  inv,
		ttl:  ttl,
		log:  logging.GetStorageLogger(),
	}
	if inv != nil {
		err := inv.Subscribe(ctx, func(key string) {
			if err := hot.Delete(context.Background(), key); err != nil {
				r.log.Warn("Не удалось сбросить кеш %s: %v", key, err)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load читает из кеша, при промахе из хранилища с заполнением кеша
func (r *CachedProgressRepo) Load(ctx context.Context, name string) (Progress, error) {
	key, err := normalizeName(name)
	if err != nil {
		return Progress{}, err
	}

	data, err := r.hot.Get(ctx, key)
	if err == nil {
		var p Progress
		if err := json.Unmarshal(data, &p); err == nil {
			return p, nil
		}
		r.log.Warn("Повреждённая запись кеша %s", key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.Warn("Кеш недоступен: %v", err)
	}

	p, err := r.cold.Load(ctx, name)
	if err != nil {
		return Progress{}, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := r.hot.Set(ctx, key, data, r.ttl); err != nil {
			r.log.Debug("Не удалось заполнить кеш %s: %v", key, err)
		}
	}
	return p, nil
}

// Save пишет в хранилище и сбрасывает кеш
func (r *CachedProgressRepo) Save(ctx context.Context, p Progress) error {
	if err := r.cold.Save(ctx, p); err != nil {
		return err
	}
	key, _ := normalizeName(p.Name)
	r.invalidate(ctx, key)
	return nil
}

// Delete удаляет из хранилища и сбрасывает кеш
func (r *CachedProgressRepo) Delete(ctx context.Context, name string) error {
	if err := r.cold.Delete(ctx, name); err != nil {
		return err
	}
	key, _ := normalizeName(name)
	r.invalidate(ctx, key)
	return nil
}

func (r *CachedProgressRepo) invalidate(ctx context.Context, key string) {
	if err := r.hot.Delete(ctx, key); err != nil {
		r.log.Warn("Не удалось сбросить кеш %s: %v", key, err)
	}
	if r.inv == nil {
		return
	}
	if err := r.inv.Publish(ctx, key); err != nil {
		r.log.Warn("Не удалось разослать инвалидацию %s: %v", key, err)
	}
}

// CacheMetrics счётчики кеша
func (r *CachedProgressRepo) CacheMetrics() cache.Metrics { return r.hot.Metrics() }

// Close закрывает кеш, рассылку и хранилище
func (r *CachedProgressRepo) Close() error {
	var errs []error
	if r.inv != nil {
		errs = append(errs, r.inv.Close())
	}
	errs = append(errs, r.hot.Close(), r.cold.Close())
	return errors.Join(errs...)
}
