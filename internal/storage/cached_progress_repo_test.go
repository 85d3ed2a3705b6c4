package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/annel0/gunguys/internal/cache"
)

// fakeInvalidator передаёт уведомления напрямую подписчикам
type fakeInvalidator struct {
	published []string
	handlers  []cache.InvalidationHandler
	closed    bool
}

func (f *fakeInvalidator) Publish(_ context.Context, key string) error {
	f.published = append(f.published, key)
	return nil
}

func (f *fakeInvalidator) Subscribe(_ context.Context, h cache.InvalidationHandler) error {
	f.handlers = append(f.handlers, h)
	return nil
}

func (f *fakeInvalidator) Close() error {
	f.closed = true
	return nil
}

// remote имитирует уведомление от другого узла
func (f *fakeInvalidator) remote(key string) {
	for _, h := range f.handlers {
		h(key)
	}
}

func TestCachedProgressRepo_Contract(t *testing.T) {
	repo, err := NewCachedProgressRepo(context.Background(), NewMemoryProgressRepo(),
		cache.NewMemoryCache(cache.Config{}), nil, time.Minute)
	if err != nil {
		t.Fatalf("Ошибка создания кеша: %v", err)
	}
	testRepo(t, repo)
}

func TestCachedProgressRepo_ReadThrough(t *testing.T) {
	ctx := context.Background()
	cold := NewMemoryProgressRepo()
	hot := cache.NewMemoryCache(cache.Config{})
	inv := &fakeInvalidator{}

	repo, err := NewCachedProgressRepo(ctx, cold, hot, inv, time.Minute)
	if err != nil {
		t.Fatalf("Ошибка создания кеша: %v", err)
	}

	if err := repo.Save(ctx, Progress{Name: "Alice", Level: 2}); err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}
	if len(inv.published) != 1 || inv.published[0] != "alice" {
		t.Errorf("Инвалидация не разослана: %v", inv.published)
	}

	// Первое чтение из хранилища, второе из кеша
	if _, err := repo.Load(ctx, "Alice"); err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}
	if _, err := repo.Load(ctx, "alice"); err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}
	if m := repo.CacheMetrics(); m.Hits != 1 || m.Misses != 1 {
		t.Errorf("Неверные счётчики кеша: %+v", m)
	}

	// Запись в обход кеша видна только после уведомления
	if err := cold.Save(ctx, Progress{Name: "Alice", Level: 5}); err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}
	got, _ := repo.Load(ctx, "alice")
	if got.Level != 2 {
		t.Errorf("Ожидалось значение из кеша, получен уровень %d", got.Level)
	}
	inv.remote("alice")
	got, _ = repo.Load(ctx, "alice")
	if got.Level != 5 {
		t.Errorf("Кеш не сброшен уведомлением, уровень %d", got.Level)
	}

	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Ошибка удаления: %v", err)
	}
	if _, err := repo.Load(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound после удаления, получено %v", err)
	}

	if err := repo.Close(); err != nil {
		t.Errorf("Ошибка закрытия: %v", err)
	}
	if !inv.closed {
		t.Error("Рассылка инвалидации не закрыта")
	}
}

func TestOpen_MemoryCache(t *testing.T) {
	repo, err := Open(context.Background(), Config{Backend: BackendMemory, Cache: CacheConfig{Backend: CacheMemory}})
	if err != nil {
		t.Fatalf("Ошибка открытия: %v", err)
	}
	defer repo.Close()
	if _, ok := repo.(*CachedProgressRepo); !ok {
		t.Errorf("Ожидался CachedProgressRepo, получен %T", repo)
	}

	if _, err := Open(context.Background(), Config{Cache: CacheConfig{Backend: "memcached"}}); err == nil {
		t.Error("Ожидалась ошибка для неизвестного кеша")
	}
}
