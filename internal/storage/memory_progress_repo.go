package storage

import (
	"context"
	"sync"
)

// MemoryProgressRepo хранит прогресс в памяти процесса.
// Используется по умолчанию и в тестах. Данные теряются при перезапуске.
type MemoryProgressRepo struct {
	mu   sync.RWMutex
	data map[string]Progress
}

// NewMemoryProgressRepo создаёт пустой репозиторий
func NewMemoryProgressRepo() *MemoryProgressRepo {
	return &MemoryProgressRepo{data: make(map[string]Progress)}
}

// Save сохраняет прогресс в памяти
func (r *MemoryProgressRepo) Save(ctx context.Context, p Progress) error {
	key, err := validate(p)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.data[key] = stamp(p)
	r.mu.Unlock()
	return nil
}

// Load возвращает прогресс или ErrNotFound
func (r *MemoryProgressRepo) Load(ctx context.Context, name string) (Progress, error) {
	key, err := normalizeName(name)
	if err != nil {
		return Progress{}, err
	}
	if err := ctx.Err(); err != nil {
		return Progress{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.data[key]
	if !ok {
		return Progress{}, ErrNotFound
	}
	return p, nil
}

// Delete удаляет прогресс
func (r *MemoryProgressRepo) Delete(ctx context.Context, name string) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[key]; !ok {
		return ErrNotFound
	}
	delete(r.data, key)
	return nil
}

// Count число сохранённых игроков
func (r *MemoryProgressRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает
func (r *MemoryProgressRepo) Close() error { return nil }
