package storage

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/gunguys/internal/eventbus"
	"github.com/annel0/gunguys/internal/logging"
)

// ProgressTracker сохраняет прогресс игрока при каждом событии level_up
type ProgressTracker struct {
	repo    ProgressRepository
	log     *logging.Logger
	timeout time.Duration
	sub     eventbus.Subscription
}

// NewProgressTracker создаёт подписчика поверх репозитория
func NewProgressTracker(repo ProgressRepository, log *logging.Logger) *ProgressTracker {
	return &ProgressTracker{repo: repo, log: log, timeout: 5 * time.Second}
}

// Start подписывается на level_up. Неблокирующий.
func (t *ProgressTracker) Start(ctx context.Context, bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: []string{eventbus.TypeLevelUp}}, t.handle)
	if err != nil {
		return err
	}
	t.sub = sub
	return nil
}

// Stop отписывается от шины
func (t *ProgressTracker) Stop() {
	if t.sub != nil {
		t.sub.Unsubscribe()
		t.sub = nil
	}
}

func (t *ProgressTracker) handle(ctx context.Context, ev *eventbus.Envelope) {
	var lu eventbus.LevelUp
	if err := ev.Decode(&lu); err != nil {
		t.log.Warn("Событие %s пропущено: %v", ev.ID, err)
		return
	}
	if lu.Name == "" {
		return
	}

	err := t.Save(ctx, Progress{
		Name:       lu.Name,
		Level:      lu.Level,
		Experience: lu.Experience,
		Weapon:     lu.Weapon,
	})
	if err != nil {
		t.log.Error("Не удалось сохранить прогресс %s: %v", lu.Name, err)
		return
	}
	t.log.Debug("Прогресс %s сохранён: уровень %d", lu.Name, lu.Level)
}

// Save сохраняет прогресс с таймаутом
func (t *ProgressTracker) Save(ctx context.Context, p Progress) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.repo.Save(ctx, p)
}

// Load загружает прогресс. ok=false, если игрок новый.
func (t *ProgressTracker) Load(ctx context.Context, name string) (Progress, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	p, err := t.repo.Load(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, err
	}
	return p, true, nil
}
