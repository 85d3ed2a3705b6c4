// Package storage сохраняет прогресс игрока между сессиями:
// уровень, опыт и выбранное оружие по имени игрока.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound прогресс игрока не сохранялся
var ErrNotFound = errors.New("прогресс не найден")

// maxNameLen ограничение длины имени игрока в ключах хранилищ
const maxNameLen = 64

// Progress сохраняемый прогресс игрока
type Progress struct {
	Name       string    `json:"name" bson:"name"`
	Level      int       `json:"level" bson:"level"`
	Experience int       `json:"experience" bson:"experience"`
	Weapon     string    `json:"weapon" bson:"weapon"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// ProgressRepository хранилище прогресса.
// Ключ записи это имя игрока без учёта регистра.
type ProgressRepository interface {
	// Save перезаписывает прогресс игрока
	Save(ctx context.Context, p Progress) error

	// Load возвращает прогресс или ErrNotFound
	Load(ctx context.Context, name string) (Progress, error)

	// Delete удаляет прогресс (сброс персонажа)
	Delete(ctx context.Context, name string) error

	Close() error
}

// normalizeName приводит имя к ключу хранилища
func normalizeName(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", fmt.Errorf("пустое имя игрока")
	}
	if len(key) > maxNameLen {
		return "", fmt.Errorf("имя игрока длиннее %d байт", maxNameLen)
	}
	return key, nil
}

// validate проверяет запись перед сохранением и возвращает ключ
func validate(p Progress) (string, error) {
	key, err := normalizeName(p.Name)
	if err != nil {
		return "", err
	}
	if p.Level < 1 {
		return "", fmt.Errorf("недействительный уровень %d для %s", p.Level, p.Name)
	}
	if p.Experience < 0 {
		return "", fmt.Errorf("отрицательный опыт %d для %s", p.Experience, p.Name)
	}
	return key, nil
}

// stamp проставляет время обновления
func stamp(p Progress) Progress {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	return p
}
