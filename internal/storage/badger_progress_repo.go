package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

const badgerKeyPrefix = "progress:"

// BadgerProgressRepo хранит прогресс в локальной BadgerDB.
// Подходит для одиночной игры и хоста без внешних сервисов.
type BadgerProgressRepo struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerProgressRepo открывает (или создаёт) базу в dataPath/progress
func NewBadgerProgressRepo(dataPath string) (*BadgerProgressRepo, error) {
	dbPath := filepath.Join(dataPath, "progress")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerProgressRepo{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Save сохраняет прогресс
func (r *BadgerProgressRepo) Save(ctx context.Context, p Progress) error {
	key, err := validate(p)
	if err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	data, err := json.Marshal(stamp(p))
	if err != nil {
		return fmt.Errorf("ошибка сериализации прогресса: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения прогресса %s: %w", key, err)
	}
	return nil
}

// Load загружает прогресс
func (r *BadgerProgressRepo) Load(ctx context.Context, name string) (Progress, error) {
	key, err := normalizeName(name)
	if err != nil {
		return Progress{}, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return Progress{}, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err = r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Progress{}, ErrNotFound
	}
	if err != nil {
		return Progress{}, fmt.Errorf("ошибка загрузки прогресса %s: %w", key, err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, fmt.Errorf("ошибка десериализации прогресса %s: %w", key, err)
	}
	return p, nil
}

// Delete удаляет прогресс
func (r *BadgerProgressRepo) Delete(ctx context.Context, name string) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(badgerKeyPrefix + key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete([]byte(badgerKeyPrefix + key))
	})
}

// Names имена всех сохранённых игроков
func (r *BadgerProgressRepo) Names() ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}
	var names []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(badgerKeyPrefix):]))
		}
		return nil
	})
	return names, err
}

// Close закрывает базу
func (r *BadgerProgressRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}
	r.isReady = false
	return r.db.Close()
}
