package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Запросы таблицы player_progress
const (
	mariaCreateTable = `CREATE TABLE IF NOT EXISTS player_progress (
		name_key VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		level INT NOT NULL,
		experience INT NOT NULL,
		weapon VARCHAR(32) NOT NULL,
		updated_at DATETIME(3) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

	mariaUpsert = `INSERT INTO player_progress (name_key, name, level, experience, weapon, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), level = VALUES(level), experience = VALUES(experience),
			weapon = VALUES(weapon), updated_at = VALUES(updated_at)`

	mariaSelect = `SELECT name, level, experience, weapon, updated_at FROM player_progress WHERE name_key = ?`
	mariaDelete = `DELETE FROM player_progress WHERE name_key = ?`
)

// MariaProgressRepo хранит прогресс в MariaDB/MySQL
type MariaProgressRepo struct {
	db *sql.DB
}

// NewMariaProgressRepo подключается к базе и создаёт таблицу, если её нет.
// dsn: user:pass@tcp(host:port)/dbname?parseTime=true
func NewMariaProgressRepo(ctx context.Context, dsn string) (*MariaProgressRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, mariaCreateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу player_progress: %w", err)
	}

	return &MariaProgressRepo{db: db}, nil
}

// Save сохраняет прогресс
func (r *MariaProgressRepo) Save(ctx context.Context, p Progress) error {
	key, err := validate(p)
	if err != nil {
		return err
	}
	p = stamp(p)

	if _, err := r.db.ExecContext(ctx, mariaUpsert, key, p.Name, p.Level, p.Experience, p.Weapon, p.UpdatedAt); err != nil {
		return fmt.Errorf("ошибка сохранения прогресса %s: %w", key, err)
	}
	return nil
}

// Load загружает прогресс
func (r *MariaProgressRepo) Load(ctx context.Context, name string) (Progress, error) {
	key, err := normalizeName(name)
	if err != nil {
		return Progress{}, err
	}

	var p Progress
	err = r.db.QueryRowContext(ctx, mariaSelect, key).Scan(&p.Name, &p.Level, &p.Experience, &p.Weapon, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, ErrNotFound
	}
	if err != nil {
		return Progress{}, fmt.Errorf("ошибка загрузки прогресса %s: %w", key, err)
	}
	return p, nil
}

// Delete удаляет прогресс
func (r *MariaProgressRepo) Delete(ctx context.Context, name string) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, mariaDelete, key)
	if err != nil {
		return fmt.Errorf("ошибка удаления прогресса %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close закрывает пул соединений
func (r *MariaProgressRepo) Close() error {
	return r.db.Close()
}
