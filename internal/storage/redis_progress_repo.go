package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой, если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс ключей
	TTL       time.Duration // Время жизни записей, 0: бессрочно
}

// DefaultRedisConfig конфигурация по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "gunguys:",
	}
}

// RedisProgressRepo хранит прогресс в Redis и ведёт таблицу лидеров по уровню
type RedisProgressRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisProgressRepo подключается к Redis и проверяет соединение
func NewRedisProgressRepo(ctx context.Context, config *RedisConfig) (*RedisProgressRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", config.Addr, err)
	}

	return newRedisProgressRepo(client, config), nil
}

func newRedisProgressRepo(client *redis.Client, config *RedisConfig) *RedisProgressRepo {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisConfig().KeyPrefix
	}
	return &RedisProgressRepo{client: client, keyPrefix: prefix, ttl: config.TTL}
}

func (r *RedisProgressRepo) progressKey(key string) string {
	return r.keyPrefix + "progress:" + key
}

func (r *RedisProgressRepo) leaderboardKey() string {
	return r.keyPrefix + "leaderboard"
}

// Save сохраняет прогресс и обновляет таблицу лидеров одним пайплайном
func (r *RedisProgressRepo) Save(ctx context.Context, p Progress) error {
	key, err := validate(p)
	if err != nil {
		return err
	}

	data, err := json.Marshal(stamp(p))
	if err != nil {
		return fmt.Errorf("ошибка сериализации прогресса: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.progressKey(key), data, r.ttl)
	pipe.ZAdd(ctx, r.leaderboardKey(), &redis.Z{Score: leaderboardScore(p), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка сохранения прогресса %s: %w", key, err)
	}
	return nil
}

// Load загружает прогресс
func (r *RedisProgressRepo) Load(ctx context.Context, name string) (Progress, error) {
	key, err := normalizeName(name)
	if err != nil {
		return Progress{}, err
	}

	data, err := r.client.Get(ctx, r.progressKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Progress{}, ErrNotFound
	} else if err != nil {
		return Progress{}, fmt.Errorf("ошибка загрузки прогресса %s: %w", key, err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, fmt.Errorf("ошибка десериализации прогресса %s: %w", key, err)
	}
	return p, nil
}

// Delete удаляет прогресс и запись в таблице лидеров
func (r *RedisProgressRepo) Delete(ctx context.Context, name string) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, r.progressKey(key))
	pipe.ZRem(ctx, r.leaderboardKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка удаления прогресса %s: %w", key, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// TopPlayers имена лучших игроков по уровню и опыту
func (r *RedisProgressRepo) TopPlayers(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	names, err := r.client.ZRevRange(ctx, r.leaderboardKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения таблицы лидеров: %w", err)
	}
	return names, nil
}

// Close закрывает соединение с Redis
func (r *RedisProgressRepo) Close() error {
	return r.client.Close()
}

// leaderboardScore упорядочивает по уровню, затем по опыту внутри уровня
func leaderboardScore(p Progress) float64 {
	return float64(p.Level)*1e6 + float64(p.Experience)
}
