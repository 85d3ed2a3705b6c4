// Package config читает YAML конфигурацию узла.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Порты по умолчанию
const (
	DefaultGamePort      = 12345
	DefaultDiscoveryPort = 12347
	DefaultRESTPort      = 8088
)

// Config корневая структура конфигурации
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Game      GameConfig      `yaml:"game"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Storage   StorageConfig   `yaml:"storage"`
	Replay    ReplayConfig    `yaml:"replay"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	API       APIConfig       `yaml:"api"`
}

// ServerConfig порты узла. Нулевое значение берётся из окружения или по умолчанию.
type ServerConfig struct {
	Host          string `yaml:"host"`
	GamePort      int    `yaml:"game_port"`
	DiscoveryPort int    `yaml:"discovery_port"`
	RESTPort      int    `yaml:"rest_port"`
}

// SessionConfig параметры сетевой сессии
type SessionConfig struct {
	Name          string  `yaml:"name"`
	Transport     string  `yaml:"transport"` // tcp | kcp
	BroadcastAddr string  `yaml:"broadcast_addr"`
	ConnectTries  int     `yaml:"connect_attempts"`
	ConnectWait   float64 `yaml:"connect_timeout_seconds"`
	RetryDelay    float64 `yaml:"retry_delay_seconds"`
	SendQueue     int     `yaml:"send_queue"`
	SnapshotRate  float64 `yaml:"snapshot_rate"`
	FullEvery     float64 `yaml:"full_snapshot_seconds"`
}

// GameConfig параметры мира и игрока
type GameConfig struct {
	PlayerName string  `yaml:"player_name"`
	Difficulty string  `yaml:"difficulty"` // easy | balanced | hard
	Collision  string  `yaml:"collision"`  // blocking | elastic
	TickRate   float64 `yaml:"tick_rate"`
	MonsterCap int     `yaml:"monster_cap"`
	ArenaSize  float64 `yaml:"arena_size"`
	Seed       int64   `yaml:"seed"`
}

// EventBusConfig шина игровых событий. Пустой URL означает шину в памяти.
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Capacity  int    `yaml:"capacity"`
}

// StorageConfig хранилище прогресса
type StorageConfig struct {
	Backend         string `yaml:"backend"` // memory | badger | redis | mysql | mongo
	DataPath        string `yaml:"data_path"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	MariaDSN        string `yaml:"mysql_dsn"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`

	// Кеш чтения перед mysql или mongo: пусто | memory | redis
	Cache           string `yaml:"cache"`
	CacheTTL        int    `yaml:"cache_ttl_seconds"`
	CacheRedisAddr  string `yaml:"cache_redis_addr"`
	InvalidationURL string `yaml:"invalidation_nats_url"`
}

// CacheTTLDuration время жизни записи кеша
func (s StorageConfig) CacheTTLDuration() time.Duration {
	return time.Duration(s.CacheTTL) * time.Second
}

// ReplayConfig запись полных снимков хоста
type ReplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// TelemetryConfig экспорт трасс OTLP
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	Service  string `yaml:"service"`
}

// LoggingConfig уровень и каталог логов
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// APIConfig REST API состояния хоста
type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	// AdminPasswordHash bcrypt хеш пароля администратора; пусто: админ-методы закрыты
	AdminPasswordHash string `yaml:"admin_password_hash"`
	// JWTSecret ключ подписи в base64; пусто: случайный на время работы
	JWTSecret string `yaml:"jwt_secret"`
}

// Default конфигурация без файла
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Name:          "GunGuys Game",
			Transport:     "tcp",
			BroadcastAddr: "255.255.255.255",
			ConnectTries:  5,
			ConnectWait:   5,
			RetryDelay:    2,
			SendQueue:     256,
			SnapshotRate:  30,
			FullEvery:     1,
		},
		Game: GameConfig{
			PlayerName: "Player",
			Difficulty: "balanced",
			Collision:  "blocking",
			TickRate:   60,
			MonsterCap: 30,
			ArenaSize:  4000,
			Seed:       1,
		},
		EventBus: EventBusConfig{
			Stream:    "GUNGUYS_EVENTS",
			Retention: 24,
			Capacity:  1024,
		},
		Storage: StorageConfig{
			Backend:  "memory",
			DataPath: "data",
			CacheTTL: 30,
		},
		Replay: ReplayConfig{
			Dir: "replays",
		},
		Telemetry: TelemetryConfig{
			Service: "gunguys",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		API: APIConfig{
			Enabled: true,
		},
	}
}

// GetGamePort возвращает порт игры с поддержкой fallback значений
func (s *ServerConfig) GetGamePort() int {
	return getPortWithEnvFallback(s.GamePort, "GAME_TCP_PORT", DefaultGamePort)
}

// GetDiscoveryPort возвращает порт обнаружения с поддержкой fallback значений
func (s *ServerConfig) GetDiscoveryPort() int {
	return getPortWithEnvFallback(s.DiscoveryPort, "GAME_DISCOVERY_PORT", DefaultDiscoveryPort)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", DefaultRESTPort)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// ConnectTimeout таймаут одной попытки подключения
func (s *SessionConfig) ConnectTimeout() time.Duration {
	return seconds(s.ConnectWait)
}

// RetryInterval пауза между попытками подключения
func (s *SessionConfig) RetryInterval() time.Duration {
	return seconds(s.RetryDelay)
}

// FullSnapshotInterval максимальный интервал между полными снимками
func (s *SessionConfig) FullSnapshotInterval() time.Duration {
	return seconds(s.FullEvery)
}

// RetentionDuration срок хранения событий в JetStream
func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Load читает YAML поверх значений по умолчанию.
// Если path == "", берёт путь из GAME_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация %s: %w", path, err)
	}
	return cfg, nil
}

// Validate проверяет значения, которые нельзя исправить молча
func (c *Config) Validate() error {
	switch c.Session.Transport {
	case "", "tcp", "kcp":
	default:
		return fmt.Errorf("неизвестный транспорт %q", c.Session.Transport)
	}
	if c.Game.TickRate < 0 || c.Session.SnapshotRate < 0 {
		return fmt.Errorf("частота не может быть отрицательной")
	}
	if c.Session.ConnectTries < 0 {
		return fmt.Errorf("число попыток подключения не может быть отрицательным")
	}
	switch c.Storage.Cache {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("неизвестный кеш %q", c.Storage.Cache)
	}
	return nil
}
