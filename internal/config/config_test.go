package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "GunGuys Game", cfg.Session.Name)
	assert.Equal(t, 5, cfg.Session.ConnectTries)
	assert.Equal(t, 5*time.Second, cfg.Session.ConnectTimeout())
	assert.Equal(t, 2*time.Second, cfg.Session.RetryInterval())
	assert.Equal(t, time.Second, cfg.Session.FullSnapshotInterval())
	assert.Equal(t, 60.0, cfg.Game.TickRate)
	assert.Empty(t, cfg.Storage.Cache)
	assert.Equal(t, 30*time.Second, cfg.Storage.CacheTTLDuration())
}

func TestLoad_OverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	data := []byte(`
server:
  game_port: 23456
session:
  name: "Пятничная арена"
  transport: kcp
game:
  difficulty: hard
storage:
  backend: badger
  data_path: /tmp/gg
eventbus:
  url: nats://127.0.0.1:4222
  retention_hours: 2
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 23456, cfg.Server.GetGamePort())
	assert.Equal(t, "Пятничная арена", cfg.Session.Name)
	assert.Equal(t, "kcp", cfg.Session.Transport)
	assert.Equal(t, "hard", cfg.Game.Difficulty)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 2*time.Hour, cfg.EventBus.RetentionDuration())
	// Не указанное в файле остаётся по умолчанию
	assert.Equal(t, 30.0, cfg.Session.SnapshotRate)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game:\n  player_name: Env\n"), 0o644))
	t.Setenv("GAME_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Env", cfg.Game.PlayerName)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  transport: carrier-pigeon\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "carrier-pigeon")

	require.NoError(t, os.WriteFile(path, []byte("storage:\n  cache: memcached\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "memcached")
}

func TestPortFallbacks(t *testing.T) {
	var s ServerConfig
	t.Setenv("GAME_TCP_PORT", "")
	t.Setenv("GAME_DISCOVERY_PORT", "40000")
	t.Setenv("GAME_REST_PORT", "abc")

	assert.Equal(t, DefaultGamePort, s.GetGamePort())
	assert.Equal(t, 40000, s.GetDiscoveryPort())
	assert.Equal(t, DefaultRESTPort, s.GetRESTPort(), "некорректное значение окружения игнорируется")

	s.DiscoveryPort = 50000
	assert.Equal(t, 50000, s.GetDiscoveryPort(), "конфиг важнее окружения")
}
