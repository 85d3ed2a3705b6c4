package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/gunguys/internal/api"
	"github.com/annel0/gunguys/internal/auth"
	"github.com/annel0/gunguys/internal/config"
	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/eventbus"
	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/network"
	"github.com/annel0/gunguys/internal/physics"
	"github.com/annel0/gunguys/internal/sim"
	"github.com/annel0/gunguys/internal/storage"
)

func openBus(cfg *config.Config) (eventbus.EventBus, error) {
	if cfg.EventBus.URL == "" {
		return eventbus.NewMemoryBus(cfg.EventBus.Capacity), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, cfg.EventBus.RetentionDuration())
	if err != nil {
		return nil, fmt.Errorf("подключение к NATS %s: %w", cfg.EventBus.URL, err)
	}
	logging.Info("События публикуются в JetStream %s", cfg.EventBus.Stream)
	return bus, nil
}

func storageConfig(cfg *config.Config) storage.Config {
	redis := storage.DefaultRedisConfig()
	if cfg.Storage.RedisAddr != "" {
		redis.Addr = cfg.Storage.RedisAddr
	}
	redis.Password = cfg.Storage.RedisPassword
	redis.DB = cfg.Storage.RedisDB

	return storage.Config{
		Backend:  cfg.Storage.Backend,
		DataPath: cfg.Storage.DataPath,
		Redis:    *redis,
		MariaDSN: cfg.Storage.MariaDSN,
		Mongo: storage.MongoConfig{
			URI:        cfg.Storage.MongoURI,
			Database:   cfg.Storage.MongoDatabase,
			Collection: cfg.Storage.MongoCollection,
		},
		Cache: storage.CacheConfig{
			Backend:         cfg.Storage.Cache,
			TTL:             cfg.Storage.CacheTTLDuration(),
			Redis:           storage.RedisConfig{Addr: cfg.Storage.CacheRedisAddr, Password: cfg.Storage.RedisPassword},
			InvalidationURL: cfg.Storage.InvalidationURL,
		},
	}
}

func worldConfig(cfg *config.Config) (sim.Config, error) {
	wc := sim.DefaultConfig()
	d, err := entity.ParseDifficulty(cfg.Game.Difficulty)
	if err != nil {
		return wc, err
	}
	wc.Difficulty = d
	wc.Policy = sim.ParseCollisionPolicy(cfg.Game.Collision)
	if cfg.Game.MonsterCap > 0 {
		wc.MonsterCap = cfg.Game.MonsterCap
	}
	if size := cfg.Game.ArenaSize; size > 0 {
		wc.Arena = physics.Rect{MinX: -size / 2, MinY: -size / 2, MaxX: size / 2, MaxY: size / 2}
	}
	wc.Seed = cfg.Game.Seed
	return wc, nil
}

func sessionConfig(cfg *config.Config) (network.Config, error) {
	transport, err := network.ParseTransport(cfg.Session.Transport)
	if err != nil {
		return network.Config{}, err
	}
	return network.Config{
		Name:          cfg.Session.Name,
		BindHost:      cfg.Server.Host,
		GamePort:      cfg.Server.GetGamePort(),
		DiscoveryPort: cfg.Server.GetDiscoveryPort(),
		BroadcastAddr: cfg.Session.BroadcastAddr,
		Transport:     transport,
		Retry: network.RetryPolicy{
			Attempts: cfg.Session.ConnectTries,
			Timeout:  cfg.Session.ConnectTimeout(),
			Delay:    cfg.Session.RetryInterval(),
		},
		SendQueue: cfg.Session.SendQueue,
	}, nil
}

func newAPIServer(cfg *config.Config, session *network.Session, world *sim.World, repo storage.ProgressRepository, reg *prometheus.Registry) (*api.RestServer, error) {
	tokens, err := auth.NewTokenIssuer(cfg.API.JWTSecret, "", 0)
	if err != nil {
		return nil, fmt.Errorf("ключ JWT: %w", err)
	}

	apiCfg := api.Config{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GetRESTPort()),
		Session:           session,
		World:             world,
		Progress:          repo,
		Tokens:            tokens,
		AdminPasswordHash: cfg.API.AdminPasswordHash,
		Registry:          reg,
		Log:               logging.GetComponentLogger(logging.ComponentAPI),
	}
	if lb, ok := repo.(api.Leaderboard); ok {
		apiCfg.Leaderboard = lb
	}
	return api.NewRestServer(apiCfg), nil
}
