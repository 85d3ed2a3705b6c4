package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/gunguys/internal/config"
	"github.com/annel0/gunguys/internal/eventbus"
	"github.com/annel0/gunguys/internal/game"
	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/network"
	"github.com/annel0/gunguys/internal/observability"
	"github.com/annel0/gunguys/internal/protocol/replay"
	"github.com/annel0/gunguys/internal/replication"
	"github.com/annel0/gunguys/internal/sim"
	"github.com/annel0/gunguys/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML конфигурации (по умолчанию GAME_CONFIG)")
		mode       = flag.String("mode", "host", "режим: host | join | discover | solo")
		addr       = flag.String("addr", "", "адрес хоста для join; пусто: первая найденная игра")
		name       = flag.String("name", "", "имя игрока")
		bot        = flag.Bool("bot", true, "управлять игроком автоприцелом")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	if *name != "" {
		cfg.Game.PlayerName = *name
	}

	logging.SetLogDir(cfg.Logging.Dir)
	logging.SetDefaultLevel(logging.ParseLevel(cfg.Logging.Level))
	if err := logging.InitDefaultLogger("gunguys"); err != nil {
		log.Fatalf("Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mode, *addr, *bot); err != nil {
		logging.Error("Завершение с ошибкой: %v", err)
		os.Exit(1)
	}
	logging.Info("Узел остановлен")
}

func run(ctx context.Context, cfg *config.Config, mode, addr string, bot bool) error {
	if mode == "discover" {
		return discover(ctx, cfg)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.Service, cfg.Telemetry.Endpoint, cfg.Telemetry.Insecure)
		if err != nil {
			logging.Warn("Трассировка отключена: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := network.NewMetrics(reg)

	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	exporter := eventbus.NewMetricsExporter(bus, reg)
	exporter.Start()
	defer exporter.Stop()

	if _, err := eventbus.StartLoggingListener(ctx, bus, logging.GetComponentLogger(logging.ComponentEvents)); err != nil {
		logging.Warn("Журнал событий недоступен: %v", err)
	}

	repo, err := storage.Open(ctx, storageConfig(cfg))
	if err != nil {
		return fmt.Errorf("хранилище прогресса: %w", err)
	}
	defer repo.Close()

	tracker := storage.NewProgressTracker(repo, logging.GetStorageLogger())
	if err := tracker.Start(ctx, bus); err != nil {
		return fmt.Errorf("подписка на прогресс: %w", err)
	}
	defer tracker.Stop()

	worldCfg, err := worldConfig(cfg)
	if err != nil {
		return err
	}
	world := sim.NewWorld(worldCfg, logging.GetGameLogger())
	netID := uuid.NewString()
	world.SpawnLocalPlayer(netID, cfg.Game.PlayerName)

	sessCfg, err := sessionConfig(cfg)
	if err != nil {
		return err
	}
	session := network.NewSession(sessCfg, logging.GetSessionLogger(), metrics)
	defer session.Stop()

	switch mode {
	case "host":
		if err := session.StartHost(ctx, func() int { return 1 + session.PeerCount() }); err != nil {
			return fmt.Errorf("запуск хоста: %w", err)
		}
	case "join":
		if err := join(ctx, session, addr); err != nil {
			// Без хоста продолжаем одиночную игру
			logging.Warn("%v, продолжаем без сети", err)
		}
	case "solo":
	default:
		return fmt.Errorf("неизвестный режим %q", mode)
	}

	var recorder *replay.Recorder
	if cfg.Replay.Enabled && session.IsHost() {
		rec, path, err := replay.CreateFile(cfg.Replay.Dir, map[string]string{
			"session": cfg.Session.Name,
			"player":  cfg.Game.PlayerName,
		})
		if err != nil {
			logging.Warn("Запись реплея отключена: %v", err)
		} else {
			recorder = rec
			defer recorder.Close()
			logging.Info("Реплей пишется в %s", path)
		}
	}

	bcastOpts := replication.Options{
		Rate:       cfg.Session.SnapshotRate,
		FullEvery:  cfg.Session.FullSnapshotInterval(),
		PlayerName: cfg.Game.PlayerName,
		Metrics:    metrics,
		Log:        logging.GetReplicationLogger(),
	}
	if recorder != nil {
		bcastOpts.Recorder = recorder
	}
	bcast := replication.NewBroadcaster(world, session, bcastOpts)

	var input game.InputSource = game.IdleSource{}
	if bot {
		input = game.NewAutoAim()
	}
	runner := game.NewRunner(world, session, game.Options{
		TickRate:    cfg.Game.TickRate,
		Input:       input,
		Emitter:     eventbus.NewEmitter(bus, netID, cfg.Session.Name),
		Tracker:     tracker,
		Broadcaster: bcast,
		Log:         logging.GetGameLogger(),
	})
	if _, err := runner.Restore(ctx); err != nil {
		logging.Warn("Прогресс не загружен: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error {
		bcast.Run(gctx)
		return nil
	})

	if cfg.API.Enabled {
		srv, err := newAPIServer(cfg, session, world, repo, reg)
		if err != nil {
			return err
		}
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logging.Info("Узел %s запущен: режим %s, игрок %s", session, mode, cfg.Game.PlayerName)
	err = g.Wait()

	if saveErr := runner.SaveProgress(context.Background()); saveErr != nil {
		logging.Warn("Прогресс не сохранён: %v", saveErr)
	}
	return err
}

func join(ctx context.Context, session *network.Session, addr string) error {
	if addr == "" {
		logging.Info("Поиск игр в течение %s...", network.DiscoveryWindow)
		games, err := session.Scan(ctx, network.DiscoveryWindow)
		if err != nil {
			return fmt.Errorf("обнаружение игр: %w", err)
		}
		if len(games) == 0 {
			return errors.New("игры в сети не найдены")
		}
		addr = games[0].Address()
	}
	return session.Join(ctx, addr)
}

func discover(ctx context.Context, cfg *config.Config) error {
	sessCfg, err := sessionConfig(cfg)
	if err != nil {
		return err
	}
	session := network.NewSession(sessCfg, logging.GetSessionLogger(), nil)
	games, err := session.Scan(ctx, network.DiscoveryWindow)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println("Игры не найдены")
		return nil
	}
	for _, g := range games {
		fmt.Printf("%-24s %-21s игроков: %d\n", g.Name, g.Address(), g.Players)
	}
	return nil
}
