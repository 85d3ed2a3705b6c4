// Package api HTTP API состояния хоста: здоровье процесса, сессия, мир,
// прогресс игроков и административные команды под JWT.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/gunguys/internal/auth"
	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/middleware"
	"github.com/annel0/gunguys/internal/network"
	"github.com/annel0/gunguys/internal/sim"
	"github.com/annel0/gunguys/internal/storage"
)

// SessionSource сетевая сессия
type SessionSource interface {
	Summary() network.Summary
	Kick(peerID string) error
}

// WorldSource мир симуляции
type WorldSource interface {
	Stats() sim.Stats
}

// ProgressReader чтение сохранённого прогресса
type ProgressReader interface {
	Load(ctx context.Context, name string) (storage.Progress, error)
}

// Leaderboard рейтинг игроков, есть не у всех хранилищ
type Leaderboard interface {
	TopPlayers(ctx context.Context, n int) ([]string, error)
}

// Config зависимости сервера. Отсутствующие части отключают свои маршруты.
type Config struct {
	Addr        string
	Session     SessionSource
	World       WorldSource
	Progress    ProgressReader
	Leaderboard Leaderboard

	Tokens            *auth.TokenIssuer
	AdminPasswordHash string

	Registry *prometheus.Registry
	Log      *logging.Logger
}

// GenericResponse общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RestServer REST API сервер
type RestServer struct {
	router  *gin.Engine
	srv     *http.Server
	cfg     Config
	tokens  *auth.TokenIssuer
	metrics *ServerMetrics
	log     *logging.Logger
}

// NewRestServer создает сервер и настраивает маршруты
func NewRestServer(cfg Config) *RestServer {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(otelgin.Middleware("gunguys_api"))
	router.Use(middleware.NewRequestLogger(cfg.Log).Handler())

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("gunguys_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:  router,
		cfg:     cfg,
		tokens:  cfg.Tokens,
		metrics: NewServerMetrics(),
		log:     cfg.Log,
	}
	rs.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.setupRoutes()
	return rs
}

func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.GET("/session", rs.handleSession)
	api.GET("/world", rs.handleWorld)
	api.GET("/players/:name", rs.handlePlayer)
	api.GET("/leaderboard", rs.handleLeaderboard)
	api.POST("/auth/token", rs.handleToken)

	admin := api.Group("/admin")
	admin.Use(rs.jwtMiddleware(), rs.adminMiddleware())
	{
		admin.POST("/kick", rs.handleKick)
		admin.GET("/runtime", rs.handleRuntime)
	}
}

// Handler HTTP обработчик, удобен для тестов
func (rs *RestServer) Handler() http.Handler { return rs.router }

// Start слушает адрес до Shutdown. http.ErrServerClosed не считается ошибкой.
func (rs *RestServer) Start() error {
	rs.log.Info("REST API на %s", rs.cfg.Addr)
	if err := rs.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается завершения активных запросов
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.srv.Shutdown(ctx)
}
