package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/gunguys/internal/auth"
	"github.com/annel0/gunguys/internal/storage"
)

const adminName = "admin"

// TokenRequest запрос токена администратора
type TokenRequest struct {
	Password string `json:"password" binding:"required"`
}

// KickRequest отключение клиента
type KickRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	uptime := rs.metrics.Uptime()
	health := gin.H{
		"status":         "ok",
		"uptime":         FormatUptime(uptime),
		"uptime_seconds": uptime.Seconds(),
		"server_time":    time.Now().Unix(),
	}
	if pct, err := rs.metrics.CPUPercent(); err == nil {
		health["cpu_percent"] = pct
	}
	if rss, err := rs.metrics.RSSMegabytes(); err == nil {
		health["rss_mb"] = rss
	}
	c.JSON(http.StatusOK, health)
}

func (rs *RestServer) handleSession(c *gin.Context) {
	if rs.cfg.Session == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Сессия недоступна"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: rs.cfg.Session.Summary()})
}

func (rs *RestServer) handleWorld(c *gin.Context) {
	if rs.cfg.World == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Мир недоступен"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: rs.cfg.World.Stats()})
}

func (rs *RestServer) handlePlayer(c *gin.Context) {
	if rs.cfg.Progress == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Хранилище прогресса не настроено"})
		return
	}

	p, err := rs.cfg.Progress.Load(c.Request.Context(), c.Param("name"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Игрок не найден"})
	case err != nil:
		rs.log.Warn("Ошибка чтения прогресса %q: %v", c.Param("name"), err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Message: "Ошибка хранилища"})
	default:
		c.JSON(http.StatusOK, GenericResponse{Success: true, Data: p})
	}
}

func (rs *RestServer) handleLeaderboard(c *gin.Context) {
	if rs.cfg.Leaderboard == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Рейтинг не поддерживается хранилищем"})
		return
	}

	n, err := strconv.Atoi(c.DefaultQuery("n", "10"))
	if err != nil || n <= 0 || n > 100 {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "n должно быть от 1 до 100"})
		return
	}

	names, err := rs.cfg.Leaderboard.TopPlayers(c.Request.Context(), n)
	if err != nil {
		rs.log.Warn("Ошибка чтения рейтинга: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Message: "Ошибка хранилища"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: names})
}

// handleToken выдаёт токен администратора по паролю
func (rs *RestServer) handleToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный формат запроса"})
		return
	}
	if rs.tokens == nil || rs.cfg.AdminPasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: "Авторизация не настроена"})
		return
	}
	if !auth.CheckPassword(rs.cfg.AdminPasswordHash, req.Password) {
		rs.log.Warn("Неверный пароль администратора с %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, GenericResponse{Message: "Неверный пароль"})
		return
	}

	token, err := rs.tokens.Generate(adminName, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Message: "Ошибка генерации токена"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: gin.H{"token": token}})
}

func (rs *RestServer) handleKick(c *gin.Context) {
	var req KickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный формат запроса"})
		return
	}
	if rs.cfg.Session == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Сессия недоступна"})
		return
	}

	if err := rs.cfg.Session.Kick(req.PeerID); err != nil {
		c.JSON(http.StatusNotFound, GenericResponse{Message: err.Error()})
		return
	}
	rs.log.Info("Администратор %s отключил клиента %s", c.GetString("user"), req.PeerID)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Клиент отключён"})
}

func (rs *RestServer) handleRuntime(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: rs.metrics.RuntimeStats()})
}
