package api

import (
	"net/http"
	"time"

	"github.com/wrenwealth/Archantum/internal/usecase"
	xhttp "github.com/wrenwealth/Archantum/pkg/http"
	xlogger "github.com/wrenwealth/Archantum/pkg/logger"

	"github.com/labstack/echo/v4"
)

const defaultAlertLimit = 50

// StatusEchoHandler exposes the operational surface: liveness, last-tick
// status, and the recent alert feed.
type StatusEchoHandler struct {
	logger  *xlogger.Logger
	engine  *usecase.Engine
	started time.Time
}

func NewStatusEchoHandler(logger *xlogger.Logger, engine *usecase.Engine) *StatusEchoHandler {
	return &StatusEchoHandler{logger: logger, engine: engine, started: time.Now()}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/alerts/recent", h.RecentAlerts)
}

// Healthz reports liveness. The process is healthy as long as it serves;
// degraded sources show up in /api/status, not here.
func (h *StatusEchoHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// Status returns the last tick's summary plus per-source health.
func (h *StatusEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Status())
}

// RecentAlerts returns alerts ordered by most recently seen. Supports
// ?limit=N, capped to keep responses bounded.
func (h *StatusEchoHandler) RecentAlerts(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), defaultAlertLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultAlertLimit
	}
	alerts := h.engine.RecentAlerts(limit)
	return xhttp.ListResponse(c, alerts, int64(len(alerts)))
}
