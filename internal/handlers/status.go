// Package handlers contains the HTTP route handlers of the ops surface.
package handlers

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/botpanel/telegram-bot-service/internal/store"
	"github.com/botpanel/telegram-bot-service/internal/telegrampool"
	"github.com/botpanel/telegram-bot-service/internal/version"
)

// StatusHandler exposes process health and a snapshot of the bot pool.
type StatusHandler struct {
	pool     *telegrampool.Manager
	recorder *store.BestEffortRecorder
}

func NewStatusHandler(pool *telegrampool.Manager, recorder *store.BestEffortRecorder) *StatusHandler {
	return &StatusHandler{pool: pool, recorder: recorder}
}

func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/api/status", h.Status)
}

type statusResponse struct {
	Version         string                        `json:"version"`
	PoolSize        int                           `json:"pool_size"`
	Bots            []telegrampool.InstanceStatus `json:"bots"`
	DroppedLogWrite int64                         `json:"dropped_log_writes"`
}

// Health answers liveness probes.
func (h *StatusHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Status returns version, pool size, and per-bot connection state.
func (h *StatusHandler) Status(c echo.Context) error {
	bots := h.pool.Snapshot()
	sort.Slice(bots, func(i, j int) bool { return bots[i].BotID < bots[j].BotID })
	resp := statusResponse{
		Version:  version.GetInfo(),
		PoolSize: h.pool.Size(),
		Bots:     bots,
	}
	if h.recorder != nil {
		resp.DroppedLogWrite = h.recorder.Failures()
	}
	return c.JSON(http.StatusOK, resp)
}
