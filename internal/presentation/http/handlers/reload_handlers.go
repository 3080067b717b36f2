package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/xtdb/xtdocs/internal/infrastructure/messaging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

// ReloadHandlers upgrades live-reload websocket connections.
type ReloadHandlers struct {
	hub      *messaging.ReloadHub
	upgrader websocket.Upgrader
	logger   *logging.ChanneledLogger
}

// NewReloadHandlers creates reload handlers. The reload socket is only
// served to pages of this site, so any origin is accepted.
func NewReloadHandlers(hub *messaging.ReloadHub, logger *logging.ChanneledLogger) *ReloadHandlers {
	return &ReloadHandlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// GetReload handles GET /ws/reload
func (h *ReloadHandlers) GetReload(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.SSE().Warn("Reload websocket upgrade failed", "error", err.Error())
		return
	}
	h.hub.Serve(messaging.NewReloadClient(conn))
}
