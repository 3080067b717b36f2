package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xtdb/xtdocs/internal/application/services"
	"github.com/xtdb/xtdocs/internal/infrastructure/messaging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/performance"
)

// RenderRequest is the body of a playground render.
type RenderRequest struct {
	HTML      string                       `json:"html" binding:"required"`
	SessionID string                       `json:"sessionId"`
	Values    map[string]map[string]string `json:"values"`
	Order     string                       `json:"order"`
	Seed      uint64                       `json:"seed"`
}

// ShareRequest is the body of a share link request.
type ShareRequest struct {
	HTML     string `json:"html" binding:"required"`
	WidgetID string `json:"widgetId" binding:"required"`
}

// PlaygroundHandlers runs playground pages and streams their events.
type PlaygroundHandlers struct {
	renderer    PageRenderer
	broadcaster messaging.Broadcaster
	heartbeat   time.Duration
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewPlaygroundHandlers creates playground handlers.
func NewPlaygroundHandlers(
	renderer PageRenderer,
	broadcaster messaging.Broadcaster,
	heartbeat time.Duration,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *PlaygroundHandlers {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &PlaygroundHandlers{
		renderer:    renderer,
		broadcaster: broadcaster,
		heartbeat:   heartbeat,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostRender handles POST /api/v1/playground/render
func (h *PlaygroundHandlers) PostRender(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	marker := h.perfTracker.StartOperation("playground:render", req.SessionID)
	defer marker.Complete()

	result, err := h.renderer.RenderPage(c.Request.Context(), req.HTML, services.PageOptions{
		SessionID: req.SessionID,
		Values:    req.Values,
		Order:     req.Order,
		Seed:      req.Seed,
	})
	if err != nil {
		marker.SetError(err)
		h.renderError(c, err)
		return
	}

	marker.SetSuccess(true)
	marker.Scope = result.SessionID
	marker.AddMetadata("widgets", len(result.Widgets))
	h.logger.Perf().Info("Performance for PostRender request",
		"duration", time.Since(marker.StartTime), "sessionId", result.SessionID, "widgets", len(result.Widgets))
	c.JSON(http.StatusOK, result)
}

// PostShare handles POST /api/v1/playground/share. It redirects to the
// xtplay link unless ?format=json asks for it in the body.
func (h *PlaygroundHandlers) PostShare(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	link, err := h.renderer.ShareURL(c.Request.Context(), req.HTML, req.WidgetID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"url": link, "widgetId": req.WidgetID})
		return
	}
	c.Redirect(http.StatusFound, link)
}

func (h *PlaygroundHandlers) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPage):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Playground().Warn("Playground page timed out", "error", err.Error())
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "playground page timed out"})
	default:
		h.logger.Playground().Error("Playground request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GetEvents handles GET /api/v1/playground/events?sessionId=
func (h *PlaygroundHandlers) GetEvents(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}

	ch, err := h.broadcaster.AddClient(sessionID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer h.broadcaster.RemoveClient(ch, sessionID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	connected, _ := messaging.FormatSSE("", gin.H{
		"type":      "connected",
		"sessionId": sessionID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if _, err := c.Writer.WriteString(connected); err != nil {
		return
	}
	c.Writer.Flush()

	h.logger.SSE().Info("SSE connection established",
		"sessionId", sessionID,
		"sessionConnections", h.broadcaster.SessionConnectionCount(sessionID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	connectionStart := time.Now()
	for {
		select {
		case <-ctx.Done():
			h.logger.SSE().Info("SSE client disconnected",
				"sessionId", sessionID,
				"connectionDuration", time.Since(connectionStart))
			return

		case message, ok := <-ch:
			if !ok {
				return
			}
			if _, err := c.Writer.WriteString(message); err != nil {
				h.logger.SSE().Error("SSE write failed", "sessionId", sessionID, "error", err.Error())
				return
			}
			c.Writer.Flush()

		case <-ticker.C:
			heartbeat, _ := messaging.FormatSSE("", gin.H{
				"type":      "heartbeat",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			if _, err := c.Writer.WriteString(heartbeat); err != nil {
				h.logger.SSE().Error("SSE heartbeat failed", "sessionId", sessionID, "error", err.Error())
				return
			}
			c.Writer.Flush()
		}
	}
}
