package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xtdb/xtdocs/internal/application/services"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/performance"
)

// LoginRequest is the admin login body.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthHandlers contains admin authentication and maintenance handlers
type AuthHandlers struct {
	auth        Authenticator
	builder     DocsBuilder
	cache       CacheInspector
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(
	auth Authenticator,
	builder DocsBuilder,
	cache CacheInspector,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *AuthHandlers {
	return &AuthHandlers{
		auth:        auth,
		builder:     builder,
		cache:       cache,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostLogin handles POST /api/v1/auth/login
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	if !h.auth.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "admin login is disabled"})
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result := h.auth.AuthenticateAdmin(req.Password)
	if !result.Success {
		c.JSON(http.StatusUnauthorized, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostRebuild handles POST /api/v1/admin/rebuild
func (h *AuthHandlers) PostRebuild(c *gin.Context) {
	marker := h.perfTracker.StartOperation("docs:rebuild", "admin")
	defer marker.Complete()

	report, err := h.builder.Build(c.Request.Context())
	if err != nil {
		marker.SetError(err)
		if errors.Is(err, services.ErrBuildInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Content().Error("Admin rebuild failed", "error", err.Error(), "duration", time.Since(marker.StartTime))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	marker.SetSuccess(true)
	marker.AddMetadata("entries", len(report.Slugs))
	h.logger.Perf().Info("Performance for PostRebuild request", "duration", time.Since(marker.StartTime), "entries", len(report.Slugs))
	c.JSON(http.StatusOK, report)
}

// GetCache handles GET /api/v1/admin/cache
func (h *AuthHandlers) GetCache(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Summary())
}

// GetMetrics handles GET /api/v1/admin/metrics
func (h *AuthHandlers) GetMetrics(c *gin.Context) {
	stats := h.perfTracker.GetOverallStats()
	stats["recent"] = h.perfTracker.GetRecentMetrics(5 * time.Minute)
	c.JSON(http.StatusOK, stats)
}

// DeleteCache handles DELETE /api/v1/admin/cache
func (h *AuthHandlers) DeleteCache(c *gin.Context) {
	h.cache.InvalidateAll()
	h.logger.Cache().Info("Page cache cleared by admin")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
