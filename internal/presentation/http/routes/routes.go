// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xtdb/xtdocs/internal/application/container"
	"github.com/xtdb/xtdocs/internal/infrastructure/persistence/database"
	"github.com/xtdb/xtdocs/internal/presentation/http/handlers"
	"github.com/xtdb/xtdocs/internal/presentation/http/middleware"
	"github.com/xtdb/xtdocs/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(config.CORSAllowedOrigins))

	docsHandlers := handlers.NewDocsHandlers(container.DocsService, container.LiveReload, container.Logger)
	playgroundHandlers := handlers.NewPlaygroundHandlers(
		container.PlaygroundService,
		container.Broadcaster,
		config.SSEHeartbeatInterval,
		container.Logger,
		container.PerfTracker,
	)
	reloadHandlers := handlers.NewReloadHandlers(container.ReloadHub, container.Logger)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.DocsService, container.PageCache, container.Logger, container.PerfTracker)

	r.GET("/health", func(c *gin.Context) {
		if err := database.VerifyConnection(c.Request.Context(), container.DB.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/docs/")
	})

	r.GET("/docs/*slug", docsHandlers.GetPage)
	r.GET("/styles/chroma.css", docsHandlers.GetStylesheet)
	r.GET("/ws/reload", reloadHandlers.GetReload)

	api := r.Group("/api/v1")
	{
		docs := api.Group("/docs")
		{
			docs.GET("", docsHandlers.GetEntries)
			docs.GET("/*slug", docsHandlers.GetEntry)
		}

		playground := api.Group("/playground")
		{
			playground.POST("/render", playgroundHandlers.PostRender)
			playground.POST("/share", playgroundHandlers.PostShare)
			playground.GET("/events", playgroundHandlers.GetEvents)
		}

		api.POST("/auth/login", authHandlers.PostLogin)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(container.AuthService))
		{
			admin.POST("/rebuild", authHandlers.PostRebuild)
			admin.GET("/cache", authHandlers.GetCache)
			admin.GET("/metrics", authHandlers.GetMetrics)
			admin.DELETE("/cache", authHandlers.DeleteCache)
		}
	}

	return r
}
