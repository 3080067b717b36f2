// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xtdb/xtdocs/internal/application/container"
	"github.com/xtdb/xtdocs/internal/presentation/http/server"
	"github.com/xtdb/xtdocs/pkg/config"
)

// ServeOptions selects what Serve runs next to the HTTP server.
type ServeOptions struct {
	Port string
	// Watch rebuilds on content changes and enables live reload.
	Watch bool
	// SkipBuild serves the existing content index without building first.
	SkipBuild bool
}

const banner = "\033[32m" + `
                    __
   _  __/ /_____/ /___  __________
  | |/_/ __/ __  / __ \/ ___/ ___/
 _>  </ /_/ /_/ / /_/ / /__(__  )
/_/|_|\__/\__,_/\____/\___/____/
` + "\033[97m" + `
  documentation and playgrounds for XTDB
` + "\033[0m"

// Build runs one documentation build and exits.
func Build(ctx context.Context) error {
	setupLogging()

	app, err := newContainer(false)
	if err != nil {
		return err
	}
	defer func() {
		app.Close()
		app.Logger.Close()
	}()

	report, err := app.DocsService.Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	log.Printf("Built %d entries (%d changed, %d removed) into %s in %s",
		len(report.Slugs), len(report.Changed), report.Removed, config.OutDir, report.Duration.Round(time.Millisecond))
	return nil
}

// Serve performs the startup sequence and serves until SIGINT or SIGTERM.
func Serve(opts ServeOptions) error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println(banner)

	// Step 1: Create dependency injection container
	log.Println("Initializing dependency injection container...")
	app, err := newContainer(opts.Watch)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Shutdown().Error("Error closing content index", "error", err.Error())
		}
		app.Logger.Close()
	}()
	log.Println("✓ Dependency injection container created with singleton services.")

	logger := app.Logger
	logger.Startup().Info("Container initialization complete - switching to channeled logging")

	// Step 2: Build the documentation site
	if !opts.SkipBuild {
		logger.Startup().Info("Building documentation...")
		report, err := app.DocsService.Build(ctx)
		if err != nil {
			return fmt.Errorf("initial build failed: %w", err)
		}
		logger.Startup().Info("Initial build complete", "entries", len(report.Slugs), "duration", report.Duration)
	}

	// Step 3: Start background workers
	logger.Startup().Info("Starting background workers...")
	go app.CleanupWorker.Start(ctx)
	go app.ReloadHub.Run(ctx)

	watchErr := make(chan error, 1)
	if opts.Watch {
		go func() { watchErr <- app.WatchService.Run(ctx) }()
		logger.Startup().Info("Watching content for changes", "dir", config.ContentDir)
	}

	// Step 4: Start HTTP server
	port := opts.Port
	if port == "" {
		port = config.Port
	}
	httpServer := server.New(port, app)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(gracefulShutdown)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", port,
		"watch", opts.Watch)

	// Wait for shutdown signal or a failed component
	var runErr error
	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case runErr = <-serverErr:
		if runErr != nil {
			logger.System().Error("HTTP server failed", "error", runErr.Error())
		}
	case runErr = <-watchErr:
		if runErr != nil {
			logger.System().Error("Content watcher failed", "error", runErr.Error())
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return runErr
}

func newContainer(liveReload bool) (*container.Container, error) {
	logger, err := container.NewLogger()
	if err != nil {
		return nil, err
	}
	db, err := container.NewDatabase(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open content index: %w", err)
	}
	return container.NewContainer(db, logger, liveReload), nil
}

// setupLogging configures application logging
func setupLogging() {
	if config.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

