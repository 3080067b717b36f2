// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/xtdb/xtdocs/internal/application/services"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching/cleanup"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching/stores"
	"github.com/xtdb/xtdocs/internal/infrastructure/markup"
	"github.com/xtdb/xtdocs/internal/infrastructure/messaging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/performance"
	"github.com/xtdb/xtdocs/internal/infrastructure/persistence/content"
	"github.com/xtdb/xtdocs/internal/infrastructure/persistence/database"
	"github.com/xtdb/xtdocs/internal/infrastructure/queryservice"
	"github.com/xtdb/xtdocs/internal/infrastructure/scripting"
	"github.com/xtdb/xtdocs/internal/presentation/templates"
	"github.com/xtdb/xtdocs/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	DocsService       *services.DocsService
	PlaygroundService *services.PlaygroundService
	AuthService       *services.AuthService
	WatchService      *services.WatchService

	// Real-time
	Broadcaster *messaging.SSEBroadcaster
	ReloadHub   *messaging.ReloadHub

	// Infrastructure Dependencies
	DB            *database.DB
	PageCache     *stores.PagesStore
	BuildLock     *caching.WarmingLock
	CleanupWorker *cleanup.Worker
	PerfTracker   *performance.Tracker
	Logger        *logging.ChanneledLogger

	// LiveReload is set when pages are served with the reload script.
	LiveReload bool
}

// NewLogger builds the channeled logger from pkg/config.
func NewLogger() (*logging.ChanneledLogger, error) {
	logger, err := logging.NewChanneledLogger(logging.ConfigFromSettings(config.LogLevel, config.LogJSON, config.LogDir))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// NewDatabase opens the content index configured in pkg/config.
func NewDatabase(logger *logging.ChanneledLogger) (*database.DB, error) {
	return database.NewConnectionWithLogger(config.DBDriver, config.DBURL, database.Options{
		MaxOpenConns: config.DBMaxOpenConns,
		MaxIdleConns: config.DBMaxIdleConns,
	}, logger)
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, logger *logging.ChanneledLogger, liveReload bool) *Container {
	pageCache := stores.NewPagesStore(config.FragmentTTL, logger)
	entries := content.NewEntryRepository(db.DB, pageCache, logger)
	buildLock := caching.NewWarmingLock()

	broadcaster := messaging.NewSSEBroadcaster(config.MaxSSEConnections, logger)
	reloadHub := messaging.NewReloadHub(logger)

	queryClient := queryservice.NewClient(config.QueryServiceURL, config.QueryTimeout, logger)
	playgroundService := services.NewPlaygroundService(
		queryClient.Invoke,
		templates.NewViews(),
		scripting.NewTemplateEngine(config.TemplateTimeout),
		broadcaster,
		services.PlaygroundConfig{
			XtPlayURL:   config.XtPlayURL,
			QuietWindow: config.QuietWindow,
			SettleDelay: config.SettleDelay,
			PageTimeout: config.PageTimeout,
		},
		logger,
	)

	converter := markup.NewConverter(markup.NewHighlighter(config.HighlightStyle))
	docsService := services.NewDocsService(converter, entries, playgroundService, buildLock,
		services.DocsConfig{
			ContentDir:           config.ContentDir,
			OutDir:               config.OutDir,
			Concurrency:          config.BuildConcurrency,
			PrerenderPlaygrounds: config.PrerenderPlaygrounds,
			ContactEmail:         config.ContactEmail,
		},
		logger,
	)

	return &Container{
		DocsService:       docsService,
		PlaygroundService: playgroundService,
		AuthService:       services.NewAuthService(config.AdminPasswordHash, config.JWTSecret, config.AdminTokenTTL, logger),
		WatchService:      services.NewWatchService(docsService, reloadHub, config.ContentDir, config.WatchDebounce, logger),

		Broadcaster: broadcaster,
		ReloadHub:   reloadHub,

		DB:            db,
		PageCache:     pageCache,
		BuildLock:     buildLock,
		CleanupWorker: cleanup.NewWorker(pageCache, cleanup.NewConfig(), logger),
		PerfTracker:   performance.NewTracker(performance.DefaultTrackerConfig()),
		Logger:        logger,

		LiveReload: liveReload,
	}
}

// Close releases the container's resources.
func (c *Container) Close() error {
	return c.DB.Close()
}
