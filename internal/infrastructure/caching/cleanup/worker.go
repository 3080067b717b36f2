// Package cleanup provides the background cache cleanup worker
package cleanup

import (
	"context"
	"time"

	"github.com/xtdb/xtdocs/internal/infrastructure/caching/interfaces"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

// Worker periodically purges expired pages from the page cache.
type Worker struct {
	cache  interfaces.PageCache
	config *Config
	logger *logging.ChanneledLogger
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cache interfaces.PageCache, config *Config, logger *logging.ChanneledLogger) *Worker {
	return &Worker{
		cache:  cache,
		config: config,
		logger: logger,
	}
}

// Start runs the cleanup loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.logger.Cache().Info("Cache cleanup worker started",
		"interval", w.config.CleanupInterval, "verbose", w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			w.logger.Cache().Info("Cache cleanup worker stopping")
			return
		case <-ticker.C:
			w.PerformCleanup()
		}
	}
}

// PerformCleanup runs one cleanup pass and returns the number of pages purged.
func (w *Worker) PerformCleanup() int {
	start := time.Now()
	if w.config.VerboseReporting {
		w.logger.Cache().Info("Page cache report", "summary", w.cache.Summary())
	}

	cleaned := w.cache.PurgeExpired()
	duration := time.Since(start)
	if cleaned > 0 {
		w.logger.Cache().Info("Cache cleanup finished", "cleaned", cleaned, "duration", duration)
	} else if w.config.VerboseReporting {
		w.logger.Cache().Info("Cache cleanup completed - no expired pages found", "duration", duration)
	}
	return cleaned
}
