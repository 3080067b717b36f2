package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xtdb/xtdocs/internal/infrastructure/messaging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

// WatchService rebuilds the site when content changes and tells live-reload
// clients which pages changed.
type WatchService struct {
	docs     *DocsService
	reloader messaging.Reloader
	dir      string
	debounce time.Duration
	logger   *logging.ChanneledLogger
}

// NewWatchService creates a new watch service. reloader may be nil.
func NewWatchService(docs *DocsService, reloader messaging.Reloader, dir string, debounce time.Duration, logger *logging.ChanneledLogger) *WatchService {
	return &WatchService{
		docs:     docs,
		reloader: reloader,
		dir:      dir,
		debounce: debounce,
		logger:   logger,
	}
}

// Run watches the content directory until ctx is cancelled. Bursts of file
// events are coalesced into one rebuild per debounce window.
func (w *WatchService) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.dir); err != nil {
		return err
	}
	w.logger.Content().Info("Watching content directory", "dir", w.dir, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Content().Info("Content watcher stopping")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(watcher, event.Name); err != nil {
						w.logger.Content().Warn("Failed to watch new directory", "dir", event.Name, "error", err.Error())
					}
				}
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Content().Debug("Content changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Content().Error("Watcher error", "error", err.Error())

		case <-timer.C:
			w.Rebuild(ctx)
		}
	}
}

// Rebuild runs one build and broadcasts the changed pages.
func (w *WatchService) Rebuild(ctx context.Context) {
	report, err := w.docs.Build(ctx)
	if errors.Is(err, ErrBuildInProgress) {
		w.logger.Content().Debug("Rebuild skipped, build already running")
		return
	}
	if err != nil {
		w.logger.Content().Error("Rebuild failed", "error", err.Error())
		return
	}
	if w.reloader == nil || (len(report.Changed) == 0 && report.Removed == 0) {
		return
	}
	msg := messaging.ReloadMessage{Type: "reload", Slugs: report.Changed}
	if report.Removed > 0 {
		// removed pages change the navigation of every page
		msg.Slugs = nil
	}
	w.reloader.Broadcast(msg)
}

func (w *WatchService) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if IsContentFile(event.Name) {
		return true
	}
	// a removed or renamed directory takes its files with it
	return event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *WatchService) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
