package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/xtdb/xtdocs/internal/domain/playground"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching/stores"
	"github.com/xtdb/xtdocs/internal/infrastructure/markup"
	"github.com/xtdb/xtdocs/internal/infrastructure/messaging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/internal/infrastructure/persistence/content"
	"github.com/xtdb/xtdocs/internal/infrastructure/persistence/database"
	"github.com/xtdb/xtdocs/internal/infrastructure/scripting"
	"github.com/xtdb/xtdocs/internal/presentation/templates"
)

type recordingInvoker struct {
	mu      sync.Mutex
	queries []string
	body    string
}

func (r *recordingInvoker) invoke(_ context.Context, _ []playground.TxBatch, query string) (*playground.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	body := r.body
	if body == "" {
		body = `[{"n":1}]`
	}
	return &playground.Response{OK: true, Status: 200, Body: []byte(body)}, nil
}

func (r *recordingInvoker) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []messaging.PlaygroundEvent
}

func (b *recordingBroadcaster) AddClient(string) (chan string, error) { return nil, nil }
func (b *recordingBroadcaster) RemoveClient(chan string, string)      {}
func (b *recordingBroadcaster) SessionConnectionCount(string) int     { return 0 }
func (b *recordingBroadcaster) Publish(e messaging.PlaygroundEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBroadcaster) Events() []messaging.PlaygroundEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]messaging.PlaygroundEvent(nil), b.events...)
}

func newPlaygroundService(inv *recordingInvoker, b messaging.Broadcaster) *PlaygroundService {
	return NewPlaygroundService(inv.invoke, templates.NewViews(), scripting.NewTemplateEngine(time.Second), b,
		PlaygroundConfig{
			XtPlayURL:   "https://play.xtdb.com",
			QuietWindow: 5 * time.Millisecond,
			SettleDelay: 10 * time.Millisecond,
			PageTimeout: 5 * time.Second,
		}, logging.NewDiscardLogger())
}

func newDocsService(t *testing.T, contentDir string, pg *PlaygroundService) (*DocsService, string) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.CreateSchema(context.Background(), db))

	logger := logging.NewDiscardLogger()
	repo := content.NewEntryRepository(db, stores.NewPagesStore(time.Hour, logger), logger)
	outDir := t.TempDir()
	svc := NewDocsService(markup.NewConverter(markup.NewHighlighter(markup.DefaultStyle)), repo, pg, caching.NewWarmingLock(),
		DocsConfig{
			ContentDir:           contentDir,
			OutDir:               outDir,
			Concurrency:          2,
			PrerenderPlaygrounds: pg != nil,
			ContactEmail:         "docs@xtdb.com",
		}, logger)
	return svc, outDir
}

func writeContent(t *testing.T, dir, rel, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
