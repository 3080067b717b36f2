package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtdb/xtdocs/internal/application/services"
	"github.com/xtdb/xtdocs/internal/domain/entities/content"
	"github.com/xtdb/xtdocs/internal/infrastructure/messaging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/performance"
	"github.com/xtdb/xtdocs/internal/presentation/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDocs struct {
	entries map[string]*content.Entry
	builds  int
	err     error
}

func (f *fakeDocs) Get(_ context.Context, slug string) (*content.Entry, error) {
	entry, ok := f.entries[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", services.ErrEntryNotFound, slug)
	}
	return entry, nil
}

func (f *fakeDocs) List(context.Context) ([]*content.Summary, error) {
	out := []*content.Summary{}
	for _, e := range f.entries {
		out = append(out, &content.Summary{Slug: e.Slug, Title: e.Title, Path: e.Path})
	}
	return out, nil
}

func (f *fakeDocs) WritePage(_ context.Context, w io.Writer, entry *content.Entry, liveReload bool) error {
	_, err := fmt.Fprintf(w, "<h1>%s</h1><p>reload=%t</p>", entry.Title, liveReload)
	return err
}

func (f *fakeDocs) WriteStylesheet(w io.Writer) error {
	_, err := io.WriteString(w, ".chroma{}")
	return err
}

func (f *fakeDocs) Build(context.Context) (*services.BuildReport, error) {
	f.builds++
	if f.err != nil {
		return nil, f.err
	}
	return &services.BuildReport{Slugs: []string{"index"}, Changed: []string{}}, nil
}

type fakeRenderer struct {
	opts services.PageOptions
	err  error
}

func (f *fakeRenderer) RenderPage(_ context.Context, markup string, opts services.PageOptions) (*services.RenderResult, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &services.RenderResult{SessionID: "s1", HTML: markup + "<!--rendered-->", Widgets: []string{"w1"}}, nil
}

func (f *fakeRenderer) ShareURL(_ context.Context, _, widgetID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://play.xtdb.com?type=sql&widget=" + widgetID, nil
}

type fakeAuth struct{ enabled bool }

func (f fakeAuth) Enabled() bool { return f.enabled }

func (f fakeAuth) AuthenticateAdmin(password string) *services.AuthResult {
	if password != "secret" {
		return &services.AuthResult{Success: false, Error: "Invalid credentials"}
	}
	return &services.AuthResult{Success: true, Token: "tok", Role: "admin"}
}

func (f fakeAuth) ValidateAdminToken(token string) bool { return token == "tok" }

type fakeCache struct{ cleared bool }

func (f *fakeCache) Summary() map[string]any { return map[string]any{"pages": 2} }
func (f *fakeCache) InvalidateAll()          { f.cleared = true }

type fixture struct {
	router      *gin.Engine
	docs        *fakeDocs
	renderer    *fakeRenderer
	cache       *fakeCache
	broadcaster *messaging.SSEBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewDiscardLogger()
	tracker := performance.NewTracker(nil)
	f := &fixture{
		docs: &fakeDocs{entries: map[string]*content.Entry{
			"index": {Slug: "index", Title: "Home", Path: "index.md"},
			"guides/sql": {Slug: "guides/sql", Title: "SQL", Path: "guides/sql.md",
				Headings: []content.Heading{{Title: "Intro", ID: "intro", Children: []content.Heading{}}}},
		}},
		renderer:    &fakeRenderer{},
		cache:       &fakeCache{},
		broadcaster: messaging.NewSSEBroadcaster(1, logger),
	}

	docsHandlers := NewDocsHandlers(f.docs, true, logger)
	playgroundHandlers := NewPlaygroundHandlers(f.renderer, f.broadcaster, 20*time.Millisecond, logger, tracker)
	authHandlers := NewAuthHandlers(fakeAuth{enabled: true}, f.docs, f.cache, logger, tracker)

	r := gin.New()
	r.GET("/docs/*slug", docsHandlers.GetPage)
	r.GET("/styles/chroma.css", docsHandlers.GetStylesheet)
	r.GET("/api/v1/docs", docsHandlers.GetEntries)
	r.GET("/api/v1/docs/*slug", docsHandlers.GetEntry)
	r.POST("/api/v1/playground/render", playgroundHandlers.PostRender)
	r.POST("/api/v1/playground/share", playgroundHandlers.PostShare)
	r.GET("/api/v1/playground/events", playgroundHandlers.GetEvents)
	r.POST("/api/v1/auth/login", authHandlers.PostLogin)
	admin := r.Group("/api/v1/admin", middleware.AdminAuth(fakeAuth{enabled: true}))
	admin.POST("/rebuild", authHandlers.PostRebuild)
	admin.GET("/cache", authHandlers.GetCache)
	admin.DELETE("/cache", authHandlers.DeleteCache)
	admin.GET("/metrics", authHandlers.GetMetrics)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGetPage(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/docs/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "<h1>Home</h1><p>reload=true</p>", w.Body.String())

	w = f.do(http.MethodGet, "/docs/guides/sql/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SQL")

	w = f.do(http.MethodGet, "/docs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", decode(t, w)["slug"])
}

func TestGetEntryAndHeadings(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/docs/guides/sql", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SQL", decode(t, w)["title"])

	w = f.do(http.MethodGet, "/api/v1/docs/guides/sql/headings", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "guides/sql", body["slug"])
	headings := body["headings"].([]any)
	require.Len(t, headings, 1)
	assert.Equal(t, "intro", headings[0].(map[string]any)["id"])

	w = f.do(http.MethodGet, "/api/v1/docs/index/headings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["headings"])

	w = f.do(http.MethodGet, "/api/v1/docs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])
}

func TestGetStylesheet(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/styles/chroma.css", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
	assert.Equal(t, ".chroma{}", w.Body.String())
}

func TestPostRender(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/playground/render",
		`{"html":"<xtplay-embed data-id=\"w1\"></xtplay-embed>","order":"reverse","seed":7,"values":{"w1":{"id":"2"}}}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "s1", body["sessionId"])
	assert.Contains(t, body["html"], "<!--rendered-->")
	assert.Equal(t, services.OrderReverse, f.renderer.opts.Order)
	assert.Equal(t, uint64(7), f.renderer.opts.Seed)
	assert.Equal(t, "2", f.renderer.opts.Values["w1"]["id"])

	w = f.do(http.MethodPost, "/api/v1/playground/render", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.renderer.err = fmt.Errorf("%w: missing data-id", services.ErrInvalidPage)
	w = f.do(http.MethodPost, "/api/v1/playground/render", `{"html":"<p></p>"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	f.renderer.err = context.DeadlineExceeded
	w = f.do(http.MethodPost, "/api/v1/playground/render", `{"html":"<p></p>"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestPostShare(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/playground/share", `{"html":"<p></p>","widgetId":"w1"}`)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://play.xtdb.com?type=sql&widget=w1", w.Header().Get("Location"))

	w = f.do(http.MethodPost, "/api/v1/playground/share?format=json", `{"html":"<p></p>","widgetId":"w1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://play.xtdb.com?type=sql&widget=w1", decode(t, w)["url"])

	w = f.do(http.MethodPost, "/api/v1/playground/share", `{"html":"<p></p>"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEventsStreamsSessionEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	w := f.do(http.MethodGet, "/api/v1/playground/events", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/playground/events?sessionId=s1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				return strings.TrimSpace(data)
			}
		}
	}

	assert.Contains(t, readData(), `"type":"connected"`)

	require.Eventually(t, func() bool {
		return f.broadcaster.SessionConnectionCount("s1") == 1
	}, time.Second, 5*time.Millisecond)

	// The limit is one connection.
	w = f.do(http.MethodGet, "/api/v1/playground/events?sessionId=s2", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	f.broadcaster.Publish(messaging.PlaygroundEvent{SessionID: "s1", WidgetID: "w1", Type: "fetchStart"})
	for {
		data := readData()
		if strings.Contains(data, "heartbeat") {
			continue
		}
		assert.Contains(t, data, `"widgetId":"w1"`)
		assert.Contains(t, data, `"type":"fetchStart"`)
		break
	}

	cancel()
	require.Eventually(t, func() bool {
		return f.broadcaster.SessionConnectionCount("s1") == 0
	}, time.Second, 5*time.Millisecond)
}

func TestPostLogin(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/auth/login", `{"password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", decode(t, w)["token"])

	w = f.do(http.MethodPost, "/api/v1/auth/login", `{"password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/v1/auth/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostLoginDisabled(t *testing.T) {
	logger := logging.NewDiscardLogger()
	h := NewAuthHandlers(fakeAuth{}, &fakeDocs{}, &fakeCache{}, logger, performance.NewTracker(nil))
	r := gin.New()
	r.POST("/login", h.PostLogin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password":"x"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/admin/rebuild", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(http.MethodPost, "/api/v1/admin/rebuild", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, f.docs.builds)

	w = f.do(http.MethodPost, "/api/v1/admin/rebuild", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.docs.builds)

	f.docs.err = services.ErrBuildInProgress
	w = f.do(http.MethodPost, "/api/v1/admin/rebuild", "", "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodGet, "/api/v1/admin/cache", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["pages"])

	w = f.do(http.MethodDelete, "/api/v1/admin/cache", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.cache.cleared)

	w = f.do(http.MethodGet, "/api/v1/admin/metrics", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, w.Code)
	ops := decode(t, w)["operations"].(map[string]any)
	assert.Contains(t, ops, "docs:rebuild")
}
