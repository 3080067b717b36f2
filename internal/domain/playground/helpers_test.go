package playground

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xtdb/xtdocs/internal/infrastructure/dom"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeViews struct{}

func (fakeViews) Error(title, message string, _ json.RawMessage) string {
	return "<h3>" + html.EscapeString(title) + "</h3><p>" + html.EscapeString(message) + "</p>"
}

func (fakeViews) Table(body json.RawMessage) (string, error) {
	return "<pre>table:" + html.EscapeString(string(body)) + "</pre>", nil
}

func (fakeViews) JSON(body json.RawMessage) (string, error) {
	return "<pre>json:" + html.EscapeString(string(body)) + "</pre>", nil
}

// fakeTemplates substitutes ${key} placeholders.
type fakeTemplates struct{}

func (fakeTemplates) Expand(template string, state map[string]string) (string, error) {
	out := template
	for k, v := range state {
		out = strings.ReplaceAll(out, "${"+k+"}", v)
	}
	if strings.Contains(out, "${") {
		return "", errors.New("undefined template variable")
	}
	return out, nil
}

type invocation struct {
	Batches []TxBatch
	Query   string
}

type fakeService struct {
	mu      sync.Mutex
	calls   []invocation
	respond func(batches []TxBatch, query string) (*Response, error)
}

func (s *fakeService) invoke(_ context.Context, batches []TxBatch, query string) (*Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, invocation{Batches: batches, Query: query})
	respond := s.respond
	s.mu.Unlock()
	if respond == nil {
		return okResponse(`[{"x":1}]`), nil
	}
	return respond(batches, query)
}

func (s *fakeService) Calls() []invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]invocation(nil), s.calls...)
}

func okResponse(body string) *Response {
	return &Response{OK: true, Status: 200, Body: []byte(body)}
}

func newTestPage(t *testing.T, src string, svc *fakeService) (*Page, *dom.Document) {
	t.Helper()
	doc, err := dom.ParseString(src)
	require.NoError(t, err)
	p := NewPage(context.Background(), "test-page", doc, Options{
		Invoke:      svc.invoke,
		Views:       fakeViews{},
		Templates:   fakeTemplates{},
		XtPlayURL:   "https://play.xtdb.com",
		QuietWindow: 10 * time.Millisecond,
		SettleDelay: 20 * time.Millisecond,
	})
	t.Cleanup(p.Close)
	return p, doc
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func widget(t *testing.T, doc *dom.Document, id string) *dom.Element {
	t.Helper()
	for _, el := range doc.QuerySelectorAll(TagEmbed) {
		if el.Dataset("id") == id {
			return el
		}
	}
	t.Fatalf("widget %q not found", id)
	return nil
}

func errorElement(t *testing.T, doc *dom.Document, id string) *dom.Element {
	t.Helper()
	el := widget(t, doc, id).QueryData("id", ErrorElementID)
	require.NotNil(t, el)
	return el
}
