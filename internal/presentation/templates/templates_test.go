package templates

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
)

func TestTableKeepsColumnOrder(t *testing.T) {
	out, err := NewViews().Table(json.RawMessage(`[{"b":1,"a":"x"},{"a":"<y>","c":null,"d":{"k":[1, 2]}}]`))
	require.NoError(t, err)
	assert.Equal(t,
		`<table class="xtplay-table"><thead><tr><th>b</th><th>a</th><th>c</th><th>d</th></tr></thead>`+
			`<tbody><tr><td>1</td><td>x</td><td></td><td></td></tr>`+
			`<tr><td></td><td>&lt;y&gt;</td><td></td><td>{&#34;k&#34;:[1,2]}</td></tr></tbody></table>`,
		out)
}

func TestTableEdgeCases(t *testing.T) {
	v := NewViews()

	out, err := v.Table(json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Contains(t, out, "No results")

	out, err = v.Table(json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Contains(t, out, "<th>x</th>")

	out, err = v.Table(json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Contains(t, out, `class="language-json">42<`)

	out, err = v.Table(json.RawMessage(`[1,2]`))
	require.NoError(t, err)
	assert.Contains(t, out, "xtplay-json")
}

func TestJSONView(t *testing.T) {
	out, err := NewViews().JSON(json.RawMessage(`{"a":[1]}`))
	require.NoError(t, err)
	assert.Equal(t, "<pre class=\"xtplay-json\"><code class=\"language-json\">{\n  &#34;a&#34;: [\n    1\n  ]\n}</code></pre>", out)

	_, err = NewViews().JSON(json.RawMessage(`{`))
	require.Error(t, err)
}

func TestErrorView(t *testing.T) {
	out := NewViews().Error("Network Error", "Uh oh! A network error. Please try again.", nil)
	assert.Equal(t,
		`<div class="xtplay-error-display" role="alert"><h3 class="xtplay-error-title">Network Error</h3>`+
			`<p class="xtplay-error-message">Uh oh! A network error. Please try again.</p></div>`,
		out)

	out = NewViews().Error("xtdb/sql-error", "bad <query>", json.RawMessage(`{"line":1}`))
	assert.Contains(t, out, "bad &lt;query&gt;")
	assert.Contains(t, out, `<pre class="xtplay-error-data"><code>{`)
}

func TestMailToURL(t *testing.T) {
	assert.Equal(t, "mailto:a@b.c", MailToURL("a@b.c", "", ""))
	assert.Equal(t, "mailto:a@b.c?subject=Hi%20there", MailToURL("a@b.c", "Hi there", ""))
	assert.Equal(t, "mailto:a@b.c?body=x", MailToURL("a@b.c", "", "x"))
	assert.Equal(t, "mailto:a@b.c?subject=s&body=b", MailToURL("a@b.c", "s", "b"))
}

func TestRenderLayout(t *testing.T) {
	var sb strings.Builder
	err := RenderLayout(&sb, LayoutData{
		Title: "Intro",
		Slug:  "guide/intro",
		Body:  "<h1>Intro</h1>",
		Headings: []content.Heading{
			{Title: "Setup", ID: "setup", Children: []content.Heading{{Title: "Install", ID: "install", Children: []content.Heading{}}}},
		},
		Entries: []*content.Summary{
			{Slug: "guide/intro", Title: "Intro"},
			{Slug: "reference", Title: "Reference"},
		},
		LiveReload:   true,
		ContactEmail: "docs@xtdb.com",
	})
	require.NoError(t, err)
	out := sb.String()

	assert.Contains(t, out, "<main class=\"docs-content\"><h1>Intro</h1></main>")
	assert.Contains(t, out, `<ul><li><a href="#setup">Setup</a><ul><li><a href="#install">Install</a></li></ul></li></ul>`)
	assert.Contains(t, out, `<li class="active"><a href="/docs/guide/intro">Intro</a></li>`)
	assert.Contains(t, out, "mailto:docs@xtdb.com?subject=Feedback%20on%20Intro")
	assert.Contains(t, out, "/ws/reload")
}
