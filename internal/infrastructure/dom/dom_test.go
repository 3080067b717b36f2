package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<xtplay-embed data-id="w1" data-magic-context="ctx">
<xtplay-query data-query="SELECT 1"></xtplay-query>
<div data-id="content"><p>old</p></div>
</xtplay-embed>`

func TestParseFragmentRoundTrip(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	assert.Equal(t, page, doc.String())

	full, err := ParseString(`<html><head></head><body><p>x</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, `<html><head></head><body><p>x</p></body></html>`, full.String())
}

func TestDatasetAndLookup(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	embeds := doc.QuerySelectorAll("XTPLAY-EMBED")
	require.Len(t, embeds, 1)
	embed := embeds[0]
	assert.Equal(t, "w1", embed.Dataset("id"))
	assert.Equal(t, "ctx", embed.Dataset("magicContext"))
	assert.True(t, embed.HasDataset("magicContext"))
	assert.False(t, embed.HasDataset("autoLoad"))
	assert.Equal(t, "data-auto-load", DataAttr("autoLoad"))

	query := embed.QuerySelectorAll("xtplay-query")[0]
	assert.Same(t, embed, query.Closest("xtplay-embed"))
	assert.Same(t, query, doc.QuerySelectorAll("xtplay-query")[0])
	assert.True(t, embed.Contains(query))
	assert.False(t, query.Contains(embed))
	assert.Nil(t, query.Closest("section"))

	content := embed.QueryData("id", "content")
	require.NotNil(t, content)
	assert.Equal(t, "div", content.Tag())
	assert.Equal(t, "old", content.TextContent())
}

func TestMutation(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	content := doc.QuerySelectorAll("div")[0]

	require.NoError(t, content.SetInnerHTML(`<table><tr><td>1</td></tr></table>`))
	assert.Equal(t, `<table><tbody><tr><td>1</td></tr></tbody></table>`, content.InnerHTML())

	content.SetTextContent("<b>escaped</b>")
	assert.Equal(t, "&lt;b&gt;escaped&lt;/b&gt;", content.InnerHTML())

	content.SetAttr("style", "color: red")
	assert.Equal(t, "", content.Display())
	content.SetDisplay("none")
	assert.Equal(t, "none", content.Display())
	content.SetDisplay("block")
	v, _ := content.Attr("style")
	assert.Equal(t, "color: red; display: block", v)

	p := doc.CreateElement("P")
	assert.Nil(t, p.Parent())
	content.AppendChild(p)
	assert.Same(t, content, p.Parent())

	p.SetComponent("shell")
	assert.Equal(t, "shell", doc.QuerySelectorAll("p")[0].Component())
}
