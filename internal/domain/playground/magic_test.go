package playground

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtdb/xtdocs/internal/infrastructure/dom"
)

func TestMagicElementsAbove(t *testing.T) {
	doc, err := dom.ParseString(`
<section data-magic-context="ctx" id="wrapper">
  <xtplay-embed data-id="a" data-magic-context="ctx"></xtplay-embed>
  <div data-magic-context="other" id="other"></div>
  <xtplay-embed data-id="b" data-magic-context="ctx"></xtplay-embed>
  <xtplay-embed data-id="c" data-magic-context="ctx"></xtplay-embed>
</section>
<xtplay-embed data-id="d" data-magic-context="ctx"></xtplay-embed>`)
	require.NoError(t, err)

	ids := func(els []*dom.Element) []string {
		out := []string{}
		for _, el := range els {
			if id := el.Dataset("id"); id != "" {
				out = append(out, id)
				continue
			}
			id, _ := el.Attr("id")
			out = append(out, id)
		}
		return out
	}

	assert.Equal(t, []string{}, ids(MagicElementsAbove(doc, "ctx", "a")))
	assert.Equal(t, []string{"a", "b"}, ids(MagicElementsAbove(doc, "ctx", "c")))
	// the wrapper precedes d without containing it
	assert.Equal(t, []string{"wrapper", "a", "b", "c"}, ids(MagicElementsAbove(doc, "ctx", "d")))
	assert.Empty(t, MagicElementsAbove(doc, "ctx", "missing"))
	assert.Empty(t, MagicElementsAbove(doc, "", "c"))
}
