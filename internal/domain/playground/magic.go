package playground

import "github.com/xtdb/xtdocs/internal/infrastructure/dom"

// MagicElementsAbove returns the elements sharing the magic context token
// that precede the container with the given id, in document order. Ancestors
// of the container are not "above" it and are skipped. The result is empty
// when no such container exists.
func MagicElementsAbove(doc *dom.Document, token, id string) []*dom.Element {
	if token == "" || id == "" {
		return nil
	}
	var candidates []*dom.Element
	for _, el := range doc.Elements() {
		if el.Tag() == TagEmbed && el.Dataset("id") == id {
			above := candidates[:0:0]
			for _, c := range candidates {
				if !c.Contains(el) {
					above = append(above, c)
				}
			}
			return above
		}
		if v, ok := el.Attr(dom.DataAttr("magicContext")); ok && v == token {
			candidates = append(candidates, el)
		}
	}
	return nil
}
