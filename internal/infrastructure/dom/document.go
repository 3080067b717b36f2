// Package dom provides a small DOM-like page model over golang.org/x/net/html.
// It exposes the subset of browser element operations the playground needs:
// ancestor and descendant lookup, data attributes, display toggling, inner
// HTML replacement and a slot for the component bound to an element.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page. Element wrappers are interned per node so that
// identity comparisons and component slots are stable.
type Document struct {
	root     *html.Node
	elements map[*html.Node]*Element
	fragment bool
}

// Parse reads a page. Input without an <html> element is treated as a body
// fragment and is serialised back without the synthesized document shell.
func Parse(r io.Reader) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return ParseString(string(src))
}

// ParseString parses page markup from a string.
func ParseString(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Document{
		root:     root,
		elements: make(map[*html.Node]*Element),
		fragment: !strings.Contains(strings.ToLower(src), "<html"),
	}, nil
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.elements[n] = el
	return el
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	var body *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	return d.wrap(body)
}

// Elements returns every element in document order.
func (d *Document) Elements() []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			out = append(out, d.wrap(n))
		}
		return true
	})
	return out
}

// QuerySelectorAll returns every element with the given tag, in document order.
func (d *Document) QuerySelectorAll(tag string) []*Element {
	tag = strings.ToLower(tag)
	var out []*Element
	for _, el := range d.Elements() {
		if el.node.Data == tag {
			out = append(out, el)
		}
	}
	return out
}

// CreateElement returns a detached element owned by this document.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	})
}

// Render writes the page. Fragments are written as the body's children.
func (d *Document) Render(w io.Writer) error {
	if d.fragment {
		if body := d.Body(); body != nil {
			for c := body.node.FirstChild; c != nil; c = c.NextSibling {
				if err := html.Render(w, c); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return html.Render(w, d.root)
}

// String renders the page, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// walk visits nodes depth-first in document order until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
