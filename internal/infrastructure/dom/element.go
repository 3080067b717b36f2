package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Element wraps an element node of a Document.
type Element struct {
	doc       *Document
	node      *html.Node
	component any
}

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// Attr returns the value of an attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// Dataset reads a data attribute by its camelCase key, as in
// element.dataset.magicContext for data-magic-context.
func (e *Element) Dataset(key string) string {
	v, _ := e.Attr(DataAttr(key))
	return v
}

// HasDataset reports whether the data attribute is present.
func (e *Element) HasDataset(key string) bool {
	_, ok := e.Attr(DataAttr(key))
	return ok
}

// DataAttr converts a camelCase dataset key to its attribute name.
func DataAttr(key string) string {
	var sb strings.Builder
	sb.WriteString("data-")
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Parent returns the parent element, or nil at the top of the tree.
func (e *Element) Parent() *Element {
	return e.doc.wrap(e.node.Parent)
}

// Closest returns the nearest ancestor-or-self with the given tag.
func (e *Element) Closest(tag string) *Element {
	tag = strings.ToLower(tag)
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == tag {
			return e.doc.wrap(n)
		}
	}
	return nil
}

// Descendants returns every descendant element in document order.
func (e *Element) Descendants() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				out = append(out, e.doc.wrap(n))
			}
			return true
		})
	}
	return out
}

// QuerySelectorAll returns descendants with the given tag in document order.
func (e *Element) QuerySelectorAll(tag string) []*Element {
	tag = strings.ToLower(tag)
	var out []*Element
	for _, d := range e.Descendants() {
		if d.node.Data == tag {
			out = append(out, d)
		}
	}
	return out
}

// QueryData returns the first descendant whose data attribute matches,
// the equivalent of querySelector('[data-key="value"]').
func (e *Element) QueryData(key, value string) *Element {
	for _, d := range e.Descendants() {
		if v, ok := d.Attr(DataAttr(key)); ok && v == value {
			return d
		}
	}
	return nil
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	for n := other.node; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	if child.node.Parent != nil {
		child.node.Parent.RemoveChild(child.node)
	}
	e.node.AppendChild(child.node)
}

// TextContent returns the concatenated text of all descendant text nodes.
func (e *Element) TextContent() string {
	var sb strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		return true
	})
	return sb.String()
}

// SetTextContent replaces all children with a single text node.
func (e *Element) SetTextContent(text string) {
	e.removeChildren()
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// InnerHTML serialises the element's children.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// SetInnerHTML parses markup in the element's context and replaces its children.
func (e *Element) SetInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("failed to parse inner html for <%s>: %w", e.node.Data, err)
	}
	e.removeChildren()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

func (e *Element) removeChildren() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
}

// Display returns the inline style display value, or "" if unset.
func (e *Element) Display() string {
	style, _ := e.Attr("style")
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(prop) == "display" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// SetDisplay sets the inline style display value, keeping other declarations.
func (e *Element) SetDisplay(value string) {
	style, _ := e.Attr("style")
	var decls []string
	for _, decl := range strings.Split(style, ";") {
		prop, _, _ := strings.Cut(decl, ":")
		if strings.TrimSpace(decl) == "" || strings.TrimSpace(prop) == "display" {
			continue
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	decls = append(decls, "display: "+value)
	e.SetAttr("style", strings.Join(decls, "; "))
}

// Component returns the component bound to this element, if upgraded.
func (e *Element) Component() any { return e.component }

// SetComponent binds a component to this element.
func (e *Element) SetComponent(c any) { e.component = c }
