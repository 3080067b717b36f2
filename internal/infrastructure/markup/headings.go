package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
)

var headingLevels = map[atom.Atom]int{
	atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

type headingNode struct {
	level    int
	heading  content.Heading
	children []*headingNode
}

// ExtractHeadings builds the section tree of a rendered document. The <h1>
// is the document title and is not a section; h2 to h6 nest by level.
func ExtractHeadings(root *html.Node) []content.Heading {
	top := &headingNode{level: 1}
	stack := []*headingNode{top}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level, ok := headingLevels[n.DataAtom]; ok {
				for len(stack) > 1 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				node := &headingNode{
					level:   level,
					heading: content.Heading{Title: strings.TrimSpace(textOf(n)), ID: attr(n, "id")},
				}
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
				stack = append(stack, node)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return flatten(top.children)
}

func flatten(nodes []*headingNode) []content.Heading {
	out := make([]content.Heading, 0, len(nodes))
	for _, n := range nodes {
		h := n.heading
		h.Children = flatten(n.children)
		out = append(out, h)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
