package markup

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultStyle is the chroma style used for the generated stylesheet.
const DefaultStyle = "github-dark"

// Highlighter colours fenced code blocks with CSS classes.
type Highlighter struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

// NewHighlighter creates a class based highlighter.
func NewHighlighter(style string) *Highlighter {
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	return &Highlighter{
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true)),
		style:     s,
	}
}

// WriteCSS writes the stylesheet matching the generated classes.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	return h.formatter.WriteCSS(w, h.style)
}

// Highlight returns code as highlighted markup for the given language.
// Unknown languages fall back to plain text.
func (h *Highlighter) Highlight(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("failed to tokenise %s code: %w", language, err)
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", fmt.Errorf("failed to format %s code: %w", language, err)
	}
	return buf.String(), nil
}

// highlightNodes replaces the contents of every <pre><code class="language-x">
// under root with highlighted markup.
func (h *Highlighter) highlightNodes(root *html.Node) error {
	var blocks []*html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Code &&
			n.Parent != nil && n.Parent.DataAtom == atom.Pre {
			blocks = append(blocks, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)

	for _, code := range blocks {
		language := codeLanguage(code)
		if language == "" {
			continue
		}
		markup, err := h.Highlight(textOf(code), language)
		if err != nil {
			return err
		}
		nodes, err := html.ParseFragment(strings.NewReader(markup), code)
		if err != nil {
			return fmt.Errorf("failed to parse highlighted code: %w", err)
		}
		for c := code.FirstChild; c != nil; {
			next := c.NextSibling
			code.RemoveChild(c)
			c = next
		}
		for _, n := range nodes {
			code.AppendChild(n)
		}
		addClass(code.Parent, "chroma")
	}
	return nil
}

func codeLanguage(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(a.Val) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

func addClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = strings.TrimSpace(a.Val + " " + class)
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
