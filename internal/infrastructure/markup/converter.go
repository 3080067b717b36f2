// Package markup turns documentation sources into rendered HTML.
//
// The pipeline is: frontmatter split (yaml.v3), Markdown to HTML (goldmark
// with GFM and automatic heading ids) or AsciiDoc to HTML (libasciidoc),
// sanitising (bluemonday, admitting the
// playground elements), class based syntax highlighting of fenced code
// (chroma) and heading tree extraction.
package markup

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
)

// Format is the markup language of a document body.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatAsciiDoc Format = "asciidoc"
)

// FormatForPath picks the format from a content file's extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".adoc") {
		return FormatAsciiDoc
	}
	return FormatMarkdown
}

// Attributes are document level rendering switches.
type Attributes struct {
	// ShowTitle renders Title as the document's <h1>. AsciiDoc bodies fall
	// back to their "= Title" line when Title is empty.
	ShowTitle bool
	Title     string
	Format    Format
}

// RenderModule is the rendered form of a document body.
type RenderModule struct {
	HTML     string            `json:"html"`
	Headings []content.Heading `json:"headings"`
}

// Converter renders markup bodies. It is safe for concurrent use.
type Converter struct {
	md          goldmark.Markdown
	policy      *bluemonday.Policy
	highlighter *Highlighter
}

// NewConverter builds the rendering pipeline.
func NewConverter(highlighter *Highlighter) *Converter {
	if highlighter == nil {
		highlighter = NewHighlighter(DefaultStyle)
	}
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// playground markup is written inline as raw HTML
			goldmark.WithRendererOptions(ghtml.WithUnsafe()),
		),
		policy:      NewPolicy(),
		highlighter: highlighter,
	}
}

// Highlighter returns the converter's highlighter.
func (c *Converter) Highlighter() *Highlighter { return c.highlighter }

// Convert renders body to sanitised, highlighted HTML and extracts its
// heading tree.
func (c *Converter) Convert(body string, attrs Attributes) (*RenderModule, error) {
	title := attrs.Title
	if attrs.Format == FormatAsciiDoc {
		var docTitle string
		docTitle, body = SplitAsciiDocTitle(body)
		if title == "" {
			title = docTitle
		}
	}

	var buf bytes.Buffer
	if attrs.ShowTitle && title != "" {
		buf.WriteString("<h1>" + template.HTMLEscapeString(title) + "</h1>\n")
	}
	switch attrs.Format {
	case FormatAsciiDoc:
		config := configuration.NewConfiguration(configuration.WithHeaderFooter(false))
		if _, err := libasciidoc.Convert(strings.NewReader(body), &buf, config); err != nil {
			return nil, fmt.Errorf("failed to convert asciidoc: %w", err)
		}
	default:
		if err := c.md.Convert([]byte(body), &buf); err != nil {
			return nil, fmt.Errorf("failed to convert markup: %w", err)
		}
	}

	clean := c.policy.SanitizeReader(&buf)

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(clean, root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered html: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	if err := c.highlighter.highlightNodes(root); err != nil {
		return nil, err
	}

	var out strings.Builder
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if err := html.Render(&out, n); err != nil {
			return nil, fmt.Errorf("failed to render html: %w", err)
		}
	}

	return &RenderModule{
		HTML:     out.String(),
		Headings: ExtractHeadings(root),
	}, nil
}

// SplitAsciiDocTitle removes a leading "= Title" document header line and
// returns its text with the remaining body. The converter renders the title
// itself so it obeys ShowTitle.
func SplitAsciiDocTitle(body string) (string, string) {
	rest := body
	for line := range strings.Lines(body) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			rest = rest[len(line):]
			continue
		}
		if t, ok := strings.CutPrefix(trimmed, "= "); ok {
			return strings.TrimSpace(t), rest[len(line):]
		}
		break
	}
	return "", body
}
