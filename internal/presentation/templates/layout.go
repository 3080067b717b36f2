package templates

import (
	"html/template"
	"io"
	"net/url"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
)

// LayoutData is everything the documentation page layout shows.
type LayoutData struct {
	Title          string
	Slug           string
	Body           template.HTML
	Headings       []content.Heading
	Entries        []*content.Summary
	StylesheetHref string
	LiveReload     bool
	ContactEmail   string
}

var layoutTemplate = template.Must(template.New("layout").Funcs(template.FuncMap{
	"mailto": MailToURL,
	"docHref": func(slug string) string {
		return "/docs/" + slug
	},
}).Parse(
	`{{define "toc"}}<ul>{{range .}}<li><a href="#{{.ID}}">{{.Title}}</a>{{if .Children}}{{template "toc" .Children}}{{end}}</li>{{end}}</ul>{{end}}` +

		`{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{if .StylesheetHref}}<link rel="stylesheet" href="{{.StylesheetHref}}">{{end}}
</head>
<body data-slug="{{.Slug}}">
<nav class="docs-nav">{{if .Entries}}<ul>{{range .Entries}}<li{{if eq .Slug $.Slug}} class="active"{{end}}><a href="{{docHref .Slug}}">{{.Title}}</a></li>{{end}}</ul>{{end}}</nav>
<main class="docs-content">{{.Body}}</main>
<aside class="docs-toc">{{if .Headings}}{{template "toc" .Headings}}{{end}}</aside>
{{if .ContactEmail}}<footer><a href="{{mailto .ContactEmail (printf "Feedback on %s" .Title) ""}}">Send feedback</a></footer>{{end}}
{{if .LiveReload}}<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws/reload");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    var slug = document.body.dataset.slug;
    if (!msg.slugs || msg.slugs.length === 0 || msg.slugs.indexOf(slug) !== -1) { location.reload(); }
  };
})();
</script>{{end}}
</body>
</html>
{{end}}`,
))

// RenderLayout writes a complete documentation page.
func RenderLayout(w io.Writer, data LayoutData) error {
	return layoutTemplate.ExecuteTemplate(w, "page", data)
}

// MailToURL builds a mailto link. subject and body are optional.
func MailToURL(email, subject, body string) string {
	link := "mailto:" + email
	if subject != "" {
		link += "?subject=" + url.PathEscape(subject)
	}
	if body != "" {
		sep := "?"
		if subject != "" {
			sep = "&"
		}
		link += sep + "body=" + url.PathEscape(body)
	}
	return link
}
