// Package content defines the documentation content entities.
package content

import "time"

// Heading is one section of a rendered document. Children are the
// subsections nested under it.
type Heading struct {
	Title    string    `json:"title"`
	ID       string    `json:"id"`
	Children []Heading `json:"children"`
}

// EntryInfo is what a content file yields before rendering: its frontmatter
// data (always including "path"), the markup body, the frontmatter slug and
// the raw frontmatter text.
type EntryInfo struct {
	Data    map[string]any `json:"data"`
	Body    string         `json:"body"`
	Slug    string         `json:"slug"`
	RawData string         `json:"rawData"`
}

// Title returns the frontmatter title, if any.
func (i EntryInfo) Title() string {
	if title, ok := i.Data["title"].(string); ok {
		return title
	}
	return ""
}

// Entry is a built documentation page.
type Entry struct {
	ID        string         `json:"id"`
	Slug      string         `json:"slug"`
	Path      string         `json:"path"`
	Title     string         `json:"title"`
	Data      map[string]any `json:"data"`
	RawData   string         `json:"rawData,omitempty"`
	Body      string         `json:"-"`
	HTML      string         `json:"html,omitempty"`
	Headings  []Heading      `json:"headings"`
	Checksum  string         `json:"checksum"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Summary is the listing view of an entry.
type Summary struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updatedAt"`
}
