package markup

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
)

const fence = "---"

// ParseEntryInfo splits a content file into its YAML frontmatter and body.
// The returned data always carries the file path under "path"; frontmatter
// keys are merged over it.
func ParseEntryInfo(path, contents string) (content.EntryInfo, error) {
	info := content.EntryInfo{
		Data: map[string]any{"path": path},
		Body: contents,
	}

	raw, body, ok := splitFrontmatter(contents)
	if !ok {
		return info, nil
	}

	var data map[string]any
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		return info, fmt.Errorf("invalid frontmatter in %s: %w", path, err)
	}
	for k, v := range data {
		info.Data[k] = v
	}
	if slug, ok := data["slug"].(string); ok {
		info.Slug = slug
	}
	info.Body = body
	info.RawData = raw
	return info, nil
}

// splitFrontmatter returns the text between a leading "---" line and the next
// "---" line, and everything after it.
func splitFrontmatter(contents string) (raw, body string, ok bool) {
	contents = strings.TrimPrefix(contents, "\ufeff")
	first, rest, found := strings.Cut(contents, "\n")
	if !found || strings.TrimRight(first, " \t\r") != fence {
		return "", contents, false
	}

	var lines []string
	for {
		line, next, more := strings.Cut(rest, "\n")
		if strings.TrimRight(line, " \t\r") == fence {
			return strings.Join(lines, "\n"), next, true
		}
		if !more {
			// unterminated frontmatter is treated as body
			return "", contents, false
		}
		lines = append(lines, strings.TrimSuffix(line, "\r"))
		rest = next
	}
}

// SlugFromPath derives a slug from a content path relative to the content
// root: the extension is dropped, a trailing "index" names its directory and
// separators are normalised to "/".
func SlugFromPath(rel string) string {
	slug := strings.ReplaceAll(rel, "\\", "/")
	slug = strings.TrimSuffix(slug, path.Ext(slug))
	if slug == "index" {
		return slug
	}
	slug = strings.TrimSuffix(slug, "/index")
	return strings.ToLower(strings.Trim(slug, "/"))
}
