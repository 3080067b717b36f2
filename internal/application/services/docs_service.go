package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
	"github.com/xtdb/xtdocs/internal/domain/repositories"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching"
	"github.com/xtdb/xtdocs/internal/infrastructure/markup"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/internal/infrastructure/security"
	"github.com/xtdb/xtdocs/internal/presentation/templates"
)

const (
	buildLockKey   = "docs-build"
	stylesheetPath = "styles/chroma.css"
)

var (
	ErrBuildInProgress = errors.New("a documentation build is already running")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrInvalidSlug     = errors.New("invalid slug")
)

// markupExtensions are the content file types the pipeline renders.
var markupExtensions = []string{".md", ".markdown", ".adoc"}

// DocsConfig holds the documentation pipeline settings.
type DocsConfig struct {
	ContentDir           string
	OutDir               string
	Concurrency          int
	PrerenderPlaygrounds bool
	ContactEmail         string
}

// BuildReport summarises one build.
type BuildReport struct {
	Slugs    []string      `json:"slugs"`
	Changed  []string      `json:"changed"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration"`
}

// DocsService builds the documentation site and serves built entries.
type DocsService struct {
	converter  *markup.Converter
	repo       repositories.EntryRepository
	playground *PlaygroundService
	lock       *caching.WarmingLock
	config     DocsConfig
	logger     *logging.ChanneledLogger
}

// NewDocsService creates a new docs service. playground may be nil when
// playgrounds are not pre-rendered.
func NewDocsService(
	converter *markup.Converter,
	repo repositories.EntryRepository,
	playground *PlaygroundService,
	lock *caching.WarmingLock,
	config DocsConfig,
	logger *logging.ChanneledLogger,
) *DocsService {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &DocsService{
		converter:  converter,
		repo:       repo,
		playground: playground,
		lock:       lock,
		config:     config,
		logger:     logger,
	}
}

// Build renders every content file, writes the static site and updates the
// content index. Entries whose files disappeared are removed from the index.
func (s *DocsService) Build(ctx context.Context) (*BuildReport, error) {
	if !s.lock.TryLock(buildLockKey) {
		return nil, ErrBuildInProgress
	}
	defer s.lock.Unlock(buildLockKey)

	start := time.Now()
	s.logger.Content().Info("Starting documentation build", "contentDir", s.config.ContentDir, "outDir", s.config.OutDir)

	paths, err := s.contentFiles()
	if err != nil {
		return nil, err
	}

	entries := make([]*content.Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, rel := range paths {
		g.Go(func() error {
			entry, err := s.buildEntry(gctx, rel)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if other, dup := seen[entry.Slug]; dup {
			return nil, fmt.Errorf("duplicate slug %q in %s and %s", entry.Slug, other, entry.Path)
		}
		seen[entry.Slug] = entry.Path
	}

	report := &BuildReport{Slugs: []string{}, Changed: []string{}}
	for _, entry := range entries {
		previous, err := s.repo.FindBySlug(ctx, entry.Slug)
		if err != nil {
			return nil, err
		}
		if previous != nil {
			entry.ID = previous.ID
		}
		if previous == nil || previous.Checksum != entry.Checksum {
			report.Changed = append(report.Changed, entry.Slug)
		}
		if err := s.repo.Store(ctx, entry); err != nil {
			return nil, err
		}
		report.Slugs = append(report.Slugs, entry.Slug)
	}

	removed, err := s.repo.DeleteExcept(ctx, report.Slugs)
	if err != nil {
		return nil, err
	}
	report.Removed = removed

	if err := s.writeSite(ctx, entries); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	s.logger.Content().Info("Documentation build complete",
		"entries", len(report.Slugs), "changed", len(report.Changed), "removed", removed, "duration", report.Duration)
	return report, nil
}

// Get returns a built entry.
func (s *DocsService) Get(ctx context.Context, slug string) (*content.Entry, error) {
	entry, err := s.repo.FindBySlug(ctx, strings.Trim(slug, "/"))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, slug)
	}
	return entry, nil
}

// List returns every built entry.
func (s *DocsService) List(ctx context.Context) ([]*content.Summary, error) {
	return s.repo.FindAll(ctx)
}

// WritePage renders entry inside the site layout.
func (s *DocsService) WritePage(ctx context.Context, w io.Writer, entry *content.Entry, liveReload bool) error {
	summaries, err := s.List(ctx)
	if err != nil {
		return err
	}
	return templates.RenderLayout(w, s.layoutData(entry, summaries, liveReload))
}

// WriteStylesheet writes the code highlighting stylesheet.
func (s *DocsService) WriteStylesheet(w io.Writer) error {
	return s.converter.Highlighter().WriteCSS(w)
}

// IsContentFile reports whether path is a file the pipeline renders.
func IsContentFile(path string) bool {
	return slices.Contains(markupExtensions, strings.ToLower(filepath.Ext(path)))
}

func (s *DocsService) contentFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.config.ContentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.config.ContentDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsContentFile(path) {
			return nil
		}
		rel, err := filepath.Rel(s.config.ContentDir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan content directory: %w", err)
	}
	slices.Sort(paths)
	return paths, nil
}

func (s *DocsService) buildEntry(ctx context.Context, rel string) (*content.Entry, error) {
	full := filepath.Join(s.config.ContentDir, filepath.FromSlash(rel))
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	stat, err := os.Stat(full)
	if err != nil {
		return nil, err
	}

	info, err := markup.ParseEntryInfo(rel, string(raw))
	if err != nil {
		return nil, err
	}
	slug := strings.Trim(info.Slug, "/")
	if slug == "" {
		slug = markup.SlugFromPath(rel)
	}
	if err := checkSlug(slug); err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}

	format := markup.FormatForPath(rel)
	module, err := s.converter.Convert(info.Body, markup.Attributes{
		ShowTitle: showTitle(info.Data, format),
		Title:     info.Title(),
		Format:    format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", rel, err)
	}

	html := module.HTML
	if s.config.PrerenderPlaygrounds && s.playground != nil && strings.Contains(html, "xtplay-embed") {
		rendered, err := s.playground.RenderPage(ctx, html, PageOptions{})
		if err != nil {
			s.logger.Content().Warn("Playground pre-render failed, keeping static markup", "path", rel, "error", err.Error())
		} else {
			html = rendered.HTML
		}
	}

	title := info.Title()
	if title == "" {
		title = leadingTitle(info.Body, format)
	}
	if title == "" && len(module.Headings) > 0 {
		title = module.Headings[0].Title
	}
	if title == "" {
		title = slug
	}

	sum := sha256.Sum256(raw)
	return &content.Entry{
		ID:        security.GenerateULID(),
		Slug:      slug,
		Path:      rel,
		Title:     title,
		Data:      info.Data,
		RawData:   info.RawData,
		Body:      info.Body,
		HTML:      html,
		Headings:  module.Headings,
		Checksum:  hex.EncodeToString(sum[:]),
		UpdatedAt: stat.ModTime().UTC(),
	}, nil
}

// checkSlug accepts clean relative slash paths only. Slugs name output
// directories, so none may leave the output root.
func checkSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." || strings.HasPrefix(slug, "../") ||
		strings.ContainsAny(slug, `\:`) || path.Clean(slug) != slug {
		return fmt.Errorf("%w %q", ErrInvalidSlug, slug)
	}
	return nil
}

// showTitle reads the showtitle frontmatter flag. Titled pages and AsciiDoc
// documents show it by default.
func showTitle(data map[string]any, format markup.Format) bool {
	if v, ok := data["showtitle"].(bool); ok {
		return v
	}
	if format == markup.FormatAsciiDoc {
		return true
	}
	_, titled := data["title"].(string)
	return titled
}

// leadingTitle returns the document title line: "= Title" for AsciiDoc,
// otherwise the first level-one ATX heading.
func leadingTitle(body string, format markup.Format) string {
	if format == markup.FormatAsciiDoc {
		title, _ := markup.SplitAsciiDocTitle(body)
		return title
	}
	for line := range strings.Lines(body) {
		if rest, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
		}
	}
	return ""
}

func (s *DocsService) writeSite(ctx context.Context, entries []*content.Entry) error {
	if s.config.OutDir == "" {
		return nil
	}
	summaries := make([]*content.Summary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, &content.Summary{Slug: e.Slug, Title: e.Title, Path: e.Path, UpdatedAt: e.UpdatedAt})
	}
	slices.SortFunc(summaries, func(a, b *content.Summary) int { return strings.Compare(a.Path, b.Path) })

	var css bytes.Buffer
	if err := s.WriteStylesheet(&css); err != nil {
		return fmt.Errorf("failed to generate stylesheet: %w", err)
	}
	if err := writeFile(filepath.Join(s.config.OutDir, stylesheetPath), css.Bytes()); err != nil {
		return err
	}

	index, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(s.config.OutDir, "index.json"), index); err != nil {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := filepath.Join(s.config.OutDir, filepath.FromSlash(entry.Slug))
		if rel, err := filepath.Rel(s.config.OutDir, dir); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w %q: outside the output directory", ErrInvalidSlug, entry.Slug)
		}

		var page bytes.Buffer
		if err := templates.RenderLayout(&page, s.layoutData(entry, summaries, false)); err != nil {
			return fmt.Errorf("failed to render page %s: %w", entry.Slug, err)
		}
		if err := writeFile(filepath.Join(dir, "index.html"), page.Bytes()); err != nil {
			return err
		}

		tree := entry.Headings
		if tree == nil {
			tree = []content.Heading{}
		}
		headings, err := json.Marshal(tree)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, "headings.json"), headings); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocsService) layoutData(entry *content.Entry, summaries []*content.Summary, liveReload bool) templates.LayoutData {
	return templates.LayoutData{
		Title:          entry.Title,
		Slug:           entry.Slug,
		Body:           template.HTML(entry.HTML),
		Headings:       entry.Headings,
		Entries:        summaries,
		StylesheetHref: "/" + stylesheetPath,
		LiveReload:     liveReload,
		ContactEmail:   s.config.ContactEmail,
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
