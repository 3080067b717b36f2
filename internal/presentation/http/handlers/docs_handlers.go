package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xtdb/xtdocs/internal/application/services"
	"github.com/xtdb/xtdocs/internal/domain/entities/content"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

const headingsSuffix = "/headings"

// DocsHandlers serves documentation pages and their metadata.
type DocsHandlers struct {
	docs       DocsReader
	liveReload bool
	logger     *logging.ChanneledLogger
}

// NewDocsHandlers creates docs handlers. liveReload injects the reload
// script into served pages.
func NewDocsHandlers(docs DocsReader, liveReload bool, logger *logging.ChanneledLogger) *DocsHandlers {
	return &DocsHandlers{docs: docs, liveReload: liveReload, logger: logger}
}

// GetPage handles GET /docs/*slug
func (h *DocsHandlers) GetPage(c *gin.Context) {
	slug := strings.Trim(c.Param("slug"), "/")
	if slug == "" {
		slug = "index"
	}

	entry, err := h.docs.Get(c.Request.Context(), slug)
	if err != nil {
		h.entryError(c, slug, err)
		return
	}

	var buf bytes.Buffer
	if err := h.docs.WritePage(c.Request.Context(), &buf, entry, h.liveReload); err != nil {
		h.logger.Content().Error("Page render failed", "slug", slug, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render page"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// GetEntries handles GET /api/v1/docs
func (h *DocsHandlers) GetEntries(c *gin.Context) {
	entries, err := h.docs.List(c.Request.Context())
	if err != nil {
		h.logger.Content().Error("Entry listing failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetEntry handles GET /api/v1/docs/*slug. Slugs may contain slashes, so a
// trailing "/headings" selects the heading tree of the entry instead.
func (h *DocsHandlers) GetEntry(c *gin.Context) {
	slug := strings.Trim(c.Param("slug"), "/")
	base, headingsOnly := strings.CutSuffix(slug, headingsSuffix)
	if headingsOnly {
		slug = base
	}

	entry, err := h.docs.Get(c.Request.Context(), slug)
	if err != nil {
		h.entryError(c, slug, err)
		return
	}
	if headingsOnly {
		headings := entry.Headings
		if headings == nil {
			headings = []content.Heading{}
		}
		c.JSON(http.StatusOK, gin.H{"slug": entry.Slug, "headings": headings})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetStylesheet handles GET /styles/chroma.css
func (h *DocsHandlers) GetStylesheet(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.docs.WriteStylesheet(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "text/css; charset=utf-8", buf.Bytes())
}

func (h *DocsHandlers) entryError(c *gin.Context, slug string, err error) {
	if errors.Is(err, services.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found", "slug": slug})
		return
	}
	h.logger.Content().Error("Entry lookup failed", "slug", slug, "error", err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
