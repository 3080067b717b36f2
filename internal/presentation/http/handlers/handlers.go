// Package handlers contains the gin handlers of the HTTP surface.
package handlers

import (
	"context"
	"io"

	"github.com/xtdb/xtdocs/internal/application/services"
	"github.com/xtdb/xtdocs/internal/domain/entities/content"
)

// DocsReader serves built documentation entries.
type DocsReader interface {
	Get(ctx context.Context, slug string) (*content.Entry, error)
	List(ctx context.Context) ([]*content.Summary, error)
	WritePage(ctx context.Context, w io.Writer, entry *content.Entry, liveReload bool) error
	WriteStylesheet(w io.Writer) error
}

// DocsBuilder rebuilds the documentation site.
type DocsBuilder interface {
	Build(ctx context.Context) (*services.BuildReport, error)
}

// PageRenderer runs playground page sessions.
type PageRenderer interface {
	RenderPage(ctx context.Context, markup string, opts services.PageOptions) (*services.RenderResult, error)
	ShareURL(ctx context.Context, markup, widgetID string) (string, error)
}

// Authenticator issues and checks admin tokens.
type Authenticator interface {
	Enabled() bool
	AuthenticateAdmin(password string) *services.AuthResult
	ValidateAdminToken(token string) bool
}

// CacheInspector reports on the page cache.
type CacheInspector interface {
	Summary() map[string]any
	InvalidateAll()
}
