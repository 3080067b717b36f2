// Package repositories defines the repository interfaces for content entities.
// These repositories abstract the data persistence details, ensuring the core
// application is clean and decoupled from the database.
package repositories

import (
	"context"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
)

type EntryRepository interface {
	FindBySlug(ctx context.Context, slug string) (*content.Entry, error)
	FindAll(ctx context.Context) ([]*content.Summary, error)
	Store(ctx context.Context, entry *content.Entry) error
	// DeleteExcept removes every entry whose slug is not in keep.
	DeleteExcept(ctx context.Context, keep []string) (int, error)
}
