// Package interfaces defines cache operation contracts for rendered documentation.
package interfaces

import "github.com/xtdb/xtdocs/internal/domain/entities/content"

// PageCache caches rendered entries by slug.
type PageCache interface {
	GetPage(slug string) (*content.Entry, bool)
	SetPage(entry *content.Entry, dependsOn []string)
	InvalidateByDependency(dependencyID string) int
	InvalidateByPattern(pattern string) int
	InvalidateAll()
	PurgeExpired() int
	Summary() map[string]any
}
