// Package stores provides concrete cache store implementations
package stores

import (
	"slices"
	"strings"
	"time"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching/interfaces"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching/types"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

// PagesStore caches rendered entries with a TTL and source-path dependencies.
type PagesStore struct {
	cache  *types.PageCache
	ttl    time.Duration
	logger *logging.ChanneledLogger
	now    func() time.Time
}

// NewPagesStore creates a new page cache store
func NewPagesStore(ttl time.Duration, logger *logging.ChanneledLogger) *PagesStore {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	logger.Cache().Info("Initializing page cache store", "ttl", ttl)
	return &PagesStore{
		cache:  types.NewPageCache(),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (ps *PagesStore) expired(chunk *types.PageChunk) bool {
	return ps.ttl > 0 && ps.now().Sub(chunk.LastUpdated) > ps.ttl
}

// =============================================================================
// Page Operations
// =============================================================================

// GetPage returns the cached entry for slug unless it has expired.
func (ps *PagesStore) GetPage(slug string) (*content.Entry, bool) {
	ps.cache.Mu.RLock()
	defer ps.cache.Mu.RUnlock()

	chunk, exists := ps.cache.Chunks[slug]
	hit := exists && !ps.expired(chunk)
	ps.logger.LogCacheOperation("get_page", slug, hit)
	if !hit {
		return nil, false
	}
	return chunk.Entry, true
}

// SetPage stores entry under its slug. dependsOn lists the source paths whose
// change must evict it.
func (ps *PagesStore) SetPage(entry *content.Entry, dependsOn []string) {
	ps.cache.Mu.Lock()
	defer ps.cache.Mu.Unlock()

	if old, ok := ps.cache.Chunks[entry.Slug]; ok {
		ps.dropDependencies([]string{entry.Slug}, old.DependsOn)
	}
	ps.cache.Chunks[entry.Slug] = &types.PageChunk{
		Entry:       entry,
		DependsOn:   dependsOn,
		LastUpdated: ps.now().UTC(),
	}
	for _, dep := range dependsOn {
		if !slices.Contains(ps.cache.Deps[dep], entry.Slug) {
			ps.cache.Deps[dep] = append(ps.cache.Deps[dep], entry.Slug)
		}
	}
	ps.logger.LogCacheOperation("set_page", entry.Slug, false)
}

// =============================================================================
// Invalidation Operations
// =============================================================================

// InvalidateByDependency evicts every page built from dependencyID.
func (ps *PagesStore) InvalidateByDependency(dependencyID string) int {
	ps.cache.Mu.Lock()
	defer ps.cache.Mu.Unlock()

	slugs, exists := ps.cache.Deps[dependencyID]
	if !exists {
		return 0
	}
	for _, slug := range slugs {
		delete(ps.cache.Chunks, slug)
	}
	delete(ps.cache.Deps, dependencyID)
	ps.dropDependencies(slugs, nil)

	ps.logger.Cache().Debug("Invalidated pages by dependency", "dependency", dependencyID, "count", len(slugs))
	return len(slugs)
}

// InvalidateByPattern evicts pages whose slug matches pattern: "*" for all,
// "prefix/*" for a subtree, otherwise an exact slug.
func (ps *PagesStore) InvalidateByPattern(pattern string) int {
	ps.cache.Mu.Lock()
	defer ps.cache.Mu.Unlock()

	var deleted []string
	for slug := range ps.cache.Chunks {
		if matchesPattern(slug, pattern) {
			deleted = append(deleted, slug)
		}
	}
	for _, slug := range deleted {
		delete(ps.cache.Chunks, slug)
	}
	ps.dropDependencies(deleted, nil)
	return len(deleted)
}

// InvalidateAll clears the cache.
func (ps *PagesStore) InvalidateAll() {
	ps.cache.Mu.Lock()
	defer ps.cache.Mu.Unlock()

	ps.cache.Chunks = make(map[string]*types.PageChunk)
	ps.cache.Deps = make(map[string][]string)
	ps.logger.Cache().Info("Page cache cleared")
}

// PurgeExpired removes expired pages and returns how many were removed.
func (ps *PagesStore) PurgeExpired() int {
	ps.cache.Mu.Lock()
	defer ps.cache.Mu.Unlock()

	var expired []string
	for slug, chunk := range ps.cache.Chunks {
		if ps.expired(chunk) {
			expired = append(expired, slug)
		}
	}
	for _, slug := range expired {
		delete(ps.cache.Chunks, slug)
	}
	ps.dropDependencies(expired, nil)
	return len(expired)
}

// Summary returns cache status for the admin endpoints.
func (ps *PagesStore) Summary() map[string]any {
	ps.cache.Mu.RLock()
	defer ps.cache.Mu.RUnlock()

	active, expired := 0, 0
	for _, chunk := range ps.cache.Chunks {
		if ps.expired(chunk) {
			expired++
		} else {
			active++
		}
	}
	return map[string]any{
		"totalPages":   len(ps.cache.Chunks),
		"activePages":  active,
		"expiredPages": expired,
		"dependencies": len(ps.cache.Deps),
		"ttl":          ps.ttl.String(),
	}
}

// dropDependencies removes slugs from the dependency index. When only is
// non-nil, just those dependency keys are visited. Caller holds the lock.
func (ps *PagesStore) dropDependencies(slugs []string, only []string) {
	if len(slugs) == 0 {
		return
	}
	keys := only
	if keys == nil {
		for dep := range ps.cache.Deps {
			keys = append(keys, dep)
		}
	}
	for _, dep := range keys {
		kept := slices.DeleteFunc(slices.Clone(ps.cache.Deps[dep]), func(s string) bool {
			return slices.Contains(slugs, s)
		})
		if len(kept) == 0 {
			delete(ps.cache.Deps, dep)
		} else {
			ps.cache.Deps[dep] = kept
		}
	}
}

func matchesPattern(slug, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return slug == prefix || strings.HasPrefix(slug, prefix+"/")
	}
	return slug == pattern
}

var _ interfaces.PageCache = (*PagesStore)(nil)
