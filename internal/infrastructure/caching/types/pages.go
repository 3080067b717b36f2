// Package types defines the cache data structures for rendered documentation.
package types

import (
	"sync"
	"time"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
)

// PageChunk is a cached rendered entry together with the source paths it was
// built from.
type PageChunk struct {
	Entry       *content.Entry `json:"entry"`
	DependsOn   []string       `json:"dependsOn"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// PageCache holds the rendered entries of one site build.
type PageCache struct {
	Chunks map[string]*PageChunk // slug -> chunk
	Deps   map[string][]string   // source path -> []slug
	Mu     sync.RWMutex
}

// NewPageCache returns an empty page cache.
func NewPageCache() *PageCache {
	return &PageCache{
		Chunks: make(map[string]*PageChunk),
		Deps:   make(map[string][]string),
	}
}
