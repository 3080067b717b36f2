// Package content provides the content index repository
package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xtdb/xtdocs/internal/domain/entities/content"
	"github.com/xtdb/xtdocs/internal/infrastructure/caching/interfaces"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/pkg/config"
)

type EntryRepository struct {
	db     *sql.DB
	cache  interfaces.PageCache
	logger *logging.ChanneledLogger
}

func NewEntryRepository(db *sql.DB, cache interfaces.PageCache, logger *logging.ChanneledLogger) *EntryRepository {
	return &EntryRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// FindBySlug returns the entry for slug, cache first. A missing entry is
// (nil, nil).
func (r *EntryRepository) FindBySlug(ctx context.Context, slug string) (*content.Entry, error) {
	if entry, found := r.cache.GetPage(slug); found {
		return entry, nil
	}

	query := `SELECT id, slug, path, title, data_json, raw_data, body, html, headings_json, checksum, updated_at FROM entries WHERE slug = ?`
	start := time.Now()
	row := r.db.QueryRowContext(ctx, query, slug)
	entry, err := scanEntry(row)
	r.checkSlow(query, time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Entry lookup failed", "error", err.Error(), "slug", slug)
		return nil, fmt.Errorf("failed to load entry %q: %w", slug, err)
	}

	r.cache.SetPage(entry, []string{entry.Path})
	return entry, nil
}

// FindAll lists every entry ordered by path.
func (r *EntryRepository) FindAll(ctx context.Context) ([]*content.Summary, error) {
	query := `SELECT slug, title, path, updated_at FROM entries ORDER BY path`
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	summaries := []*content.Summary{}
	for rows.Next() {
		var s content.Summary
		if err := rows.Scan(&s.Slug, &s.Title, &s.Path, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.checkSlow(query, time.Since(start))
	return summaries, nil
}

// Store inserts or replaces the entry with the same slug.
func (r *EntryRepository) Store(ctx context.Context, entry *content.Entry) error {
	dataJSON, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal entry data: %w", err)
	}
	headings := entry.Headings
	if headings == nil {
		headings = []content.Heading{}
	}
	headingsJSON, err := json.Marshal(headings)
	if err != nil {
		return fmt.Errorf("failed to marshal entry headings: %w", err)
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	query := `INSERT INTO entries (id, slug, path, title, data_json, raw_data, body, html, headings_json, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET path = excluded.path, title = excluded.title, data_json = excluded.data_json,
			raw_data = excluded.raw_data, body = excluded.body, html = excluded.html, headings_json = excluded.headings_json,
			checksum = excluded.checksum, updated_at = excluded.updated_at`

	start := time.Now()
	r.logger.Database().Debug("Executing entry upsert", "slug", entry.Slug)

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.Slug, entry.Path, entry.Title, string(dataJSON), entry.RawData,
		entry.Body, entry.HTML, string(headingsJSON), entry.Checksum, entry.UpdatedAt)
	if err != nil {
		r.logger.Database().Error("Entry upsert failed", "error", err.Error(), "slug", entry.Slug)
		return fmt.Errorf("failed to store entry: %w", err)
	}

	r.checkSlow("ENTRY_UPSERT", time.Since(start))
	r.cache.SetPage(entry, []string{entry.Path})
	return nil
}

// DeleteExcept removes every entry whose slug is not in keep and returns how
// many were removed.
func (r *EntryRepository) DeleteExcept(ctx context.Context, keep []string) (int, error) {
	query := `DELETE FROM entries`
	args := make([]any, len(keep))
	if len(keep) > 0 {
		query += ` WHERE slug NOT IN (?` + strings.Repeat(`, ?`, len(keep)-1) + `)`
		for i, slug := range keep {
			args[i] = slug
		}
	}

	start := time.Now()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale entries: %w", err)
	}
	r.checkSlow("BULK_ENTRY_DELETE", time.Since(start))

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.cache.InvalidateAll()
		r.logger.Database().Info("Removed stale entries", "count", n)
	}
	return int(n), nil
}

func (r *EntryRepository) checkSlow(query string, duration time.Duration) {
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, "entries")
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*content.Entry, error) {
	var (
		entry        content.Entry
		dataJSON     string
		rawData      sql.NullString
		headingsJSON string
	)
	err := row.Scan(&entry.ID, &entry.Slug, &entry.Path, &entry.Title, &dataJSON, &rawData,
		&entry.Body, &entry.HTML, &headingsJSON, &entry.Checksum, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	entry.RawData = rawData.String
	if err := json.Unmarshal([]byte(dataJSON), &entry.Data); err != nil {
		return nil, fmt.Errorf("failed to parse entry data: %w", err)
	}
	if err := json.Unmarshal([]byte(headingsJSON), &entry.Headings); err != nil {
		return nil, fmt.Errorf("failed to parse entry headings: %w", err)
	}
	return &entry, nil
}
