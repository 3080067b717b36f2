package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema executes all necessary queries to build the content index
// tables and indexes. It is idempotent.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.ExecContext(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS entries (id TEXT PRIMARY KEY, slug TEXT NOT NULL UNIQUE, path TEXT NOT NULL, title TEXT NOT NULL, data_json TEXT NOT NULL, raw_data TEXT, body TEXT NOT NULL, html TEXT NOT NULL, headings_json TEXT NOT NULL, checksum TEXT NOT NULL, updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_entries_path ON entries(path)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_updated_at ON entries(updated_at)`,
}
