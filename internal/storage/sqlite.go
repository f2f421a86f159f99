package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Benny93/schemadoc-go/internal/corpus"
)

var sqliteSchema = []string{
	`CREATE TABLE entries (
		id          TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		path        TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		source      TEXT NOT NULL
	)`,
	`CREATE INDEX idx_entries_name ON entries (name COLLATE NOCASE)`,
}

// SQLiteIndex exports the search index as a SQLite database so external
// search endpoints can query it without parsing JSON.
type SQLiteIndex struct{}

// File implements corpus.Sink.
func (SQLiteIndex) File() string { return "search.sqlite" }

// WriteIndex implements corpus.Sink.
func (SQLiteIndex) WriteIndex(ctx context.Context, path string, entries []corpus.SearchEntry) error {
	return WriteSQLiteIndex(ctx, path, entries)
}

// WriteSQLiteIndex writes entries into a fresh SQLite database at path.
func WriteSQLiteIndex(ctx context.Context, path string, entries []corpus.SearchEntry) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing old index: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite: %w", err)
	}
	defer db.Close()

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (id, name, description, path, kind, source) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Name, e.Description, e.Path, e.Kind, e.Source); err != nil {
			return fmt.Errorf("inserting %s: %w", e.Path, err)
		}
	}
	return tx.Commit()
}
