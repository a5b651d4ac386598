// Package store manages the on-disk layout of capture projects: screenshot
// directories with captures.md record files, per-project notes and ordering,
// and an SQLite log of capture runs.
//
// Layout under the store root:
//
//	screenshots/            default project images + captures.md
//	screenshots/<project>/  named project images + captures.md
//	notes/<project>/notes.md
//	order/<project>.md
//	snapdeck.db             capture run log
package store

import (
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/snapdeck/dbopen"
)

const schema = `
CREATE TABLE IF NOT EXISTS capture_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project     TEXT NOT NULL,
	file        TEXT NOT NULL,
	url         TEXT NOT NULL,
	tier        TEXT NOT NULL DEFAULT '',
	nav_state   TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_capture_log_project ON capture_log(project, created_at DESC);
`

// Store is a project store rooted at a directory.
type Store struct {
	root string
	db   *sql.DB
	log  *slog.Logger
}

// Open opens (creating if needed) a store rooted at dir.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	for _, sub := range []string{"screenshots", "notes", "order"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", sub, err)
		}
	}
	db, err := dbopen.Open(filepath.Join(dir, "snapdeck.db"), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("store: open log db: %w", err)
	}
	return &Store{root: dir, db: db, log: log}, nil
}

// Close closes the store's database.
func (s *Store) Close() error { return s.db.Close() }

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// SavePNG writes img to the project's screenshot directory under filename.
func (s *Store) SavePNG(project, filename string, img image.Image) (string, error) {
	dir := s.ProjectDir(project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: create project dir: %w", err)
	}
	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("store: create %s: %w", filename, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("store: encode %s: %w", filename, err)
	}
	return path, nil
}
