package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/snapdeck/dbopen"
)

// LogEntry is one row of the capture run log.
type LogEntry struct {
	Project   string
	File      string
	URL       string
	Tier      string
	NavState  string
	Duration  time.Duration
	CreatedAt string
}

// LogCapture records a capture run in the SQLite log.
func (s *Store) LogCapture(ctx context.Context, e LogEntry) error {
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO capture_log (project, file, url, tier, nav_state, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Project, e.File, e.URL, e.Tier, e.NavState, e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("store: log capture: %w", err)
	}
	return nil
}

// RecentCaptures returns the latest log entries for a project, newest first.
func (s *Store) RecentCaptures(ctx context.Context, project string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT project, file, url, tier, nav_state, duration_ms, created_at
		 FROM capture_log WHERE project = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var ms int64
		if err := rows.Scan(&e.Project, &e.File, &e.URL, &e.Tier, &e.NavState, &ms, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan log row: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
