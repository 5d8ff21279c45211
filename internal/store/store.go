// Package store provides the SQLite progress ledger that lets long sweeps
// resume: per-page outcomes by recipe, and a history of finished runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Outcomes that count as finished work; a resumed run skips these pages.
var doneOutcomes = map[string]bool{
	"saved":     true,
	"unchanged": true,
	"skipped":   true,
	"rejected":  true,
}

// PageRecord is the last recorded outcome of a page under a recipe.
type PageRecord struct {
	Recipe    string
	Title     string
	Outcome   string
	RunID     string
	UpdatedAt time.Time
}

// RunRecord is a finished run.
type RunRecord struct {
	ID         string
	Recipe     string
	StartedAt  time.Time
	FinishedAt time.Time
	// Summary is the JSON-encoded run summary.
	Summary string
}

// Store wraps a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures
// all required tables exist. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: an in-memory database is per connection, and the
	// pipeline writes from a single goroutine anyway.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS page_progress (
			recipe     TEXT NOT NULL,
			title      TEXT NOT NULL,
			outcome    TEXT NOT NULL,
			run_id     TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (recipe, title)
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			recipe      TEXT NOT NULL,
			started_at  DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			summary     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS runs_recipe ON runs (recipe, finished_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// MarkPage records the outcome of title under recipe, replacing any
// earlier record.
func (s *Store) MarkPage(ctx context.Context, recipe, title, outcome, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO page_progress (recipe, title, outcome, run_id, updated_at)
		 VALUES (?, ?, ?, ?, datetime('now'))`,
		recipe, title, outcome, runID,
	)
	if err != nil {
		return fmt.Errorf("mark page: %w", err)
	}
	return nil
}

// Page returns the record of title under recipe.
func (s *Store) Page(ctx context.Context, recipe, title string) (PageRecord, bool, error) {
	rec := PageRecord{Recipe: recipe, Title: title}
	err := s.db.QueryRowContext(ctx,
		`SELECT outcome, run_id, updated_at FROM page_progress WHERE recipe = ? AND title = ?`,
		recipe, title,
	).Scan(&rec.Outcome, &rec.RunID, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return PageRecord{}, false, nil
	}
	if err != nil {
		return PageRecord{}, false, fmt.Errorf("query page: %w", err)
	}
	return rec, true, nil
}

// IsDone reports whether title finished under recipe in an earlier run.
func (s *Store) IsDone(ctx context.Context, recipe, title string) (bool, error) {
	rec, ok, err := s.Page(ctx, recipe, title)
	if err != nil || !ok {
		return false, err
	}
	return doneOutcomes[rec.Outcome], nil
}

// Completed returns the titles finished under recipe.
func (s *Store) Completed(ctx context.Context, recipe string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, outcome FROM page_progress WHERE recipe = ?`, recipe)
	if err != nil {
		return nil, fmt.Errorf("query completed: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var title, outcome string
		if err := rows.Scan(&title, &outcome); err != nil {
			return nil, fmt.Errorf("scan completed: %w", err)
		}
		if doneOutcomes[outcome] {
			out[title] = true
		}
	}
	return out, rows.Err()
}

// Reset forgets every page recorded under recipe.
func (s *Store) Reset(ctx context.Context, recipe string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM page_progress WHERE recipe = ?`, recipe)
	if err != nil {
		return 0, fmt.Errorf("reset progress: %w", err)
	}
	return res.RowsAffected()
}

// RecordRun stores a finished run.
func (s *Store) RecordRun(ctx context.Context, r RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, recipe, started_at, finished_at, summary)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Recipe, r.StartedAt.UTC().Format(time.DateTime), r.FinishedAt.UTC().Format(time.DateTime), r.Summary,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns the latest runs of recipe, newest first. An empty recipe
// lists every recipe.
func (s *Store) Runs(ctx context.Context, recipe string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipe, started_at, finished_at, summary FROM runs
		 WHERE ? = '' OR recipe = ?
		 ORDER BY finished_at DESC LIMIT ?`,
		recipe, recipe, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Recipe, &r.StartedAt, &r.FinishedAt, &r.Summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
