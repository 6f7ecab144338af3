package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"ao3harvest/lib/sqliteutil"
)

//go:embed schema.sql
var Schema string

// Journal is an operator-facing log of every completed fetch, successes and
// exhaustions alike. It is bookkeeping only: the scrape never reads it to
// make decisions.
type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	database, err := sqliteutil.OpenDB(Schema, path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: database}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

type Entry struct {
	URL        string
	StatusCode int
	Attempts   int
	// Outcome is "ok" or the error string for exhausted fetches.
	Outcome    string
	DurationMs int64
	FetchedAt  int64
}

func (j *Journal) Insert(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO fetch_journal (url, status_code, attempts, outcome, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.URL, e.StatusCode, e.Attempts, e.Outcome, e.DurationMs, e.FetchedAt,
	)
	return err
}

// History returns the most recent entries, newest first.
func (j *Journal) History(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT url, status_code, attempts, outcome, duration_ms, fetched_at
		FROM fetch_journal ORDER BY fetched_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.URL, &e.StatusCode, &e.Attempts, &e.Outcome, &e.DurationMs, &e.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
