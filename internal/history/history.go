// Package history persists answered queries to a local SQLite database.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/csvdash/internal/utils"
)

var migrations = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	`CREATE TABLE IF NOT EXISTS queries (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	dataset     TEXT NOT NULL,
	query       TEXT NOT NULL,
	query_type  TEXT NOT NULL,
	chart_type  TEXT NOT NULL,
	source      TEXT NOT NULL,
	failed      INTEGER NOT NULL DEFAULT 0,
	created_ms  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_queries_created ON queries(created_ms DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_queries_session ON queries(session_id)`,
}

// Entry is one answered query.
type Entry struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Dataset   string    `db:"dataset" json:"dataset"`
	Query     string    `db:"query" json:"query"`
	QueryType string    `db:"query_type" json:"query_type"`
	ChartType string    `db:"chart_type" json:"chart_type"`
	Source    string    `db:"source" json:"source"`
	Failed    bool      `db:"failed" json:"failed"`
	CreatedMs int64     `db:"created_ms" json:"-"`
	CreatedAt time.Time `db:"-" json:"created_at"`
}

// Store is a query log backed by SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// One connection serializes writers.
	db.SetMaxOpenConns(1)
	ctx := context.Background()
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init history: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Record stores e, assigning an ID and timestamp when missing.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedMs = e.CreatedAt.UnixMilli()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO queries (id, session_id, dataset, query, query_type, chart_type, source, failed, created_ms)
		VALUES (:id, :session_id, :dataset, :query, :query_type, :chart_type, :source, :failed, :created_ms)`, e)
	if err != nil {
		return Entry{}, fmt.Errorf("record query: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. A non-empty sessionID
// restricts the result to that session.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT * FROM queries`
	args := []any{}
	if sessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` ORDER BY created_ms DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	var out []Entry
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	for i := range out {
		out[i].CreatedAt = time.UnixMilli(out[i].CreatedMs)
	}
	return out, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }
