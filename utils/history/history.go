// Package history keeps a local journal of upsampling runs in SQLite.
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/kris-hansen/tagup/utils/fileutil"
)

// ErrNotFound is returned by Get for an unknown id
var ErrNotFound = errors.New("history entry not found")

// Entry is one journaled run
type Entry struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Model     string        `json:"model"`
	Version   string        `json:"version"`
	Input     string        `json:"input"`
	Seed      *int          `json:"seed,omitempty"`
	AllTags   string        `json:"all_tags"`
	Raw       string        `json:"raw,omitempty"`
	Duration  time.Duration `json:"duration"`
	// Error is set for failed runs
	Error string `json:"error,omitempty"`
}

// Journal is a SQLite-backed run log. It is safe for concurrent use.
type Journal struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// DefaultPath returns the journal location used when none is configured
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tagup", "history.db")
	}
	return filepath.Join(home, ".tagup", "history.db")
}

// Open opens or creates the journal at path with WAL mode enabled
func Open(ctx context.Context, path string) (*Journal, error) {
	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand history path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", expanded)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	model TEXT NOT NULL,
	version TEXT NOT NULL,
	input TEXT NOT NULL,
	seed INTEGER,
	all_tags TEXT NOT NULL DEFAULT '',
	raw TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) newID(t time.Time) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), j.entropy).String()
}

// Record stores e and returns its id. ID and CreatedAt are assigned when empty.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.ID == "" {
		e.ID = j.newID(e.CreatedAt)
	}

	var seed sql.NullInt64
	if e.Seed != nil {
		seed = sql.NullInt64{Int64: int64(*e.Seed), Valid: true}
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO runs (id, created_at, model, version, input, seed, all_tags, raw, duration_ms, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UTC().Format(time.RFC3339Nano), e.Model, e.Version, e.Input, seed,
		e.AllTags, e.Raw, e.Duration.Milliseconds(), e.Error)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return e.ID, nil
}

const selectColumns = `SELECT id, created_at, model, version, input, seed, all_tags, raw, duration_ms, error FROM runs`

// List returns up to limit entries, newest first. model filters by model
// name when not empty. A limit <= 0 returns every entry.
func (j *Journal) List(ctx context.Context, model string, limit int) ([]Entry, error) {
	query := selectColumns
	var args []interface{}
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the entry with id
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Prune deletes entries created before cutoff and returns how many were removed
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	// ulids sort by creation time, so the cutoff id bounds older rows
	bound := ulid.ULID{}
	if err := bound.SetTime(ulid.Timestamp(cutoff)); err != nil {
		return 0, err
	}
	res, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE id < ?`, bound.String())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e          Entry
		createdAt  string
		seed       sql.NullInt64
		durationMS int64
	)
	if err := s.Scan(&e.ID, &createdAt, &e.Model, &e.Version, &e.Input, &seed,
		&e.AllTags, &e.Raw, &durationMS, &e.Error); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	if seed.Valid {
		v := int(seed.Int64)
		e.Seed = &v
	}
	e.Duration = time.Duration(durationMS) * time.Millisecond
	return e, nil
}
