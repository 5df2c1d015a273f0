package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/dataview/internal/season"
)

//go:embed schema.sql
var schemaSQL string

// SQLite executes queries against a local fixture database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite creates or opens a SQLite database at path and applies the
// fixture schema. Safe to call on an existing database.
//
// The database is configured with:
//   - WAL mode for concurrent reads (skipped for :memory:)
//   - 5-second busy timeout for lock contention
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: an in-memory database is private to its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, path); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func applyPragmas(db *sql.DB, path string) error {
	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// DB returns the underlying handle, e.g. for loading fixtures.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query runs a compiled query.
func (s *SQLite) Query(ctx context.Context, query string) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	res := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return res, nil
}

// Current reads the season context from season_state.
func (s *SQLite) Current(ctx context.Context) (season.Context, error) {
	var (
		year, week int
		phase      string
	)
	err := s.db.QueryRowContext(ctx, seasonQuery).Scan(&year, &week, &phase)
	if errors.Is(err, sql.ErrNoRows) {
		return season.Context{}, fmt.Errorf("season_state is empty")
	}
	if err != nil {
		return season.Context{}, fmt.Errorf("read season_state: %w", err)
	}
	return seasonFromRow(year, week, phase, s.now().UTC())
}

// SetSeason replaces the season_state row.
func (s *SQLite) SetSeason(ctx context.Context, sc season.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO season_state (id, year, week, phase) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET year = excluded.year, week = excluded.week, phase = excluded.phase
	`, sc.Year, sc.Week, string(sc.Phase))
	if err != nil {
		return fmt.Errorf("write season_state: %w", err)
	}
	return nil
}
