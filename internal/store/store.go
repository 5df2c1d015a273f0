package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/dataview/internal/season"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Executor runs compiled SQL and reports the current season.
type Executor interface {
	Query(ctx context.Context, query string) (*Result, error)
	Current(ctx context.Context) (season.Context, error)
	Close() error
}

// Result is a query result set.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Maps returns the rows keyed by column name.
func (r *Result) Maps() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			m[col] = row[j]
		}
		out[i] = m
	}
	return out
}

// Open connects to driver at dsn. For SQLite the dsn is a file path or
// ":memory:".
func Open(ctx context.Context, driver, dsn string) (Executor, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite":
		return OpenSQLite(dsn)
	case DriverPostgres, "pgx", "postgresql":
		return OpenPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}

// seasonFromRow builds a season context from a season_state row.
func seasonFromRow(year, week int, phase string, now time.Time) (season.Context, error) {
	p, err := season.ParsePhase(phase)
	if err != nil {
		return season.Context{}, fmt.Errorf("season_state: %w", err)
	}
	sc := season.Context{Year: year, Week: week, Phase: p, Now: now}
	if err := sc.Validate(); err != nil {
		return season.Context{}, fmt.Errorf("season_state: %w", err)
	}
	return sc, nil
}

const seasonQuery = `SELECT year, week, phase FROM season_state WHERE id = 1`

// normalizeValue converts driver values into JSON-friendly Go values.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	}
	return v
}
