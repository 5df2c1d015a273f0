package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/dataview/internal/season"
)

// Postgres executes queries against the production database.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres creates a connection pool for dsn and checks it is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Query runs a compiled query.
func (p *Postgres) Query(ctx context.Context, query string) (*Result, error) {
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &Result{Columns: make([]string, len(fields)), Rows: [][]any{}}
	for i, f := range fields {
		res.Columns[i] = f.Name
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			values[i] = pgValue(v)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return res, nil
}

// pgValue flattens pgx types that do not marshal to plain JSON.
func pgValue(v any) any {
	if n, ok := v.(pgtype.Numeric); ok {
		if !n.Valid {
			return nil
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return normalizeValue(v)
}

// Current reads the season context from season_state.
func (p *Postgres) Current(ctx context.Context) (season.Context, error) {
	var (
		year, week int32
		phase      string
	)
	err := p.pool.QueryRow(ctx, seasonQuery).Scan(&year, &week, &phase)
	if errors.Is(err, pgx.ErrNoRows) {
		return season.Context{}, fmt.Errorf("season_state is empty")
	}
	if err != nil {
		return season.Context{}, fmt.Errorf("read season_state: %w", err)
	}
	return seasonFromRow(int(year), int(week), phase, p.now().UTC())
}
