package store

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgValue(t *testing.T) {
	assert.Equal(t, 2.5, pgValue(pgtype.Numeric{Int: big.NewInt(25), Exp: -1, Valid: true}))
	assert.Nil(t, pgValue(pgtype.Numeric{}))
	assert.Equal(t, "x", pgValue([]byte("x")))
	assert.Equal(t, int64(3), pgValue(int64(3)))
}

// TestPostgresRoundTrip needs a database with the season_state table:
//
//	DATAVIEW_TEST_PG_DSN=postgres://localhost/dataview go test ./internal/store
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("DATAVIEW_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("set DATAVIEW_TEST_PG_DSN to run against PostgreSQL")
	}
	ctx := context.Background()

	exec, err := Open(ctx, DriverPostgres, dsn)
	require.NoError(t, err)
	defer exec.Close()

	res, err := exec.Query(ctx, "SELECT 1 AS one, CAST(3 AS DECIMAL) / NULLIF(CAST(2 AS DECIMAL), 0) AS ratio ORDER BY 1 NULLS LAST")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "ratio"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.InDelta(t, 1.5, res.Rows[0][1], 1e-9)

	_, err = exec.Current(ctx)
	require.NoError(t, err)
}
