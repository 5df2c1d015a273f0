package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataview/internal/compiler"
	"github.com/roach88/dataview/internal/registry"
	"github.com/roach88/dataview/internal/season"
	"github.com/roach88/dataview/internal/store"
	"github.com/roach88/dataview/internal/testutil"
)

var testSeason = testutil.Season()

const rushRequest = `{
	"view_id": "rushers",
	"prefix_columns": ["player_name"],
	"columns": [{"column_id": "player_rush_yards_from_plays", "params": {"year": 2023}}]
}`

type failingSeasons struct{}

func (failingSeasons) Current(context.Context) (season.Context, error) {
	return season.Context{}, errors.New("season_state is empty")
}

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	opts = append([]Option{WithLogger(logger), WithRequestIDs(testutil.NewIDSequence("req").Next)}, opts...)

	s := New(compiler.New(registry.Default()), season.Static{Context: testSeason}, opts...)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts, &logs
}

func post(t *testing.T, url, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	ts, logs := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
	assert.Contains(t, logs.String(), "request_id=req-1")
	assert.Contains(t, logs.String(), "path=/healthz")
}

func TestColumns(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/columns")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cols := decode[[]registry.ColumnInfo](t, resp)
	assert.Len(t, cols, registry.Default().Len())
	assert.Equal(t, registry.Default().List()[0].ID, cols[0].ID)
}

func TestCompile(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := compiler.ParseRequestJSON([]byte(rushRequest))
	require.NoError(t, err)
	want, err := compiler.New(registry.Default()).Compile(req, testSeason)
	require.NoError(t, err)

	resp := post(t, ts.URL+"/data-views/compile", rushRequest, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"`+want.Hash+`"`, resp.Header.Get("ETag"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	got := decode[compiler.Result](t, resp)
	assert.Equal(t, want.Query, got.Query)
	assert.Equal(t, want.Metadata, got.Metadata)
	assert.Equal(t, "rushers", got.ViewID)
	assert.Equal(t, want.Hash, got.Hash)
}

func TestCompileNotModified(t *testing.T) {
	ts, _ := newTestServer(t)

	first := post(t, ts.URL+"/data-views/compile", rushRequest, nil)
	require.Equal(t, http.StatusOK, first.StatusCode)
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)

	second := post(t, ts.URL+"/data-views/compile", rushRequest, http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, second.StatusCode)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		code     string
		columnID string
	}{
		{
			name:     "unknown column",
			body:     `{"columns": ["player_shoe_size"]}`,
			status:   http.StatusBadRequest,
			code:     string(compiler.ErrCodeInvalidColumn),
			columnID: "player_shoe_size",
		},
		{
			name:   "bad parameter",
			body:   `{"columns": [{"column_id": "player_rush_yards_from_plays", "params": {"week": 40}}]}`,
			status: http.StatusBadRequest,
			code:   string(compiler.ErrCodeInvalidParameter),
		},
		{
			name:   "malformed json",
			body:   `{"columns": [`,
			status: http.StatusBadRequest,
			code:   codeBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t)
			resp := post(t, ts.URL+"/data-views/compile", tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)

			body := decode[ErrorBody](t, resp)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, "req-1", body.Error.RequestID)
			if tt.columnID != "" {
				assert.Equal(t, tt.columnID, body.Error.ColumnID)
			}
		})
	}
}

func TestCompileSeasonUnavailable(t *testing.T) {
	s := New(compiler.New(registry.Default()), failingSeasons{}, WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp := post(t, ts.URL+"/data-views/compile", rushRequest, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, codeSeasonUnavailable, decode[ErrorBody](t, resp).Error.Code)
}

func TestResultsWithoutExecutor(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := post(t, ts.URL+"/data-views/results", rushRequest, nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, codeExecutionDisabled, decode[ErrorBody](t, resp).Error.Code)
}

func TestResults(t *testing.T) {
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, stmt := range []string{
		`INSERT INTO player (pid, fname, lname, pos, current_nfl_team) VALUES
			('P1', 'Ada', 'Runner', 'RB', 'KC'),
			('P2', 'Bo', 'Catcher', 'WR', 'BUF')`,
		`INSERT INTO nfl_plays (esbid, play_id, year, week, seas_type, off, def, play_type, dwn, bc_pid, rush_yds) VALUES
			(2001, 1, 2023, 1, 'REG', 'KC', 'BUF', 'RUSH', 1, 'P1', 7),
			(2001, 2, 2023, 1, 'REG', 'KC', 'BUF', 'RUSH', 2, 'P1', 5)`,
	} {
		_, err := db.DB().Exec(stmt)
		require.NoError(t, err)
	}

	ts, _ := newTestServer(t, WithExecutor(db))
	resp := post(t, ts.URL+"/data-views/results", rushRequest, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[ResultsResponse](t, resp)
	assert.Equal(t, "rushers", got.ViewID)
	assert.Equal(t, []string{"pid", "player_name", "player_rush_yards_from_plays_0"}, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, []any{"P1", "Ada Runner", float64(12)}, got.Rows[0])
	assert.Equal(t, []any{"P2", "Bo Catcher", nil}, got.Rows[1])
	assert.Positive(t, got.Metadata.CacheTTL)
}

func TestResultsQueryFailure(t *testing.T) {
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	_, err = db.DB().Exec(`DROP TABLE nfl_plays`)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts, _ := newTestServer(t, WithExecutor(db))
	resp := post(t, ts.URL+"/data-views/results", rushRequest, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, codeQueryFailed, decode[ErrorBody](t, resp).Error.Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(compiler.New(registry.Default()), season.Static{Context: testSeason},
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
