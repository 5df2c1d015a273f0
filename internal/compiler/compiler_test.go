package compiler

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataview/internal/registry"
	"github.com/roach88/dataview/internal/season"
)

func testSeason() season.Context {
	return season.Context{
		Year:  2024,
		Week:  6,
		Phase: season.PhaseRegular,
		Now:   time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC),
	}
}

func compileOK(t *testing.T, req Request) *Result {
	t.Helper()
	res, err := New(registry.Default()).Compile(req, testSeason())
	require.NoError(t, err)
	return res
}

func aliasFor(t *testing.T, id registry.ColumnID, p Params) string {
	t.Helper()
	alias, err := instanceAlias(id, p)
	require.NoError(t, err)
	return alias
}

func col(id registry.ColumnID, params map[string]any) ColumnRequest {
	return ColumnRequest{ColumnID: id, Params: params}
}

func intPtr(n int) *int { return &n }

func TestCompileGamesPlayed(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.PlayerGamesPlayed, map[string]any{"year": []any{2023}})},
		Sort:    []SortSpec{{ColumnID: registry.PlayerGamesPlayed, Desc: true}},
	})

	a := aliasFor(t, registry.PlayerGamesPlayed, Params{
		registry.ParamYear:     []int{2023},
		registry.ParamSeasType: "REG",
	})
	want := fmt.Sprintf("WITH %[1]s AS (SELECT pid, year, SUM(1) AS games_played FROM player_gamelogs "+
		"WHERE active = true AND seas_type = 'REG' AND year IN (2023) GROUP BY pid, year) "+
		"SELECT player.pid AS pid, %[1]s.games_played AS player_games_played_0 FROM player "+
		"LEFT JOIN %[1]s ON %[1]s.pid = player.pid AND %[1]s.year = 2023 "+
		"ORDER BY 2 DESC NULLS LAST, pid ASC LIMIT 500", a)
	assert.Equal(t, want, res.Query)
	assert.Len(t, res.Plan.Query.CTEs, 1)
}

func TestCompilePositionFilterWithSeasonLog(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.PlayerFantasyPointsSeasonLogs, map[string]any{"year": 2023})},
		Where: []FilterSpec{
			{ColumnID: registry.PlayerPosition, Operator: "IN", Value: []any{"WR"}},
		},
	})

	a := aliasFor(t, registry.PlayerFantasyPointsSeasonLogs, Params{
		registry.ParamYear:     []int{2023},
		registry.ParamSeasType: "REG",
	})
	want := fmt.Sprintf("WITH %[1]s AS (SELECT pid, year, SUM(points) AS points FROM player_seasonlogs "+
		"WHERE seas_type = 'REG' AND year IN (2023) GROUP BY pid, year) "+
		"SELECT player.pid AS pid, %[1]s.points AS player_fantasy_points_from_seasonlogs_0 FROM player "+
		"LEFT JOIN %[1]s ON %[1]s.pid = player.pid AND %[1]s.year = 2023 "+
		"WHERE player.pos IN ('WR') ORDER BY pid ASC LIMIT 500", a)
	assert.Equal(t, want, res.Query)
}

func TestCompileYearOffsetJoins(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{
			col(registry.PlayerFantasyPointsSeasonLogs, map[string]any{"year": []any{2023}}),
			col(registry.PlayerFantasyPointsSeasonLogs, map[string]any{"year": []any{2023}, "year_offset": 1}),
		},
		Splits: []string{"year"},
	})

	a := aliasFor(t, registry.PlayerFantasyPointsSeasonLogs, Params{
		registry.ParamYear:     []int{2023},
		registry.ParamSeasType: "REG",
	})
	b := aliasFor(t, registry.PlayerFantasyPointsSeasonLogs, Params{
		registry.ParamYear:       []int{2023},
		registry.ParamSeasType:   "REG",
		registry.ParamYearOffset: Span{Lo: 1, Hi: 1},
	})
	require.NotEqual(t, a, b)

	want := fmt.Sprintf("WITH player_years AS (SELECT DISTINCT player.pid, y.year FROM player CROSS JOIN (SELECT 2023 AS year) AS y), "+
		"%[1]s AS (SELECT pid, year, SUM(points) AS points FROM player_seasonlogs WHERE seas_type = 'REG' AND year IN (2023) GROUP BY pid, year), "+
		"%[2]s AS (SELECT pid, year, SUM(points) AS points FROM player_seasonlogs WHERE seas_type = 'REG' AND year IN (2024) GROUP BY pid, year) "+
		"SELECT player.pid AS pid, %[1]s.points AS player_fantasy_points_from_seasonlogs_0, "+
		"%[2]s.points AS player_fantasy_points_from_seasonlogs_1, player_years.year AS year "+
		"FROM player_years INNER JOIN player ON player.pid = player_years.pid "+
		"LEFT JOIN %[1]s ON %[1]s.pid = player.pid AND %[1]s.year = player_years.year "+
		"LEFT JOIN %[2]s ON %[2]s.pid = player.pid AND %[2]s.year = player_years.year + 1 "+
		"ORDER BY pid ASC, year ASC LIMIT 500", a, b)
	assert.Equal(t, want, res.Query)
}

func TestCompileDeterministic(t *testing.T) {
	req := Request{
		PrefixColumns: []ColumnRequest{{ColumnID: registry.PlayerName}},
		Columns: []ColumnRequest{
			col(registry.PlayerTouchesFromPlays, map[string]any{"year": []any{2023, 2022}, "rate_type": "per_game"}),
			col(registry.TeamPassRate, nil),
			col(registry.PlayerBettingMarketLine, map[string]any{"market_type": "GAME_RUSHING_YARDS"}),
		},
		Where: []FilterSpec{{ColumnID: registry.PlayerTouchesFromPlays, Operator: ">", Value: 3}},
		Sort:  []SortSpec{{ColumnID: registry.TeamPassRate, Desc: true}},
	}
	first := compileOK(t, req)
	second := compileOK(t, req)
	assert.Equal(t, first.Query, second.Query)
	assert.Equal(t, first.Hash, second.Hash)

	// Years are a set: order and duplicates do not change the instance.
	req.Columns[0].Params = map[string]any{"year": []any{2022, 2023, 2023}, "rate_type": "PER_GAME"}
	third := compileOK(t, req)
	assert.Equal(t, first.Query, third.Query)
}

func TestCompileDeduplicatesInstances(t *testing.T) {
	rushYards := col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023})
	res := compileOK(t, Request{
		Columns: []ColumnRequest{rushYards, rushYards},
	})

	a := aliasFor(t, registry.PlayerRushYardsFromPlays, Params{
		registry.ParamYear:     []int{2023},
		registry.ParamSeasType: "REG",
	})
	assert.Len(t, res.Plan.Query.CTEs, 1)
	assert.Contains(t, res.Query, a+".rush_yards AS player_rush_yards_from_plays_0")
	assert.Contains(t, res.Query, a+".rush_yards AS player_rush_yards_from_plays_1")
	assert.Equal(t, 1, strings.Count(res.Query, "LEFT JOIN "+a+" "))

	names := make([]string, 0, len(res.Plan.Columns))
	for _, c := range res.Plan.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"pid", "player_rush_yards_from_plays_0", "player_rush_yards_from_plays_1"}, names)
}

func TestCompileOutputNamesCountPerColumn(t *testing.T) {
	res := compileOK(t, Request{
		PrefixColumns: []ColumnRequest{{ColumnID: registry.PlayerName}},
		Columns: []ColumnRequest{
			col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023}),
			col(registry.PlayerTargetsFromPlays, map[string]any{"year": 2023}),
			col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2022}),
		},
	})
	names := make([]string, 0, len(res.Plan.Columns))
	for _, c := range res.Plan.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"pid",
		"player_name",
		"player_rush_yards_from_plays_0",
		"player_targets_from_plays_0",
		"player_rush_yards_from_plays_1",
	}, names)
}

var perGamePattern = regexp.MustCompile(`CAST\(t_[0-9a-f]{32}\.rush_yards AS DECIMAL\) / NULLIF\(CAST\(g_[0-9a-f]{32}\.games AS DECIMAL\), 0\)`)

func TestCompilePerGame(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{
			col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023, "rate_type": "per_game"}),
			col(registry.PlayerTargetsFromPlays, map[string]any{"year": 2023, "rate_type": "per_game"}),
		},
	})

	assert.Regexp(t, perGamePattern, res.Query)
	assert.NotContains(t, res.Query, "rush_yards / ")
	// Both rates share one denominator.
	assert.Equal(t, 1, strings.Count(res.Query, "FROM player_gamelogs"))
	assert.Len(t, res.Plan.Query.CTEs, 3)
	assert.Regexp(t, `LEFT JOIN g_[0-9a-f]{32} ON g_[0-9a-f]{32}\.pid = player\.pid AND g_[0-9a-f]{32}\.year = 2023`, res.Query)
}

func TestCompilePerGameDistinctScopes(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{
			col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023, "rate_type": "per_game"}),
			col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2022, "rate_type": "per_game"}),
		},
	})
	assert.Equal(t, 2, strings.Count(res.Query, "FROM player_gamelogs"))
}

func TestCompileTeamPerGame(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.TeamOffensivePlays, map[string]any{"year": 2023, "rate_type": "per_game"})},
	})
	assert.Contains(t, res.Query, "CAST(SUM(plays) AS DECIMAL) / NULLIF(CAST(COUNT(*) AS DECIMAL), 0) AS team_plays")
	assert.NotContains(t, res.Query, "player_gamelogs")
}

func TestCompileSortOrdinals(t *testing.T) {
	base := Request{
		PrefixColumns: []ColumnRequest{{ColumnID: registry.PlayerName}},
		Columns: []ColumnRequest{
			col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023}),
			col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2022}),
		},
	}

	tests := []struct {
		name string
		sort []SortSpec
		want string
	}{
		{
			name: "first occurrence",
			sort: []SortSpec{{ColumnID: registry.PlayerRushYardsFromPlays, Desc: true}},
			want: "ORDER BY 3 DESC NULLS LAST, pid ASC LIMIT 500",
		},
		{
			name: "column index",
			sort: []SortSpec{{ColumnID: registry.PlayerRushYardsFromPlays, ColumnIndex: intPtr(1), Desc: true}},
			want: "ORDER BY 4 DESC NULLS LAST, pid ASC LIMIT 500",
		},
		{
			name: "matching params",
			sort: []SortSpec{{ColumnID: registry.PlayerRushYardsFromPlays, Params: map[string]any{"year": 2022}}},
			want: "ORDER BY 4 ASC NULLS LAST, pid ASC LIMIT 500",
		},
		{
			name: "prefix column",
			sort: []SortSpec{{ColumnID: registry.PlayerName}},
			want: "ORDER BY 2 ASC NULLS LAST, pid ASC LIMIT 500",
		},
		{
			name: "duplicate ordinal keeps first",
			sort: []SortSpec{
				{ColumnID: registry.PlayerRushYardsFromPlays, Desc: true},
				{ColumnID: registry.PlayerRushYardsFromPlays, ColumnIndex: intPtr(0)},
				{ColumnID: registry.PlayerName},
			},
			want: "ORDER BY 3 DESC NULLS LAST, 2 ASC NULLS LAST, pid ASC LIMIT 500",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.Sort = tt.sort
			res := compileOK(t, req)
			assert.True(t, strings.HasSuffix(res.Query, tt.want), res.Query)
		})
	}
}

func TestCompileSortOnUnselectedColumn(t *testing.T) {
	_, err := New(registry.Default()).Compile(Request{
		Columns: []ColumnRequest{col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023})},
		Sort:    []SortSpec{{ColumnID: registry.PlayerTargetsFromPlays}},
	}, testSeason())
	require.Error(t, err)
	assert.True(t, IsInvalidColumn(err))
}

func TestCompileFilterPlacement(t *testing.T) {
	rushYards := col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023})
	a := aliasFor(t, registry.PlayerRushYardsFromPlays, Params{
		registry.ParamYear:     []int{2023},
		registry.ParamSeasType: "REG",
	})

	t.Run("aggregate filter becomes HAVING and INNER JOIN", func(t *testing.T) {
		res := compileOK(t, Request{
			Columns: []ColumnRequest{rushYards},
			Where:   []FilterSpec{{ColumnID: registry.PlayerRushYardsFromPlays, Operator: ">=", Value: 100}},
		})
		assert.Contains(t, res.Query, "GROUP BY bc_pid, year HAVING SUM(rush_yds) >= 100)")
		assert.Contains(t, res.Query, "INNER JOIN "+a+" ON")
		assert.NotContains(t, res.Query, " WHERE "+a)
	})

	t.Run("null check stays outer and LEFT", func(t *testing.T) {
		res := compileOK(t, Request{
			Columns: []ColumnRequest{rushYards},
			Where:   []FilterSpec{{ColumnID: registry.PlayerRushYardsFromPlays, Operator: "is null"}},
		})
		assert.Contains(t, res.Query, "LEFT JOIN "+a+" ON")
		assert.Contains(t, res.Query, "WHERE "+a+".rush_yards IS NULL ORDER BY")
		assert.NotContains(t, res.Query, "HAVING")
	})

	t.Run("per-game filter is outer and INNER", func(t *testing.T) {
		res := compileOK(t, Request{
			Columns: []ColumnRequest{col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023, "rate_type": "per_game"})},
			Where:   []FilterSpec{{ColumnID: registry.PlayerRushYardsFromPlays, Operator: "BETWEEN", Value: []any{50, 120.5}}},
		})
		assert.NotContains(t, res.Query, "HAVING")
		assert.Regexp(t, `WHERE CAST\(t_[0-9a-f]{32}\.rush_yards AS DECIMAL\) / NULLIF\(.*\) BETWEEN 50 AND 120\.5 ORDER BY`, res.Query)
		assert.Regexp(t, `INNER JOIN t_[0-9a-f]{32} ON`, res.Query)
	})

	t.Run("static filter on unselected column", func(t *testing.T) {
		res := compileOK(t, Request{
			Columns: []ColumnRequest{rushYards},
			Where: []FilterSpec{
				{ColumnID: registry.PlayerPosition, Operator: "NOT IN", Value: []any{"QB", "K"}},
				{ColumnID: registry.PlayerName, Operator: "!=", Value: "Tom O'Brien"},
			},
		})
		assert.Contains(t, res.Query, "WHERE player.pos NOT IN ('QB', 'K') AND player.fname || ' ' || player.lname != 'Tom O''Brien' ORDER BY")
	})

	t.Run("filter by column index", func(t *testing.T) {
		res := compileOK(t, Request{
			Columns: []ColumnRequest{
				rushYards,
				col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2022}),
			},
			Where: []FilterSpec{{ColumnID: registry.PlayerRushYardsFromPlays, Operator: ">", Value: 10, ColumnIndex: intPtr(1)}},
		})
		assert.Contains(t, res.Query, "LEFT JOIN "+a+" ON")
		assert.Equal(t, 1, strings.Count(res.Query, "HAVING SUM(rush_yds) > 10"))
		assert.Contains(t, res.Query, "year IN (2022) GROUP BY bc_pid, year HAVING")
	})
}

func TestCompileSplitYear(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{
			col(registry.PlayerRushYardsFromPlays, map[string]any{"year": []any{2022, 2023}}),
			col(registry.PlayerCareerGames, nil),
		},
		Splits: []string{"year"},
	})
	assert.True(t, strings.HasPrefix(res.Query,
		"WITH player_years AS (SELECT DISTINCT player.pid, y.year FROM player CROSS JOIN (SELECT 2022 AS year UNION ALL SELECT 2023 AS year) AS y)"))
	assert.Contains(t, res.Query, "FROM player_years INNER JOIN player ON player.pid = player_years.pid LEFT JOIN")
	assert.Regexp(t, `LEFT JOIN t_[0-9a-f]{32} ON t_[0-9a-f]{32}\.pid = player\.pid AND t_[0-9a-f]{32}\.year = player_years\.year`, res.Query)
	assert.Regexp(t, `LEFT JOIN player_careerlogs AS t_[0-9a-f]{32} ON t_[0-9a-f]{32}\.pid = player\.pid`, res.Query)
	assert.NotContains(t, res.Query, "INNER JOIN t_")
	assert.True(t, strings.HasSuffix(res.Query, "ORDER BY pid ASC, year ASC LIMIT 500"))
}

func TestCompileSplitYearDefaultsToCurrentSeason(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{{ColumnID: registry.PlayerRushYardsFromPlays}},
		Splits:  []string{"year"},
	})
	assert.Contains(t, res.Query, "CROSS JOIN (SELECT 2024 AS year) AS y")
}

func TestCompileSplitYearWeek(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 2023, "week": []any{1, 2}})},
		Splits:  []string{"year", "week"},
	})
	assert.True(t, strings.HasPrefix(res.Query,
		"WITH player_years_weeks AS (SELECT DISTINCT player.pid, nfl_year_week_timestamp.year, nfl_year_week_timestamp.week "+
			"FROM player CROSS JOIN nfl_year_week_timestamp WHERE nfl_year_week_timestamp.year IN (2023) AND nfl_year_week_timestamp.week IN (1, 2))"))
	assert.Contains(t, res.Query, "GROUP BY bc_pid, year, week)")
	assert.Regexp(t, `\.week = player_years_weeks\.week`, res.Query)
	assert.Contains(t, res.Query, "player_years_weeks.year AS year, player_years_weeks.week AS week FROM player_years_weeks")
	assert.True(t, strings.HasSuffix(res.Query, "ORDER BY pid ASC, year ASC, week ASC LIMIT 500"))
}

func TestCompileCorrelatedOffsetRange(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.PlayerFantasyPointsSeasonLogs, map[string]any{"year": 2023, "year_offset": []any{-2, -1}})},
		Splits:  []string{"year"},
	})
	a := aliasFor(t, registry.PlayerFantasyPointsSeasonLogs, Params{
		registry.ParamYear:       []int{2023},
		registry.ParamSeasType:   "REG",
		registry.ParamYearOffset: Span{Lo: -2, Hi: -1},
	})
	assert.Contains(t, res.Query, fmt.Sprintf(
		"(SELECT SUM(%[1]s.points) FROM %[1]s WHERE %[1]s.pid = player_years.pid AND %[1]s.year BETWEEN player_years.year - 2 AND player_years.year - 1) AS player_fantasy_points_from_seasonlogs_0", a))
	assert.Contains(t, res.Query, "year IN (2021, 2022) GROUP BY pid, year")
	assert.NotContains(t, res.Query, "JOIN "+a)
}

func TestCompileCorrelatedPerGame(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.PlayerFantasyPointsSeasonLogs, map[string]any{
			"year": 2023, "year_offset": []any{-3, -1}, "rate_type": "per_game",
		})},
		Splits: []string{"year"},
	})
	assert.Regexp(t, `CAST\(\(SELECT SUM\(t_[0-9a-f]{32}\.points\) .*\) AS DECIMAL\) / NULLIF\(CAST\(\(SELECT SUM\(g_[0-9a-f]{32}\.games\) FROM g_[0-9a-f]{32} WHERE .*\) AS DECIMAL\), 0\)`, res.Query)
	assert.NotRegexp(t, `JOIN g_`, res.Query)
}

func TestCompileUnionOfRoles(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.PlayerTouchesFromPlays, map[string]any{"year": 2023, "dwn": []any{3, 4}})},
	})
	assert.Contains(t, res.Query, "SELECT bc_pid AS pid, year, 1 AS v FROM nfl_plays WHERE play_type = 'RUSH' AND bc_pid IS NOT NULL AND seas_type = 'REG' AND year IN (2023) AND dwn IN (3, 4) UNION ALL "+
		"SELECT trg_pid AS pid, year, 1 AS v FROM nfl_plays WHERE play_type = 'PASS' AND comp = true AND trg_pid IS NOT NULL")
	assert.Contains(t, res.Query, ") AS role_rows GROUP BY pid, year)")
}

func TestCompileTeamColumn(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.TeamPassRate, map[string]any{"year": 2023})},
		Where:   []FilterSpec{{ColumnID: registry.TeamPassRate, Operator: ">", Value: 0.55}},
	})
	a := aliasFor(t, registry.TeamPassRate, Params{
		registry.ParamYear:     []int{2023},
		registry.ParamSeasType: "REG",
	})
	assert.Contains(t, res.Query, a+"_raw AS (SELECT off AS nfl_team, year, week, esbid, COUNT(*) AS plays, "+
		"SUM(CASE WHEN play_type = 'PASS' THEN 1 ELSE 0 END) AS pass_att FROM nfl_plays "+
		"WHERE off IS NOT NULL AND seas_type = 'REG' AND year IN (2023) GROUP BY off, year, week, esbid)")
	assert.Contains(t, res.Query, "FROM "+a+"_raw GROUP BY nfl_team, year HAVING CAST(SUM(pass_att) AS DECIMAL) / NULLIF(CAST(SUM(plays) AS DECIMAL), 0) > 0.55)")
	assert.Contains(t, res.Query, fmt.Sprintf("INNER JOIN %[1]s ON %[1]s.nfl_team = player.current_nfl_team AND %[1]s.year = 2023", a))
}

func TestCompileProjection(t *testing.T) {
	t.Run("point lookup joins the table", func(t *testing.T) {
		res := compileOK(t, Request{Columns: []ColumnRequest{{ColumnID: registry.PlayerProjectedPoints}}})
		a := aliasFor(t, registry.PlayerProjectedPoints, Params{
			registry.ParamYear:     []int{2024},
			registry.ParamWeek:     []int{0},
			registry.ParamSourceID: 18,
		})
		assert.Contains(t, res.Query, fmt.Sprintf(
			"LEFT JOIN projections_index AS %[1]s ON %[1]s.pid = player.pid AND %[1]s.year = 2024 AND %[1]s.week = 0 AND %[1]s.sourceid = 18", a))
		assert.Empty(t, res.Plan.Query.CTEs)
	})

	t.Run("several weeks aggregate", func(t *testing.T) {
		res := compileOK(t, Request{Columns: []ColumnRequest{col(registry.PlayerProjectedRushYards, map[string]any{"week": []any{1, 2, 3}, "source_id": 7})}})
		assert.Contains(t, res.Query, "SUM(ry) AS ry FROM projections_index WHERE sourceid = 7 AND year IN (2024) AND week IN (1, 2, 3) GROUP BY pid, year")
	})
}

func TestCompileBettingMarket(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.PlayerBettingMarketLine, map[string]any{
			"market_type": "game_rushing_yards",
			"week":        6,
			"as_of":       "2024-10-20",
		})},
	})
	assert.Contains(t, res.Query, "SELECT s.selection_pid AS pid, m.year AS year, MAX(s.selection_metric_line) AS selection_metric_line "+
		"FROM prop_markets_index AS m INNER JOIN prop_market_selections_index AS s ON s.source_market_id = m.source_market_id AND s.time_type = m.time_type "+
		"WHERE m.market_type = 'GAME_RUSHING_YARDS' AND m.source_id = 'DRAFTKINGS' AND m.time_type = 'CLOSE' AND m.year IN (2024) AND m.week IN (6) "+
		"AND m.timestamp <= 1729382400 GROUP BY s.selection_pid, m.year")
}

func TestCompileCareerWindow(t *testing.T) {
	res := compileOK(t, Request{
		Columns: []ColumnRequest{col(registry.PlayerCareerTop12Seasons, map[string]any{"career_year": []any{1, 3}})},
	})
	assert.Contains(t, res.Query, "SELECT pid, SUM(CASE WHEN points_pos_rnk <= 12 THEN 1 ELSE 0 END) AS top_12 FROM player_seasonlogs "+
		"WHERE seas_type = 'REG' AND career_year BETWEEN 1 AND 3 GROUP BY pid")
}

func TestCompileEmptyWeekTokenMatchesNothing(t *testing.T) {
	sc := testSeason()
	sc.Week = 1
	res, err := New(registry.Default()).Compile(Request{
		Columns: []ColumnRequest{col(registry.PlayerRushYardsFromPlays, map[string]any{
			"week": map[string]any{"dynamic_type": "last_n_weeks", "value": 3},
		})},
	}, sc)
	require.NoError(t, err)
	assert.Contains(t, res.Query, "year IN (2024) AND 1 = 0")
}

func TestCompileLimit(t *testing.T) {
	req := Request{Columns: []ColumnRequest{{ColumnID: registry.PlayerName}}}

	res := compileOK(t, req)
	assert.True(t, strings.HasSuffix(res.Query, "LIMIT 500"))

	req.Limit = intPtr(25)
	res = compileOK(t, req)
	assert.True(t, strings.HasSuffix(res.Query, "LIMIT 25"))

	req.Limit = intPtr(1_000_000)
	res = compileOK(t, req)
	assert.True(t, strings.HasSuffix(res.Query, fmt.Sprintf("LIMIT %d", MaxLimit)))

	c := New(registry.Default(), WithLimits(50, 100))
	req.Limit = nil
	res, err := c.Compile(req, testSeason())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Query, "LIMIT 50"))
}

func TestCompileViewIDPassthrough(t *testing.T) {
	res := compileOK(t, Request{Columns: []ColumnRequest{{ColumnID: registry.PlayerName}}, ViewID: "view-42"})
	assert.Equal(t, "view-42", res.ViewID)
	assert.Len(t, res.Hash, 64)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		code ErrorCode
	}{
		{
			name: "unknown column",
			req:  Request{Columns: []ColumnRequest{{ColumnID: "player_shoe_size"}}},
			code: ErrCodeInvalidColumn,
		},
		{
			name: "unknown filter column",
			req: Request{
				Columns: []ColumnRequest{{ColumnID: registry.PlayerName}},
				Where:   []FilterSpec{{ColumnID: "nope", Operator: "=", Value: 1}},
			},
			code: ErrCodeInvalidColumn,
		},
		{
			name: "unknown parameter",
			req:  Request{Columns: []ColumnRequest{col(registry.PlayerName, map[string]any{"year": 2023})}},
			code: ErrCodeInvalidParameter,
		},
		{
			name: "missing required parameter",
			req:  Request{Columns: []ColumnRequest{{ColumnID: registry.PlayerBettingMarketLine}}},
			code: ErrCodeInvalidParameter,
		},
		{
			name: "enum out of range",
			req:  Request{Columns: []ColumnRequest{col(registry.PlayerRushYardsFromPlays, map[string]any{"seas_type": "SPRING"})}},
			code: ErrCodeInvalidParameter,
		},
		{
			name: "year out of bounds",
			req:  Request{Columns: []ColumnRequest{col(registry.PlayerRushYardsFromPlays, map[string]any{"year": 1800})}},
			code: ErrCodeInvalidParameter,
		},
		{
			name: "down and dwn together",
			req:  Request{Columns: []ColumnRequest{col(registry.PlayerRushYardsFromPlays, map[string]any{"down": 3, "dwn": 4})}},
			code: ErrCodeInvalidParameter,
		},
		{
			name: "rate type on uncountable column",
			req:  Request{Columns: []ColumnRequest{col(registry.TeamPassRate, map[string]any{"rate_type": "per_game"})}},
			code: ErrCodeInvalidParameter,
		},
		{
			name: "zero limit",
			req:  Request{Columns: []ColumnRequest{{ColumnID: registry.PlayerName}}, Limit: intPtr(0)},
			code: ErrCodeInvalidParameter,
		},
		{
			name: "unknown operator",
			req: Request{
				Columns: []ColumnRequest{{ColumnID: registry.PlayerName}},
				Where:   []FilterSpec{{ColumnID: registry.PlayerName, Operator: "LIKE", Value: "A%"}},
			},
			code: ErrCodeInvalidFilter,
		},
		{
			name: "IN without list",
			req: Request{
				Columns: []ColumnRequest{{ColumnID: registry.PlayerName}},
				Where:   []FilterSpec{{ColumnID: registry.PlayerPosition, Operator: "IN", Value: "WR"}},
			},
			code: ErrCodeInvalidFilter,
		},
		{
			name: "empty IN list",
			req: Request{
				Columns: []ColumnRequest{{ColumnID: registry.PlayerName}},
				Where:   []FilterSpec{{ColumnID: registry.PlayerPosition, Operator: "IN", Value: []any{}}},
			},
			code: ErrCodeInvalidFilter,
		},
		{
			name: "text value on numeric column",
			req: Request{
				Columns: []ColumnRequest{{ColumnID: registry.PlayerWeight}},
				Where:   []FilterSpec{{ColumnID: registry.PlayerWeight, Operator: ">", Value: "heavy"}},
			},
			code: ErrCodeInvalidFilter,
		},
		{
			name: "inverted BETWEEN",
			req: Request{
				Columns: []ColumnRequest{{ColumnID: registry.PlayerWeight}},
				Where:   []FilterSpec{{ColumnID: registry.PlayerWeight, Operator: "BETWEEN", Value: map[string]any{"min": 250, "max": 200}}},
			},
			code: ErrCodeInvalidFilter,
		},
		{
			name: "filter column index out of range",
			req: Request{
				Columns: []ColumnRequest{{ColumnID: registry.PlayerWeight}},
				Where:   []FilterSpec{{ColumnID: registry.PlayerWeight, Operator: ">", Value: 200, ColumnIndex: intPtr(2)}},
			},
			code: ErrCodeInvalidFilter,
		},
		{
			name: "unknown split",
			req:  Request{Columns: []ColumnRequest{{ColumnID: registry.PlayerName}}, Splits: []string{"week"}},
			code: ErrCodeUnsupportedSplit,
		},
		{
			name: "season column under week split",
			req: Request{
				Columns: []ColumnRequest{{ColumnID: registry.PlayerFantasyPointsSeasonLogs}},
				Splits:  []string{"year", "week"},
			},
			code: ErrCodeUnsupportedSplit,
		},
		{
			name: "year offset under week split",
			req: Request{
				Columns: []ColumnRequest{col(registry.PlayerGamesPlayed, map[string]any{"year_offset": -1})},
				Splits:  []string{"year", "week"},
			},
			code: ErrCodeUnsupportedSplit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(registry.Default()).Compile(tt.req, testSeason())
			require.Error(t, err)
			assert.Nil(t, res)
			code, ok := CodeOf(err)
			require.True(t, ok, "expected a CompileError, got %v", err)
			assert.Equal(t, tt.code, code)
		})
	}
}

// Every catalog column must compile on its own, unsplit and split by year.
func TestCompileEveryColumn(t *testing.T) {
	reg := registry.Default()
	c := New(reg)
	for _, def := range reg.List() {
		t.Run(string(def.ID), func(t *testing.T) {
			params := map[string]any{}
			if def.Accepts(registry.ParamMarketType) {
				params["market_type"] = "GAME_PASSING_YARDS"
			}
			req := Request{Columns: []ColumnRequest{{ColumnID: def.ID, Params: params}}}
			res, err := c.Compile(req, testSeason())
			require.NoError(t, err)
			assert.NotEmpty(t, res.Query)

			req.Splits = []string{"year"}
			_, err = c.Compile(req, testSeason())
			require.NoError(t, err)

			if def.Countable {
				params["rate_type"] = "per_game"
				_, err = c.Compile(req, testSeason())
				require.NoError(t, err)
			}
		})
	}
}
