package registry

import "github.com/roach88/dataview/internal/season"

// Column identifiers.
const (
	// static attributes
	PlayerName          ColumnID = "player_name"
	PlayerPosition      ColumnID = "player_position"
	PlayerNFLTeam       ColumnID = "player_nfl_team"
	PlayerHeight        ColumnID = "player_height"
	PlayerWeight        ColumnID = "player_weight"
	PlayerDraftYear     ColumnID = "player_draft_year"
	PlayerDraftRound    ColumnID = "player_draft_round"
	PlayerDraftPosition ColumnID = "player_draft_position"
	PlayerFortyYardDash ColumnID = "player_forty_yard_dash"
	PlayerBenchPress    ColumnID = "player_bench_press"
	PlayerVerticalJump  ColumnID = "player_vertical_jump"
	PlayerBroadJump     ColumnID = "player_broad_jump"

	// play events
	PlayerRushAttemptsFromPlays   ColumnID = "player_rush_attempts_from_plays"
	PlayerRushYardsFromPlays      ColumnID = "player_rush_yards_from_plays"
	PlayerTargetsFromPlays        ColumnID = "player_targets_from_plays"
	PlayerReceivingYardsFromPlays ColumnID = "player_receiving_yards_from_plays"
	PlayerPassYardsFromPlays      ColumnID = "player_pass_yards_from_plays"
	PlayerFumblesFromPlays        ColumnID = "player_fumbles_from_plays"
	PlayerTouchesFromPlays        ColumnID = "player_touches_from_plays"
	PlayerScrimmageYardsFromPlays ColumnID = "player_scrimmage_yards_from_plays"
	PlayerTurnoversFromPlays      ColumnID = "player_turnovers_from_plays"

	// season and game logs
	PlayerGamesPlayed             ColumnID = "player_games_played"
	PlayerFantasyPointsSeasonLogs ColumnID = "player_fantasy_points_from_seasonlogs"
	PlayerPositionRankSeasonLogs  ColumnID = "player_fantasy_position_rank_from_seasonlogs"

	// career logs
	PlayerCareerFantasyPoints ColumnID = "player_career_fantasy_points"
	PlayerCareerGames         ColumnID = "player_career_games"
	PlayerCareerTop12Seasons  ColumnID = "player_career_top_12_seasons"

	// projections
	PlayerProjectedPoints         ColumnID = "player_projected_points"
	PlayerProjectedRushYards      ColumnID = "player_projected_rush_yards"
	PlayerProjectedReceivingYards ColumnID = "player_projected_receiving_yards"
	PlayerProjectedPassYards      ColumnID = "player_projected_pass_yards"

	// betting markets
	PlayerBettingMarketLine ColumnID = "player_betting_market_line"
	PlayerBettingMarketOdds ColumnID = "player_betting_market_american_odds"

	// team aggregates
	TeamOffensivePlays ColumnID = "team_offensive_plays"
	TeamPassAttempts   ColumnID = "team_pass_attempts"
	TeamRushAttempts   ColumnID = "team_rush_attempts"
	TeamPassRate       ColumnID = "team_pass_rate"
)

var (
	seasonTypes = []string{"REG", "POST", "PRE"}
	marketTypes = []string{
		"GAME_PASSING_YARDS",
		"GAME_RUSHING_YARDS",
		"GAME_RECEIVING_YARDS",
		"GAME_RECEPTIONS",
		"GAME_ANYTIME_TOUCHDOWN",
		"SEASON_PASSING_YARDS",
		"SEASON_RUSHING_YARDS",
		"SEASON_RECEIVING_YARDS",
	}
	sportsbooks = []string{"DRAFTKINGS", "FANDUEL", "BETMGM", "CAESARS", "PINNACLE"}
)

func yearParam() ParamSpec {
	return ParamSpec{Kind: KindYears, Default: season.TokenCurrentYear, Min: 1920, Max: 2100}
}

func weekParam() ParamSpec {
	return ParamSpec{Kind: KindWeeks, Min: 0, Max: 22}
}

func seasTypeParam() ParamSpec {
	return ParamSpec{Kind: KindEnum, Enum: seasonTypes, Default: "REG"}
}

func rateParam() ParamSpec {
	return ParamSpec{Kind: KindEnum, Enum: []string{RatePerGame}}
}

func offsetParam() ParamSpec {
	return ParamSpec{Kind: KindOffset, Min: -30, Max: 30}
}

func playParams() map[ParamName]ParamSpec {
	return map[ParamName]ParamSpec{
		ParamYear:       yearParam(),
		ParamWeek:       weekParam(),
		ParamSeasType:   seasTypeParam(),
		ParamDown:       {Kind: KindIntSet, Min: 1, Max: 4},
		ParamMotion:     {Kind: KindBool},
		ParamPlayAction: {Kind: KindBool},
		ParamRateType:   rateParam(),
		ParamYearOffset: offsetParam(),
	}
}

func static(id ColumnID, expr string, kind ValueKind, desc string) Definition {
	return Definition{
		ID:          id,
		Description: desc,
		Source:      SourceStaticAttribute,
		JoinKeys:    []JoinKey{KeyPid},
		Volatility:  VolatilityStatic,
		Kind:        kind,
		Table:       "player",
		Expr:        expr,
	}
}

func play(id ColumnID, field, desc string, roles ...PlayRole) Definition {
	return Definition{
		ID:          id,
		Description: desc,
		Source:      SourcePlayEvents,
		Params:      playParams(),
		JoinKeys:    []JoinKey{KeyPid, KeyYear, KeyWeek},
		Volatility:  VolatilityInSeasonStats,
		Kind:        KindNumber,
		Table:       "nfl_plays",
		Field:       field,
		Agg:         "SUM",
		Roles:       roles,
		Countable:   true,
	}
}

func career(id ColumnID, field, careerField, desc string) Definition {
	return Definition{
		ID:          id,
		Description: desc,
		Source:      SourceCareerLog,
		Params: map[ParamName]ParamSpec{
			ParamCareerYear: {Kind: KindRange, Min: 1, Max: 25},
		},
		JoinKeys:    []JoinKey{KeyPid},
		Volatility:  VolatilitySeasonAggregate,
		Kind:        KindNumber,
		Table:       "player_careerlogs",
		Field:       field,
		Agg:         "SUM",
		CareerTable: "player_seasonlogs",
		CareerField: careerField,
	}
}

func projection(id ColumnID, field, desc string) Definition {
	return Definition{
		ID:          id,
		Description: desc,
		Source:      SourceProjection,
		Params: map[ParamName]ParamSpec{
			ParamYear:       yearParam(),
			ParamWeek:       {Kind: KindWeeks, Min: 0, Max: 22, Default: []int{0}},
			ParamSourceID:   {Kind: KindInt, Min: 1, Max: 100, Default: 18},
			ParamYearOffset: offsetParam(),
		},
		JoinKeys:   []JoinKey{KeyPid, KeyYear, KeyWeek},
		Volatility: VolatilityProjection,
		Kind:       KindNumber,
		Table:      "projections_index",
		Field:      field,
		Agg:        "SUM",
	}
}

func market(id ColumnID, field, desc string) Definition {
	return Definition{
		ID:          id,
		Description: desc,
		Source:      SourceBettingMarket,
		Params: map[ParamName]ParamSpec{
			ParamMarketType: {Kind: KindEnum, Enum: marketTypes, Required: true},
			ParamYear:       yearParam(),
			ParamWeek:       weekParam(),
			ParamSourceID:   {Kind: KindEnum, Enum: sportsbooks, Default: "DRAFTKINGS"},
			ParamTimeType:   {Kind: KindEnum, Enum: []string{"OPEN", "CLOSE"}, Default: "CLOSE"},
			ParamAsOf:       {Kind: KindTimestamp},
		},
		JoinKeys:   []JoinKey{KeyPid, KeyYear, KeyWeek},
		Volatility: VolatilityLiveMarket,
		Kind:       KindNumber,
		Table:      "prop_markets_index",
		Field:      field,
		Agg:        "MAX",
	}
}

func team(id ColumnID, field, flatten string, countable bool, desc string, fields ...TeamField) Definition {
	params := map[ParamName]ParamSpec{
		ParamYear:     yearParam(),
		ParamWeek:     weekParam(),
		ParamSeasType: seasTypeParam(),
	}
	if countable {
		params[ParamRateType] = rateParam()
	}
	return Definition{
		ID:          id,
		Description: desc,
		Source:      SourceTeamAggregate,
		Params:      params,
		JoinKeys:    []JoinKey{KeyPid, KeyYear, KeyWeek},
		Volatility:  VolatilityInSeasonStats,
		Kind:        KindNumber,
		Table:       "nfl_plays",
		Field:       field,
		TeamFields:  fields,
		Flatten:     flatten,
		Countable:   countable,
	}
}

func ballCarrier(value string) PlayRole {
	return PlayRole{PidColumn: "bc_pid", Value: value, Where: []string{"play_type = 'RUSH'"}}
}

func target(value string, where ...string) PlayRole {
	return PlayRole{PidColumn: "trg_pid", Value: value, Where: append([]string{"play_type = 'PASS'"}, where...)}
}

func passer(value string, where ...string) PlayRole {
	return PlayRole{PidColumn: "psr_pid", Value: value, Where: append([]string{"play_type = 'PASS'"}, where...)}
}

var fumbler = PlayRole{PidColumn: "player_fuml_pid", Value: "1"}

var teamPlays = TeamField{Name: "plays", Expr: "COUNT(*)"}

// catalog is the full list of column definitions.
func catalog() []Definition {
	return []Definition{
		static(PlayerName, "player.fname || ' ' || player.lname", KindText, "Player full name"),
		static(PlayerPosition, "player.pos", KindText, "Primary position"),
		static(PlayerNFLTeam, "player.current_nfl_team", KindText, "Current NFL team"),
		static(PlayerHeight, "player.height", KindNumber, "Height in inches"),
		static(PlayerWeight, "player.weight", KindNumber, "Weight in pounds"),
		static(PlayerDraftYear, "player.nfl_draft_year", KindNumber, "NFL draft year"),
		static(PlayerDraftRound, "player.round", KindNumber, "NFL draft round"),
		static(PlayerDraftPosition, "player.dpos", KindNumber, "Overall draft pick"),
		static(PlayerFortyYardDash, "player.forty", KindNumber, "Combine 40-yard dash"),
		static(PlayerBenchPress, "player.bench", KindNumber, "Combine bench press reps"),
		static(PlayerVerticalJump, "player.vertical", KindNumber, "Combine vertical jump"),
		static(PlayerBroadJump, "player.broad", KindNumber, "Combine broad jump"),

		play(PlayerRushAttemptsFromPlays, "rush_attempts", "Rush attempts",
			ballCarrier("1")),
		play(PlayerRushYardsFromPlays, "rush_yards", "Rushing yards",
			ballCarrier("rush_yds")),
		play(PlayerTargetsFromPlays, "targets", "Pass targets",
			target("1")),
		play(PlayerReceivingYardsFromPlays, "receiving_yards", "Receiving yards",
			target("recv_yds", "comp = true")),
		play(PlayerPassYardsFromPlays, "pass_yards", "Passing yards",
			passer("pass_yds", "comp = true")),
		play(PlayerFumblesFromPlays, "fumbles", "Fumbles",
			fumbler),
		play(PlayerTouchesFromPlays, "touches", "Rush attempts plus receptions",
			ballCarrier("1"), target("1", "comp = true")),
		play(PlayerScrimmageYardsFromPlays, "scrimmage_yards", "Rushing plus receiving yards",
			ballCarrier("rush_yds"), target("recv_yds", "comp = true")),
		play(PlayerTurnoversFromPlays, "turnovers", "Interceptions thrown plus fumbles",
			passer("1", "intercepted = true"), fumbler),

		{
			ID:          PlayerGamesPlayed,
			Description: "Games played",
			Source:      SourceSeasonLog,
			Params: map[ParamName]ParamSpec{
				ParamYear:       yearParam(),
				ParamWeek:       weekParam(),
				ParamSeasType:   seasTypeParam(),
				ParamYearOffset: offsetParam(),
			},
			JoinKeys:   []JoinKey{KeyPid, KeyYear, KeyWeek},
			Volatility: VolatilityInSeasonStats,
			Kind:       KindNumber,
			Table:      "player_gamelogs",
			Field:      "games_played",
			Agg:        "SUM",
			Expr:       "1",
			Where:      []string{"active = true"},
		},
		{
			ID:          PlayerFantasyPointsSeasonLogs,
			Description: "Fantasy points from season logs",
			Source:      SourceSeasonLog,
			Params: map[ParamName]ParamSpec{
				ParamYear:       yearParam(),
				ParamSeasType:   seasTypeParam(),
				ParamRateType:   rateParam(),
				ParamYearOffset: offsetParam(),
			},
			JoinKeys:   []JoinKey{KeyPid, KeyYear},
			Volatility: VolatilitySeasonAggregate,
			Kind:       KindNumber,
			Table:      "player_seasonlogs",
			Field:      "points",
			Agg:        "SUM",
			Expr:       "points",
			Countable:  true,
		},
		{
			ID:          PlayerPositionRankSeasonLogs,
			Description: "Best fantasy position rank from season logs",
			Source:      SourceSeasonLog,
			Params: map[ParamName]ParamSpec{
				ParamYear:       yearParam(),
				ParamSeasType:   seasTypeParam(),
				ParamYearOffset: offsetParam(),
			},
			JoinKeys:   []JoinKey{KeyPid, KeyYear},
			Volatility: VolatilitySeasonAggregate,
			Kind:       KindNumber,
			Table:      "player_seasonlogs",
			Field:      "points_pos_rnk",
			Agg:        "MIN",
			Expr:       "points_pos_rnk",
		},

		career(PlayerCareerFantasyPoints, "points", "points", "Career fantasy points"),
		career(PlayerCareerGames, "games", "games", "Career games played"),
		career(PlayerCareerTop12Seasons, "top_12", "CASE WHEN points_pos_rnk <= 12 THEN 1 ELSE 0 END", "Career top-12 positional finishes"),

		projection(PlayerProjectedPoints, "total", "Projected fantasy points"),
		projection(PlayerProjectedRushYards, "ry", "Projected rushing yards"),
		projection(PlayerProjectedReceivingYards, "recy", "Projected receiving yards"),
		projection(PlayerProjectedPassYards, "py", "Projected passing yards"),

		market(PlayerBettingMarketLine, "selection_metric_line", "Player prop line"),
		market(PlayerBettingMarketOdds, "odds_american", "Player prop American odds"),

		team(TeamOffensivePlays, "team_plays", "SUM(plays)", true, "Team offensive plays",
			teamPlays),
		team(TeamPassAttempts, "team_pass_attempts", "SUM(pass_att)", true, "Team pass attempts",
			TeamField{Name: "pass_att", Expr: "SUM(CASE WHEN play_type = 'PASS' THEN 1 ELSE 0 END)"}),
		team(TeamRushAttempts, "team_rush_attempts", "SUM(rush_att)", true, "Team rush attempts",
			TeamField{Name: "rush_att", Expr: "SUM(CASE WHEN play_type = 'RUSH' THEN 1 ELSE 0 END)"}),
		team(TeamPassRate, "team_pass_rate", "CAST(SUM(pass_att) AS DECIMAL) / NULLIF(CAST(SUM(plays) AS DECIMAL), 0)", false, "Team pass rate",
			teamPlays,
			TeamField{Name: "pass_att", Expr: "SUM(CASE WHEN play_type = 'PASS' THEN 1 ELSE 0 END)"}),
	}
}
