// Package harness runs data-view compile scenarios.
//
// A scenario is a YAML file naming a season context, an optional set of
// fixture statements, one compile request and a list of assertions:
//
//	name: rush_yards_by_year
//	season: {year: 2024, week: 6, phase: regular_season}
//	fixtures:
//	  - INSERT INTO player (pid, fname, lname) VALUES ('P1', 'Ada', 'Runner')
//	request:
//	  columns:
//	    - column_id: player_rush_yards_from_plays
//	      params: {year: [2022, 2023]}
//	  splits: [year]
//	assertions:
//	  - type: sql_contains
//	    text: player_years
//	  - type: row_count
//	    value: 2
//
// Each scenario compiles against the built-in registry. When it has
// fixtures or result assertions, the query also runs against a fresh
// in-memory SQLite database carrying the reference schema, so row
// assertions check real results rather than SQL text.
package harness
