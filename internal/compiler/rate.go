package compiler

import (
	"fmt"

	"github.com/roach88/dataview/internal/ir"
	"github.com/roach88/dataview/internal/queryir"
	"github.com/roach88/dataview/internal/registry"
)

// gamesScope identifies one shared games-played denominator. Every per-game
// instance with the same scope reuses a single CTE, whichever stat asked
// for it.
type gamesScope struct {
	alias     string
	years     []int
	weeks     []int
	seasType  string
	grainYear bool
	grainWeek bool
	offset    Span
	yearJoin  queryir.Operand
	joined    bool
	attached  bool
}

func newGamesScope(inst *instance) (*gamesScope, error) {
	g := &gamesScope{
		years:     inst.years,
		weeks:     inst.weeks,
		seasType:  inst.params.String(registry.ParamSeasType),
		grainYear: inst.grainYear,
		grainWeek: inst.grainWeek,
		offset:    inst.offset,
		yearJoin:  inst.yearJoin,
		joined:    !inst.correlated,
	}

	grain := []any{"pid"}
	if g.grainYear {
		grain = append(grain, "year")
	}
	if g.grainWeek {
		grain = append(grain, "week")
	}
	key := map[string]any{"grain": grain}
	if g.years != nil {
		key["years"] = g.years
	}
	if g.weeks != nil {
		key["weeks"] = g.weeks
	}
	if g.seasType != "" {
		key["seas_type"] = g.seasType
	}
	switch {
	case g.offset == (Span{}):
	case g.offset.Single():
		key["year_offset"] = g.offset.Lo
	default:
		key["year_offset"] = []int{g.offset.Lo, g.offset.Hi}
	}

	alias, err := ir.Alias("g_", ir.DomainGames, key)
	if err != nil {
		return nil, err
	}
	g.alias = alias
	return g, nil
}

// cte builds the games-played CTE for the scope.
func (g *gamesScope) cte() queryir.CTE {
	cols := []queryir.Column{queryir.Col("pid", "")}
	group := []string{"pid"}
	if g.grainYear {
		cols = append(cols, queryir.Col("year", ""))
		group = append(group, "year")
	}
	if g.grainWeek {
		cols = append(cols, queryir.Col("week", ""))
		group = append(group, "week")
	}
	cols = append(cols, queryir.Col("COUNT(*)", "games"))

	where := []queryir.Predicate{queryir.Raw{SQL: "active = true"}}
	if g.seasType != "" {
		where = append(where, queryir.Compare{Left: "seas_type", Op: "=", Right: queryir.String(g.seasType)})
	}
	where = append(where, yearWeekPredicates("", g.years, g.weeks)...)

	return queryir.CTE{
		Name: g.alias,
		Body: queryir.Select{
			Columns: cols,
			From:    queryir.Table{Name: "player_gamelogs"},
			Where:   queryir.Conj(where...),
			GroupBy: group,
		},
	}
}

// join attaches the scope's CTE on the same keys as its numerators.
func (g *gamesScope) join(sp splitSpec) queryir.Join {
	on := []queryir.Predicate{
		queryir.Compare{Left: g.alias + ".pid", Op: "=", Right: queryir.Ref("player.pid")},
	}
	if g.yearJoin != nil {
		on = append(on, queryir.Compare{Left: g.alias + ".year", Op: "=", Right: g.yearJoin})
	}
	if g.grainWeek {
		on = append(on, queryir.Compare{Left: g.alias + ".week", Op: "=", Right: queryir.Ref(sp.base() + ".week")})
	}
	return queryir.Join{Kind: queryir.JoinLeft, Table: queryir.Table{Name: g.alias}, On: queryir.Conj(on...)}
}

// perGame divides numerator by denominator without ever dividing by zero.
func perGame(numerator, denominator string) string {
	return fmt.Sprintf("CAST(%s AS DECIMAL) / NULLIF(CAST(%s AS DECIMAL), 0)", numerator, denominator)
}

// correlatedWindow aggregates field of table over the year_offset window of
// the current output row.
func correlatedWindow(sp splitSpec, table, agg, field string, off Span) string {
	base := sp.base()
	return fmt.Sprintf("(SELECT %s(%s.%s) FROM %s WHERE %s.pid = %s.pid AND %s.year BETWEEN %s AND %s)",
		agg, table, field, table,
		table, base,
		table, yearShift(base+".year", off.Lo), yearShift(base+".year", off.Hi))
}
