package compiler

import (
	"github.com/roach88/dataview/internal/queryir"
)

// team builds the two-step team aggregate: a raw CTE with one row per
// team-game, then a flatten CTE with one row per team at the instance grain.
// Players pick up their team's value through current_nfl_team.
func (b *builder) team(inst *instance) {
	def := inst.def
	raw := inst.alias + "_raw"

	rawCols := []queryir.Column{
		queryir.Col("off", "nfl_team"),
		queryir.Col("year", ""),
		queryir.Col("week", ""),
		queryir.Col("esbid", ""),
	}
	for _, f := range def.TeamFields {
		rawCols = append(rawCols, queryir.Col(f.Expr, f.Name))
	}
	where := []queryir.Predicate{queryir.IsNull{Left: "off", Negate: true}}
	where = append(where, commonPredicates(inst, "")...)
	b.ctes = append(b.ctes, queryir.CTE{Name: raw, Body: queryir.Select{
		Columns: rawCols,
		From:    queryir.Table{Name: def.Table},
		Where:   queryir.Conj(where...),
		GroupBy: []string{"off", "year", "week", "esbid"},
	}})

	cols := []queryir.Column{queryir.Col("nfl_team", "")}
	group := []string{"nfl_team"}
	if inst.grainYear {
		cols = append(cols, queryir.Col("year", ""))
		group = append(group, "year")
	}
	if inst.grainWeek {
		cols = append(cols, queryir.Col("week", ""))
		group = append(group, "week")
	}
	inst.aggExpr = def.Flatten
	if inst.perGame {
		inst.aggExpr = perGame(def.Flatten, "COUNT(*)")
	}
	cols = append(cols, queryir.Col(inst.aggExpr, def.Field))
	b.ctes = append(b.ctes, queryir.CTE{Name: inst.alias, Body: queryir.Select{
		Columns: cols,
		From:    queryir.Table{Name: raw},
		GroupBy: group,
		Having:  havingClause(inst),
	}})

	inst.expr = inst.alias + "." + def.Field
	b.join(inst)
}
