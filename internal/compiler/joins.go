package compiler

import (
	"github.com/roach88/dataview/internal/queryir"
	"github.com/roach88/dataview/internal/registry"
)

// baseCTE returns the CTE enumerating output rows under a split, or false
// when rows come straight from player.
func baseCTE(sp splitSpec) (queryir.CTE, bool) {
	switch sp.kind {
	case splitYear:
		years := make([]queryir.Select, len(sp.years))
		for i, y := range sp.years {
			years[i] = queryir.Select{Columns: []queryir.Column{queryir.Col(string(queryir.Int(y)), "year")}}
		}
		var body queryir.Relation = years[0]
		if len(years) > 1 {
			body = queryir.Union{Selects: years}
		}
		return queryir.CTE{Name: sp.base(), Body: queryir.Select{
			Distinct: true,
			Columns:  []queryir.Column{queryir.Col("player.pid", ""), queryir.Col("y.year", "")},
			From:     queryir.Table{Name: "player"},
			Joins: []queryir.Join{{
				Kind:  queryir.JoinCross,
				Table: queryir.Subquery{Body: body, Alias: "y"},
			}},
		}}, true

	case splitYearWeek:
		const cal = "nfl_year_week_timestamp"
		return queryir.CTE{Name: sp.base(), Body: queryir.Select{
			Distinct: true,
			Columns: []queryir.Column{
				queryir.Col("player.pid", ""),
				queryir.Col(cal+".year", ""),
				queryir.Col(cal+".week", ""),
			},
			From:  queryir.Table{Name: "player"},
			Joins: []queryir.Join{{Kind: queryir.JoinCross, Table: queryir.Table{Name: cal}}},
			Where: queryir.Conj(yearWeekPredicates(cal+".", sp.years, sp.weeks)...),
		}}, true
	}
	return queryir.CTE{}, false
}

// mainFrom is the FROM of the main select plus the join bringing player in
// when the base is a split relation.
func mainFrom(sp splitSpec) (queryir.TableRef, []queryir.Join) {
	if !sp.hasYear() {
		return queryir.Table{Name: "player"}, nil
	}
	base := sp.base()
	return queryir.Table{Name: base}, []queryir.Join{{
		Kind:  queryir.JoinInner,
		Table: queryir.Table{Name: "player"},
		On:    queryir.Compare{Left: "player.pid", Op: "=", Right: queryir.Ref(base + ".pid")},
	}}
}

func joinKind(inst *instance) queryir.JoinKind {
	if inst.inner {
		return queryir.JoinInner
	}
	return queryir.JoinLeft
}

// join attaches an instance's CTE on its grain keys.
func (b *builder) join(inst *instance) {
	if !inst.joined() {
		return
	}
	var on []queryir.Predicate
	if inst.def.Source == registry.SourceTeamAggregate {
		on = append(on, queryir.Compare{Left: inst.alias + ".nfl_team", Op: "=", Right: queryir.Ref("player.current_nfl_team")})
	} else {
		on = append(on, queryir.Compare{Left: inst.alias + ".pid", Op: "=", Right: queryir.Ref("player.pid")})
	}
	if inst.yearJoin != nil {
		on = append(on, queryir.Compare{Left: inst.alias + ".year", Op: "=", Right: inst.yearJoin})
	}
	if inst.grainWeek {
		on = append(on, queryir.Compare{Left: inst.alias + ".week", Op: "=", Right: queryir.Ref(b.sp.base() + ".week")})
	}
	b.joins = append(b.joins, queryir.Join{
		Kind:  joinKind(inst),
		Table: queryir.Table{Name: inst.alias},
		On:    queryir.Conj(on...),
	})
}
