package compiler

import (
	"fmt"

	"github.com/roach88/dataview/internal/queryir"
	"github.com/roach88/dataview/internal/registry"
)

// roleWhere filters nfl_plays down to the rows where the role's player
// column is set.
func roleWhere(inst *instance, role registry.PlayRole) queryir.Predicate {
	preds := rawPredicates(role.Where)
	preds = append(preds, queryir.IsNull{Left: role.PidColumn, Negate: true})
	preds = append(preds, commonPredicates(inst, "")...)
	return queryir.Conj(preds...)
}

// playsSingle aggregates one role straight off nfl_plays.
func (b *builder) playsSingle(inst *instance) queryir.Select {
	def := inst.def
	role := def.Roles[0]
	cols, group := grainColumns(inst, role.PidColumn, "")
	inst.aggExpr = fmt.Sprintf("%s(%s)", def.Agg, role.Value)
	cols = append(cols, queryir.Col(inst.aggExpr, def.Field))
	return queryir.Select{
		Columns: cols,
		From:    queryir.Table{Name: def.Table},
		Where:   roleWhere(inst, role),
		GroupBy: group,
	}
}

// playsUnion stacks one branch per role, each projecting the role's player
// column as pid, and aggregates the stacked rows.
func (b *builder) playsUnion(inst *instance) queryir.Select {
	def := inst.def
	branches := make([]queryir.Select, 0, len(def.Roles))
	for _, role := range def.Roles {
		cols := []queryir.Column{queryir.Col(role.PidColumn, "pid")}
		if inst.grainYear {
			cols = append(cols, queryir.Col("year", ""))
		}
		if inst.grainWeek {
			cols = append(cols, queryir.Col("week", ""))
		}
		cols = append(cols, queryir.Col(role.Value, "v"))
		branches = append(branches, queryir.Select{
			Columns: cols,
			From:    queryir.Table{Name: def.Table},
			Where:   roleWhere(inst, role),
		})
	}

	cols, group := grainColumns(inst, "pid", "")
	inst.aggExpr = def.Agg + "(v)"
	cols = append(cols, queryir.Col(inst.aggExpr, def.Field))
	return queryir.Select{
		Columns: cols,
		From:    queryir.Subquery{Body: queryir.Union{Selects: branches}, Alias: "role_rows"},
		GroupBy: group,
	}
}
