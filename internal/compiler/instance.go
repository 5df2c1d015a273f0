package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/dataview/internal/ir"
	"github.com/roach88/dataview/internal/queryir"
	"github.com/roach88/dataview/internal/registry"
)

// shape is how an instance is compiled into the query.
type shape int

const (
	// shapeInline selects an expression straight off the player table.
	shapeInline shape = iota
	// shapeDirect joins the source table itself on its natural key.
	shapeDirect
	// shapeAggregate is one grouped CTE over the source table.
	shapeAggregate
	// shapeUnion aggregates a UNION ALL of per-role row sources.
	shapeUnion
	// shapeTeam is a per team-game CTE flattened to one row per team.
	shapeTeam
)

func (s shape) String() string {
	switch s {
	case shapeInline:
		return "inline"
	case shapeDirect:
		return "direct"
	case shapeAggregate:
		return "aggregate"
	case shapeUnion:
		return "union"
	case shapeTeam:
		return "team"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// instance is one deduplicated (column_id, params) unit.
type instance struct {
	alias  string
	def    *registry.Definition
	params Params

	shape shape
	// correlated instances are not joined; their value is a correlated
	// subquery summing a year_offset window per output row.
	correlated bool
	perGame    bool

	// years are the effective source years with year_offset applied; nil
	// when the column has no year parameter.
	years []int
	// weeks is nil when unfiltered. A non-nil empty slice matches nothing.
	weeks  []int
	offset Span

	grainYear bool
	grainWeek bool
	// yearJoin is the right-hand side of the year join condition, nil when
	// the instance is not joined on year.
	yearJoin queryir.Operand

	having  []filterClause
	inner   bool
	games   *gamesScope
	expr    string
	aggExpr string
}

// arena is the request-scoped instance table: instances in first-seen order
// plus an index from alias to position.
type arena struct {
	items []*instance
	index map[string]int
}

func newArena() *arena {
	return &arena{index: make(map[string]int)}
}

// intern returns the position of the instance for (def, params), creating it
// on first sight.
func (a *arena) intern(def *registry.Definition, params Params) (int, error) {
	alias, err := instanceAlias(def.ID, params)
	if err != nil {
		return 0, err
	}
	if i, ok := a.index[alias]; ok {
		return i, nil
	}
	a.items = append(a.items, &instance{alias: alias, def: def, params: params})
	a.index[alias] = len(a.items) - 1
	return len(a.items) - 1, nil
}

func instanceAlias(id registry.ColumnID, params Params) (string, error) {
	return ir.Alias("t_", ir.DomainInstance, map[string]any{
		"column_id": string(id),
		"params":    params.canonical(),
	})
}

// occurrence is one SELECT-list entry referencing an instance.
type occurrence struct {
	columnID registry.ColumnID
	inst     int
	prefix   bool
	// n is the 0-based per-column_id counter; -1 for prefix columns.
	n int
}

func (o occurrence) outputName() string {
	if o.prefix {
		return string(o.columnID)
	}
	return fmt.Sprintf("%s_%d", o.columnID, o.n)
}

// analyze decides shape, grain and year handling for an instance.
func (inst *instance) analyze(sp splitSpec) error {
	def := inst.def
	p := inst.params

	inst.offset, _ = p.Span(registry.ParamYearOffset)
	if ys, ok := p.Ints(registry.ParamYear); ok {
		inst.years = shiftYears(ys, inst.offset)
	}
	if ws, ok := p.Ints(registry.ParamWeek); ok {
		inst.weeks = ws
	}
	inst.perGame = p.String(registry.ParamRateType) == registry.RatePerGame

	switch def.Source {
	case registry.SourceStaticAttribute:
		inst.shape = shapeInline
		return nil
	case registry.SourceCareerLog:
		if _, ok := p.Span(registry.ParamCareerYear); ok {
			inst.shape = shapeAggregate
		} else {
			inst.shape = shapeDirect
		}
		return nil
	case registry.SourceProjection:
		if !sp.hasYear() && len(inst.years) == 1 && len(inst.weeks) == 1 && inst.offset == (Span{}) {
			inst.shape = shapeDirect
			return nil
		}
		inst.shape = shapeAggregate
	case registry.SourcePlayEvents:
		if len(def.Roles) > 1 {
			inst.shape = shapeUnion
		} else {
			inst.shape = shapeAggregate
		}
	case registry.SourceSeasonLog, registry.SourceBettingMarket:
		inst.shape = shapeAggregate
	case registry.SourceTeamAggregate:
		inst.shape = shapeTeam
	default:
		return fmt.Errorf("column %s: unhandled source %q", def.ID, def.Source)
	}

	hasYear := def.HasKey(registry.KeyYear) && inst.years != nil
	switch {
	case hasYear && sp.hasYear():
		inst.grainYear = true
		if inst.offset.Single() {
			inst.yearJoin = queryir.Ref(yearShift(sp.base()+".year", inst.offset.Lo))
		} else {
			inst.correlated = true
		}
	case hasYear && len(inst.years) == 1:
		inst.grainYear = true
		inst.yearJoin = queryir.Int(inst.years[0])
	}
	inst.grainWeek = sp.hasWeek() && def.HasKey(registry.KeyWeek)
	return nil
}

// joined reports whether the instance appears in the FROM/JOIN chain.
func (inst *instance) joined() bool {
	return inst.shape != shapeInline && !inst.correlated
}

// grain returns the key columns an instance's CTE is grouped by.
func (inst *instance) grain() []string {
	keys := []string{"pid"}
	if inst.grainYear {
		keys = append(keys, "year")
	}
	if inst.grainWeek {
		keys = append(keys, "week")
	}
	return keys
}

// shiftYears applies a year_offset span to a set of base years.
func shiftYears(years []int, off Span) []int {
	out := make([]int, 0, len(years)*(off.Hi-off.Lo+1))
	for _, y := range years {
		for k := off.Lo; k <= off.Hi; k++ {
			out = append(out, y+k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// yearShift renders ref shifted by k years.
func yearShift(ref string, k int) string {
	switch {
	case k > 0:
		return fmt.Sprintf("%s + %d", ref, k)
	case k < 0:
		return fmt.Sprintf("%s - %d", ref, -k)
	}
	return ref
}
