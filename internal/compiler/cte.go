package compiler

import (
	"fmt"

	"github.com/roach88/dataview/internal/queryir"
	"github.com/roach88/dataview/internal/registry"
)

// builder accumulates the CTEs and joins of one compilation.
type builder struct {
	sp    splitSpec
	ctes  []queryir.CTE
	joins []queryir.Join
	games map[string]*gamesScope
}

func newBuilder(sp splitSpec) *builder {
	return &builder{sp: sp, games: make(map[string]*gamesScope)}
}

// synthesize emits whatever an instance needs (CTEs, joins) and sets its
// select expression.
func (b *builder) synthesize(inst *instance) error {
	var (
		body queryir.Select
		err  error
	)
	switch inst.shape {
	case shapeInline:
		inst.expr = inst.def.Expr
		return nil
	case shapeDirect:
		b.direct(inst)
		return nil
	case shapeAggregate:
		body, err = b.aggregate(inst)
	case shapeUnion:
		body = b.playsUnion(inst)
	case shapeTeam:
		b.team(inst)
		return nil
	default:
		err = fmt.Errorf("column %s: unhandled shape %s", inst.def.ID, inst.shape)
	}
	if err != nil {
		return err
	}

	body.Having = havingClause(inst)
	b.ctes = append(b.ctes, queryir.CTE{Name: inst.alias, Body: body})

	value := inst.alias + "." + inst.def.Field
	if inst.correlated {
		value = correlatedWindow(b.sp, inst.alias, inst.def.Agg, inst.def.Field, inst.offset)
	}
	if !inst.perGame {
		inst.expr = value
		b.join(inst)
		return nil
	}

	g, err := b.gamesFor(inst)
	if err != nil {
		return err
	}
	denominator := g.alias + ".games"
	if inst.correlated {
		denominator = correlatedWindow(b.sp, g.alias, "SUM", "games", inst.offset)
	}
	inst.expr = perGame(value, denominator)
	b.join(inst)
	if g.joined && !g.attached {
		b.joins = append(b.joins, g.join(b.sp))
		g.attached = true
	}
	return nil
}

func havingClause(inst *instance) queryir.Predicate {
	preds := make([]queryir.Predicate, 0, len(inst.having))
	for _, fc := range inst.having {
		preds = append(preds, fc.predicate(inst.aggExpr))
	}
	return queryir.Conj(preds...)
}

// gamesFor returns the shared denominator for inst, defining its CTE on
// first use.
func (b *builder) gamesFor(inst *instance) (*gamesScope, error) {
	g, err := newGamesScope(inst)
	if err != nil {
		return nil, err
	}
	if existing, ok := b.games[g.alias]; ok {
		inst.games = existing
		return existing, nil
	}
	b.games[g.alias] = g
	b.ctes = append(b.ctes, g.cte())
	inst.games = g
	return g, nil
}

// aggregate builds the grouped CTE body for single-table sources.
func (b *builder) aggregate(inst *instance) (queryir.Select, error) {
	def := inst.def
	switch def.Source {
	case registry.SourcePlayEvents:
		return b.playsSingle(inst), nil
	case registry.SourceSeasonLog:
		return b.logAggregate(inst), nil
	case registry.SourceProjection:
		return b.projectionAggregate(inst), nil
	case registry.SourceBettingMarket:
		return b.marketAggregate(inst), nil
	case registry.SourceCareerLog:
		return b.careerWindow(inst), nil
	}
	return queryir.Select{}, fmt.Errorf("column %s: no aggregate form for source %q", def.ID, def.Source)
}

func (b *builder) logAggregate(inst *instance) queryir.Select {
	def := inst.def
	cols, group := grainColumns(inst, "pid", "")
	inst.aggExpr = aggregateOf(def)
	cols = append(cols, queryir.Col(inst.aggExpr, def.Field))

	where := rawPredicates(def.Where)
	where = append(where, commonPredicates(inst, "")...)
	return queryir.Select{
		Columns: cols,
		From:    queryir.Table{Name: def.Table},
		Where:   queryir.Conj(where...),
		GroupBy: group,
	}
}

func (b *builder) projectionAggregate(inst *instance) queryir.Select {
	def := inst.def
	cols, group := grainColumns(inst, "pid", "")
	inst.aggExpr = aggregateOf(def)
	cols = append(cols, queryir.Col(inst.aggExpr, def.Field))

	var where []queryir.Predicate
	if src, ok := inst.params.Int(registry.ParamSourceID); ok {
		where = append(where, queryir.Compare{Left: "sourceid", Op: "=", Right: queryir.Int(src)})
	}
	where = append(where, commonPredicates(inst, "")...)
	return queryir.Select{
		Columns: cols,
		From:    queryir.Table{Name: def.Table},
		Where:   queryir.Conj(where...),
		GroupBy: group,
	}
}

// marketAggregate reads prop lines: markets describe the event, selections
// carry one row per player and line.
func (b *builder) marketAggregate(inst *instance) queryir.Select {
	def := inst.def
	p := inst.params
	cols, group := grainColumns(inst, "s.selection_pid", "m.")
	inst.aggExpr = fmt.Sprintf("%s(s.%s)", def.Agg, def.Field)
	cols = append(cols, queryir.Col(inst.aggExpr, def.Field))

	where := []queryir.Predicate{
		queryir.Compare{Left: "m.market_type", Op: "=", Right: queryir.String(p.String(registry.ParamMarketType))},
		queryir.Compare{Left: "m.source_id", Op: "=", Right: queryir.String(p.String(registry.ParamSourceID))},
		queryir.Compare{Left: "m.time_type", Op: "=", Right: queryir.String(p.String(registry.ParamTimeType))},
	}
	where = append(where, yearWeekPredicates("m.", inst.years, inst.weeks)...)
	if asOf, ok := p.Timestamp(registry.ParamAsOf); ok {
		where = append(where, queryir.Compare{Left: "m.timestamp", Op: "<=", Right: queryir.Number(fmt.Sprint(asOf / 1000))})
	}

	return queryir.Select{
		Columns: cols,
		From:    queryir.Table{Name: def.Table, Alias: "m"},
		Joins: []queryir.Join{{
			Kind:  queryir.JoinInner,
			Table: queryir.Table{Name: "prop_market_selections_index", Alias: "s"},
			On: queryir.Conj(
				queryir.Compare{Left: "s.source_market_id", Op: "=", Right: queryir.Ref("m.source_market_id")},
				queryir.Compare{Left: "s.time_type", Op: "=", Right: queryir.Ref("m.time_type")},
			),
		}},
		Where:   queryir.Conj(where...),
		GroupBy: group,
	}
}

// careerWindow totals a career-log stat over a career_year window from the
// per-season logs.
func (b *builder) careerWindow(inst *instance) queryir.Select {
	def := inst.def
	window, _ := inst.params.Span(registry.ParamCareerYear)
	inst.aggExpr = fmt.Sprintf("%s(%s)", def.Agg, def.CareerField)
	return queryir.Select{
		Columns: []queryir.Column{
			queryir.Col("pid", ""),
			queryir.Col(inst.aggExpr, def.Field),
		},
		From: queryir.Table{Name: def.CareerTable},
		Where: queryir.Conj(
			queryir.Compare{Left: "seas_type", Op: "=", Right: queryir.String("REG")},
			queryir.Between{Left: "career_year", Low: queryir.Int(window.Lo), High: queryir.Int(window.Hi)},
		),
		GroupBy: []string{"pid"},
	}
}

// direct joins the source table itself: career totals by pid, or a single
// projection row by (pid, year, week, source).
func (b *builder) direct(inst *instance) {
	def := inst.def
	on := []queryir.Predicate{
		queryir.Compare{Left: inst.alias + ".pid", Op: "=", Right: queryir.Ref("player.pid")},
	}
	if def.Source == registry.SourceProjection {
		on = append(on,
			queryir.Compare{Left: inst.alias + ".year", Op: "=", Right: queryir.Int(inst.years[0])},
			queryir.Compare{Left: inst.alias + ".week", Op: "=", Right: queryir.Int(inst.weeks[0])},
		)
		if src, ok := inst.params.Int(registry.ParamSourceID); ok {
			on = append(on, queryir.Compare{Left: inst.alias + ".sourceid", Op: "=", Right: queryir.Int(src)})
		}
	}
	inst.expr = inst.alias + "." + def.Field
	b.joins = append(b.joins, queryir.Join{
		Kind:  joinKind(inst),
		Table: queryir.Table{Name: def.Table, Alias: inst.alias},
		On:    queryir.Conj(on...),
	})
}

// aggregateOf is the aggregate a definition computes per group.
func aggregateOf(def *registry.Definition) string {
	value := def.Expr
	if value == "" {
		value = def.Field
	}
	return fmt.Sprintf("%s(%s)", def.Agg, value)
}

// grainColumns returns the key columns and GROUP BY terms for an instance.
// prefix qualifies year/week when the CTE reads from an aliased table.
func grainColumns(inst *instance, pidExpr, prefix string) ([]queryir.Column, []string) {
	pidAlias := ""
	if pidExpr != "pid" {
		pidAlias = "pid"
	}
	cols := []queryir.Column{queryir.Col(pidExpr, pidAlias)}
	group := []string{pidExpr}

	keyAlias := ""
	if prefix != "" {
		keyAlias = "year"
	}
	if inst.grainYear {
		cols = append(cols, queryir.Col(prefix+"year", keyAlias))
		group = append(group, prefix+"year")
	}
	if prefix != "" {
		keyAlias = "week"
	}
	if inst.grainWeek {
		cols = append(cols, queryir.Col(prefix+"week", keyAlias))
		group = append(group, prefix+"week")
	}
	return cols, group
}

// commonPredicates filters source rows by the instance's scope parameters.
func commonPredicates(inst *instance, prefix string) []queryir.Predicate {
	p := inst.params
	var out []queryir.Predicate
	if st := p.String(registry.ParamSeasType); st != "" {
		out = append(out, queryir.Compare{Left: prefix + "seas_type", Op: "=", Right: queryir.String(st)})
	}
	out = append(out, yearWeekPredicates(prefix, inst.years, inst.weeks)...)
	if downs, ok := p.Ints(registry.ParamDown); ok {
		out = append(out, queryir.In{Left: prefix + "dwn", Values: queryir.Ints(downs)})
	}
	for _, flag := range []registry.ParamName{registry.ParamMotion, registry.ParamPlayAction} {
		if v, ok := p.Bool(flag); ok {
			out = append(out, queryir.Compare{Left: prefix + string(flag), Op: "=", Right: queryir.Ref(fmt.Sprint(v))})
		}
	}
	return out
}

func yearWeekPredicates(prefix string, years, weeks []int) []queryir.Predicate {
	var out []queryir.Predicate
	if years != nil {
		out = append(out, queryir.In{Left: prefix + "year", Values: queryir.Ints(years)})
	}
	switch {
	case weeks == nil:
	case len(weeks) == 0:
		out = append(out, queryir.Raw{SQL: "1 = 0"})
	default:
		out = append(out, queryir.In{Left: prefix + "week", Values: queryir.Ints(weeks)})
	}
	return out
}

func rawPredicates(sqls []string) []queryir.Predicate {
	out := make([]queryir.Predicate, 0, len(sqls))
	for _, s := range sqls {
		out = append(out, queryir.Raw{SQL: s})
	}
	return out
}
