package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/dataview/internal/ir"
	"github.com/roach88/dataview/internal/queryir"
	"github.com/roach88/dataview/internal/querysql"
	"github.com/roach88/dataview/internal/registry"
	"github.com/roach88/dataview/internal/season"
)

// Row limits.
const (
	DefaultLimit = 500
	MaxLimit     = 5000
)

// Compiler turns data-view requests into SQL.
//
// A Compiler is immutable after New and safe for concurrent use: every
// Compile call keeps its state on the stack.
type Compiler struct {
	registry     *registry.Registry
	defaultLimit int
	maxLimit     int
	ttl          TTLPolicy
	logger       *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLimits sets the default and maximum row limits.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(c *Compiler) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	}
}

// WithTTLPolicy replaces the cache TTL bands.
func WithTTLPolicy(p TTLPolicy) Option {
	return func(c *Compiler) {
		c.ttl = p
	}
}

// WithLogger sets the logger. Compilation logs at Debug level only.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// New creates a Compiler over reg.
func New(reg *registry.Registry, opts ...Option) *Compiler {
	c := &Compiler{
		registry:     reg,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		ttl:          DefaultTTLPolicy(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxLimit < c.defaultLimit {
		c.maxLimit = c.defaultLimit
	}
	return c
}

// Registry returns the column registry the compiler resolves against.
func (c *Compiler) Registry() *registry.Registry {
	return c.registry
}

// Result is a compiled data view.
type Result struct {
	Query    string        `json:"query"`
	Metadata CacheMetadata `json:"data_view_metadata"`
	ViewID   string        `json:"view_id,omitempty"`
	// Hash fingerprints Query; equal requests share a hash.
	Hash string `json:"hash"`
	Plan Plan   `json:"-"`
}

// Plan is the assembled query before rendering. It is never mutated after
// Compile returns.
type Plan struct {
	Query   queryir.Query
	Columns []OutputColumn
}

// OutputColumn describes one selected column of the result set.
type OutputColumn struct {
	Name     string            `json:"name"`
	ColumnID registry.ColumnID `json:"column_id,omitempty"`
	Prefix   bool              `json:"prefix,omitempty"`
}

// compileState is the per-call working set.
type compileState struct {
	season      season.Context
	split       splitSpec
	arena       *arena
	occurrences []occurrence
	filters     []outerFilter
}

// Compile compiles req against the season context sc.
//
// Compile is deterministic: the same request and context always produce the
// same SQL. Caller mistakes are returned as *CompileError before any SQL is
// assembled.
func (c *Compiler) Compile(req Request, sc season.Context) (*Result, error) {
	limit, err := c.limit(req.Limit)
	if err != nil {
		return nil, err
	}
	kind, err := parseSplits(req.Splits)
	if err != nil {
		return nil, err
	}

	prefix, err := c.resolveAll(req.PrefixColumns, sc)
	if err != nil {
		return nil, err
	}
	cols, err := c.resolveAll(req.Columns, sc)
	if err != nil {
		return nil, err
	}
	filterCols := make([]*resolvedColumn, len(req.Where))
	scoped := append(append([]resolvedColumn{}, prefix...), cols...)
	for i, f := range req.Where {
		if len(f.Params) == 0 {
			if _, ok := c.registry.Lookup(f.ColumnID); !ok {
				return nil, invalidColumn(string(f.ColumnID), "unknown filter column %q", f.ColumnID)
			}
			continue
		}
		rc, err := c.resolveColumn(f.ColumnID, f.Params, sc)
		if err != nil {
			return nil, err
		}
		filterCols[i] = &rc
		scoped = append(scoped, rc)
	}

	st := &compileState{
		season: sc,
		split:  splitScope(kind, scoped, sc),
		arena:  newArena(),
	}

	counts := make(map[registry.ColumnID]int)
	for i, rc := range append(prefix, cols...) {
		idx, err := st.instanceFor(rc)
		if err != nil {
			return nil, err
		}
		occ := occurrence{columnID: rc.def.ID, inst: idx, prefix: i < len(prefix), n: -1}
		if !occ.prefix {
			occ.n = counts[rc.def.ID]
			counts[rc.def.ID]++
		}
		st.occurrences = append(st.occurrences, occ)
	}

	clauses := make([]filterClause, len(req.Where))
	targets := make([]int, len(req.Where))
	for i, f := range req.Where {
		def, _ := c.registry.Lookup(f.ColumnID)
		fc, err := parseFilter(f, def)
		if err != nil {
			return nil, err
		}
		idx, err := st.filterInstance(def, f, filterCols[i])
		if err != nil {
			return nil, err
		}
		clauses[i], targets[i] = fc, idx
	}

	for _, inst := range st.arena.items {
		if err := inst.analyze(st.split); err != nil {
			return nil, err
		}
	}
	for i, fc := range clauses {
		if attachFilter(st.arena.items[targets[i]], fc) {
			st.filters = append(st.filters, outerFilter{inst: targets[i], clause: fc})
		}
	}

	order, err := c.sortTerms(req, st)
	if err != nil {
		return nil, err
	}

	q, out, err := st.assemble(order, limit)
	if err != nil {
		return nil, err
	}
	sql, err := querysql.Render(q)
	if err != nil {
		return nil, fmt.Errorf("render query: %w", err)
	}

	res := &Result{
		Query:    sql,
		Metadata: c.ttl.metadata(st.arena.items, sc),
		ViewID:   req.ViewID,
		Hash:     ir.QueryHash(sql),
		Plan:     Plan{Query: q, Columns: out},
	}
	c.logger.Debug("compiled data view",
		"view_id", req.ViewID,
		"instances", len(st.arena.items),
		"ctes", len(q.CTEs),
		"cache_ttl", res.Metadata.CacheTTL,
		"hash", res.Hash[:12],
	)
	return res, nil
}

func (c *Compiler) limit(requested *int) (int, error) {
	if requested == nil {
		return c.defaultLimit, nil
	}
	if *requested < 1 {
		return 0, invalidParam("", "limit", "limit must be at least 1, got %d", *requested)
	}
	return min(*requested, c.maxLimit), nil
}

func (c *Compiler) resolveAll(reqs []ColumnRequest, sc season.Context) ([]resolvedColumn, error) {
	out := make([]resolvedColumn, 0, len(reqs))
	for _, r := range reqs {
		rc, err := c.resolveColumn(r.ColumnID, r.Params, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

func (st *compileState) instanceFor(rc resolvedColumn) (int, error) {
	params, err := finalizeParams(rc, st.split, st.season)
	if err != nil {
		return 0, err
	}
	return st.arena.intern(rc.def, params)
}

// filterInstance resolves which instance a filter applies to: explicit
// params, then column_index, then the first selected occurrence, then the
// column's defaults.
func (st *compileState) filterInstance(def *registry.Definition, f FilterSpec, rc *resolvedColumn) (int, error) {
	if rc != nil {
		return st.instanceFor(*rc)
	}
	if f.ColumnIndex != nil {
		pos, ok := nthOccurrence(st.occurrences, def.ID, *f.ColumnIndex)
		if !ok {
			return 0, invalidFilter(string(def.ID), "column_index %d out of range", *f.ColumnIndex)
		}
		return st.occurrences[pos].inst, nil
	}
	if pos, ok := firstOccurrence(st.occurrences, def.ID); ok {
		return st.occurrences[pos].inst, nil
	}
	return st.instanceFor(resolvedColumn{def: def, explicit: Params{}})
}

// assemble builds the query tree: base relation, instance CTEs and joins,
// the select list, outer filters and ordering.
func (st *compileState) assemble(order []queryir.OrderTerm, limit int) (queryir.Query, []OutputColumn, error) {
	b := newBuilder(st.split)
	if base, ok := baseCTE(st.split); ok {
		b.ctes = append(b.ctes, base)
	}
	for _, inst := range st.arena.items {
		if err := b.synthesize(inst); err != nil {
			return queryir.Query{}, nil, err
		}
	}

	cols := []queryir.Column{queryir.Col("player.pid", "pid")}
	out := []OutputColumn{{Name: "pid"}}
	for _, o := range st.occurrences {
		name := o.outputName()
		cols = append(cols, queryir.Col(st.arena.items[o.inst].expr, name))
		out = append(out, OutputColumn{Name: name, ColumnID: o.columnID, Prefix: o.prefix})
	}
	base := st.split.base()
	if st.split.hasYear() {
		cols = append(cols, queryir.Col(base+".year", "year"))
		out = append(out, OutputColumn{Name: "year"})
	}
	if st.split.hasWeek() {
		cols = append(cols, queryir.Col(base+".week", "week"))
		out = append(out, OutputColumn{Name: "week"})
	}

	where := make([]queryir.Predicate, 0, len(st.filters))
	for _, f := range st.filters {
		where = append(where, f.clause.predicate(st.arena.items[f.inst].expr))
	}

	from, joins := mainFrom(st.split)
	q := queryir.Query{
		CTEs: b.ctes,
		Main: queryir.Select{
			Columns: cols,
			From:    from,
			Joins:   append(joins, b.joins...),
			Where:   queryir.Conj(where...),
			OrderBy: order,
			Limit:   limit,
		},
	}
	return q, out, nil
}
