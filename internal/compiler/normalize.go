package compiler

import (
	"slices"
	"strings"

	"github.com/roach88/dataview/internal/registry"
	"github.com/roach88/dataview/internal/season"
)

type splitKind int

const (
	splitNone splitKind = iota
	splitYear
	splitYearWeek
)

// splitSpec is the resolved time axis of a request.
type splitSpec struct {
	kind  splitKind
	years []int
	// weeks is nil when no column pins weeks; the base relation then covers
	// every week of the split years.
	weeks []int
}

func (s splitSpec) hasYear() bool { return s.kind != splitNone }
func (s splitSpec) hasWeek() bool { return s.kind == splitYearWeek }

// base is the relation every output row comes from.
func (s splitSpec) base() string {
	switch s.kind {
	case splitYear:
		return "player_years"
	case splitYearWeek:
		return "player_years_weeks"
	}
	return "player"
}

func parseSplits(splits []string) (splitKind, error) {
	norm := make([]string, len(splits))
	for i, s := range splits {
		norm[i] = strings.ToLower(strings.TrimSpace(s))
	}
	switch {
	case len(norm) == 0:
		return splitNone, nil
	case slices.Equal(norm, []string{"year"}):
		return splitYear, nil
	case slices.Equal(norm, []string{"year", "week"}):
		return splitYearWeek, nil
	}
	return splitNone, unsupportedSplit("", "unsupported splits %q: expected [] or [year] or [year week]", splits)
}

// resolvedColumn is a column occurrence whose definition is known and whose
// explicit params are parsed; defaults are applied later, once the split
// scope is known.
type resolvedColumn struct {
	def      *registry.Definition
	explicit Params
	// hasParams is false when the caller sent no params at all.
	hasParams bool
}

func (c *Compiler) resolveColumn(id registry.ColumnID, raw map[string]any, sc season.Context) (resolvedColumn, error) {
	def, ok := c.registry.Lookup(id)
	if !ok {
		return resolvedColumn{}, invalidColumn(string(id), "unknown column %q", id)
	}
	explicit, err := explicitParams(def, raw, sc)
	if err != nil {
		return resolvedColumn{}, err
	}
	return resolvedColumn{def: def, explicit: explicit, hasParams: len(raw) > 0}, nil
}

// explicitParams parses the parameters a caller actually supplied.
func explicitParams(def *registry.Definition, raw map[string]any, sc season.Context) (Params, error) {
	out := make(Params, len(raw))
	// Sorted iteration keeps the first reported error stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		name := registry.ParamName(key)
		if alias, ok := registry.ParamAliases[key]; ok {
			if _, dup := raw[string(alias)]; dup {
				return nil, invalidParam(string(def.ID), key, "both %q and %q given", key, alias)
			}
			name = alias
		}
		spec, ok := def.Params[name]
		if !ok {
			return nil, invalidParam(string(def.ID), key, "column does not accept parameter %q", key)
		}
		if raw[key] == nil {
			continue
		}
		v, err := parseParam(def, name, spec, raw[key], sc)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// finalizeParams applies declared defaults under the explicit values and
// canonicalizes the result.
func finalizeParams(rc resolvedColumn, sp splitSpec, sc season.Context) (Params, error) {
	def := rc.def
	if sp.hasWeek() && def.HasKey(registry.KeyYear) && !def.HasKey(registry.KeyWeek) {
		return nil, unsupportedSplit(string(def.ID), "column has no week grain and cannot be split by week")
	}

	out := rc.explicit.clone()
	for name, spec := range def.Params {
		if _, set := out[name]; set {
			continue
		}
		switch {
		case name == registry.ParamYear && sp.hasYear():
			out[name] = slices.Clone(sp.years)
			continue
		case name == registry.ParamWeek && sp.hasWeek():
			if sp.weeks != nil {
				out[name] = slices.Clone(sp.weeks)
			}
			continue
		}
		if spec.Default != nil {
			v, err := parseParam(def, name, spec, spec.Default, sc)
			if err != nil {
				return nil, err
			}
			out[name] = v
			continue
		}
		if spec.Required {
			return nil, invalidParam(string(def.ID), string(name), "parameter %q is required", name)
		}
	}

	if off, ok := out.Span(registry.ParamYearOffset); ok {
		if off.Lo == 0 && off.Hi == 0 {
			delete(out, registry.ParamYearOffset)
		} else if sp.hasWeek() {
			return nil, unsupportedSplit(string(def.ID), "year_offset cannot be combined with a year+week split")
		}
	}
	return out, nil
}

// splitScope collects the split years and weeks from every explicitly
// parameterized column. Years fall back to the current season.
func splitScope(kind splitKind, cols []resolvedColumn, sc season.Context) splitSpec {
	sp := splitSpec{kind: kind}
	if kind == splitNone {
		return sp
	}
	for _, rc := range cols {
		if ys, ok := rc.explicit.Ints(registry.ParamYear); ok {
			sp.years = append(sp.years, ys...)
		}
		if kind == splitYearWeek && rc.def.HasKey(registry.KeyWeek) {
			if ws, ok := rc.explicit.Ints(registry.ParamWeek); ok {
				sp.weeks = append(sp.weeks, ws...)
			}
		}
	}
	if len(sp.years) == 0 {
		sp.years = []int{sc.Year}
	}
	slices.Sort(sp.years)
	sp.years = slices.Compact(sp.years)
	if sp.weeks != nil {
		slices.Sort(sp.weeks)
		sp.weeks = slices.Compact(sp.weeks)
	}
	return sp
}
