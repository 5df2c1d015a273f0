package compiler

import (
	"strings"

	"github.com/roach88/dataview/internal/queryir"
	"github.com/roach88/dataview/internal/registry"
)

// Filter operators.
const (
	OpEq        = "="
	OpNe        = "!="
	OpGt        = ">"
	OpGe        = ">="
	OpLt        = "<"
	OpLe        = "<="
	OpIn        = "IN"
	OpNotIn     = "NOT IN"
	OpBetween   = "BETWEEN"
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
)

var operatorAliases = map[string]string{
	"==": OpEq,
	"<>": OpNe,
}

// filterClause is a validated where entry with its literal operands.
type filterClause struct {
	op     string
	values []queryir.Operand
}

func (f filterClause) isNullCheck() bool {
	return f.op == OpIsNull || f.op == OpIsNotNull
}

// predicate applies the clause to an expression.
func (f filterClause) predicate(left string) queryir.Predicate {
	switch f.op {
	case OpIn, OpNotIn:
		return queryir.In{Left: left, Values: f.values, Negate: f.op == OpNotIn}
	case OpBetween:
		return queryir.Between{Left: left, Low: f.values[0], High: f.values[1]}
	case OpIsNull, OpIsNotNull:
		return queryir.IsNull{Left: left, Negate: f.op == OpIsNotNull}
	}
	return queryir.Compare{Left: left, Op: f.op, Right: f.values[0]}
}

// parseFilter validates the operator and value of f against the column's
// value kind.
func parseFilter(f FilterSpec, def *registry.Definition) (filterClause, error) {
	id := string(def.ID)
	op := strings.Join(strings.Fields(strings.ToUpper(f.Operator)), " ")
	if alias, ok := operatorAliases[op]; ok {
		op = alias
	}

	switch op {
	case OpIsNull, OpIsNotNull:
		return filterClause{op: op}, nil

	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		if _, isList := asList(f.Value); isList {
			return filterClause{}, invalidFilter(id, "operator %s needs a single value", op)
		}
		v, err := literal(f.Value, def)
		if err != nil {
			return filterClause{}, err
		}
		return filterClause{op: op, values: []queryir.Operand{v}}, nil

	case OpIn, OpNotIn:
		items, ok := asList(f.Value)
		if !ok {
			return filterClause{}, invalidFilter(id, "operator %s needs a list value", op)
		}
		if len(items) == 0 {
			return filterClause{}, invalidFilter(id, "operator %s needs at least one value", op)
		}
		vals := make([]queryir.Operand, len(items))
		for i, item := range items {
			v, err := literal(item, def)
			if err != nil {
				return filterClause{}, err
			}
			vals[i] = v
		}
		return filterClause{op: op, values: vals}, nil

	case OpBetween:
		lo, hi, err := betweenBounds(f.Value, def)
		if err != nil {
			return filterClause{}, err
		}
		return filterClause{op: op, values: []queryir.Operand{lo, hi}}, nil
	}
	return filterClause{}, invalidFilter(id, "unsupported operator %q", f.Operator)
}

// betweenBounds accepts [min, max] or {"min": ..., "max": ...}.
func betweenBounds(value any, def *registry.Definition) (queryir.Operand, queryir.Operand, error) {
	var lo, hi any
	if items, ok := asList(value); ok {
		if len(items) != 2 {
			return nil, nil, invalidFilter(string(def.ID), "BETWEEN needs [min, max], got %d values", len(items))
		}
		value = map[string]any{"min": items[0], "max": items[1]}
	}
	switch v := value.(type) {
	case map[string]any:
		var okLo, okHi bool
		lo, okLo = v["min"]
		hi, okHi = v["max"]
		if !okLo || !okHi {
			return nil, nil, invalidFilter(string(def.ID), "BETWEEN needs both min and max")
		}
	default:
		return nil, nil, invalidFilter(string(def.ID), "BETWEEN needs [min, max]")
	}
	if def.Kind != registry.KindNumber {
		return nil, nil, invalidFilter(string(def.ID), "BETWEEN needs a numeric column")
	}
	l, err := literal(lo, def)
	if err != nil {
		return nil, nil, err
	}
	h, err := literal(hi, def)
	if err != nil {
		return nil, nil, err
	}
	fl, _ := toFloat(lo)
	fh, _ := toFloat(hi)
	if fl > fh {
		return nil, nil, invalidFilter(string(def.ID), "BETWEEN min exceeds max")
	}
	return l, h, nil
}

// asList accepts the list shapes decoders and Go callers produce.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, f := range l {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

// literal converts one filter value into a typed SQL literal.
func literal(v any, def *registry.Definition) (queryir.Operand, error) {
	switch def.Kind {
	case registry.KindNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, invalidFilter(string(def.ID), "expected a number, got %T", v)
		}
		n, err := queryir.Float(f)
		if err != nil {
			return nil, invalidFilter(string(def.ID), "%v", err)
		}
		return n, nil
	case registry.KindText:
		s, ok := v.(string)
		if !ok {
			return nil, invalidFilter(string(def.ID), "expected a string, got %T", v)
		}
		if strings.ContainsRune(s, 0) {
			return nil, invalidFilter(string(def.ID), "string value contains NUL")
		}
		return queryir.String(s), nil
	}
	return nil, invalidFilter(string(def.ID), "column has no filterable value kind")
}

// attachFilter records where a filter on inst is applied. Filters that can
// be evaluated at the instance's own grouping level become HAVING clauses
// inside its CTE; everything else filters the outer query. Any non-null
// filter on a joined instance makes its join INNER.
func attachFilter(inst *instance, fc filterClause) (outer bool) {
	if fc.isNullCheck() {
		return true
	}
	switch {
	case inst.shape == shapeInline:
		return true
	case inst.shape == shapeDirect, inst.correlated, inst.perGame && inst.shape != shapeTeam:
		if inst.joined() {
			inst.inner = true
		}
		return true
	}
	inst.having = append(inst.having, fc)
	inst.inner = true
	return false
}

// outerFilter is a filter applied in the main WHERE clause once the
// instance's expression is known.
type outerFilter struct {
	inst   int
	clause filterClause
}
