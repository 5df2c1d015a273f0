package compiler

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/dataview/internal/registry"
	"github.com/roach88/dataview/internal/season"
)

// Params are a column's normalized parameters. Values are one of:
// []int (years, weeks, int sets), bool, string (enums), int, Span (offsets
// and ranges) or int64 (timestamps in epoch milliseconds).
type Params map[registry.ParamName]any

// Span is an inclusive integer range. A year_offset of k is Span{k, k}.
type Span struct {
	Lo int
	Hi int
}

// Single reports whether the span covers exactly one value.
func (s Span) Single() bool {
	return s.Lo == s.Hi
}

// Ints returns a list-valued parameter.
func (p Params) Ints(name registry.ParamName) ([]int, bool) {
	v, ok := p[name].([]int)
	return v, ok
}

// String returns an enum parameter, or "" when unset.
func (p Params) String(name registry.ParamName) string {
	s, _ := p[name].(string)
	return s
}

// Bool returns a boolean parameter.
func (p Params) Bool(name registry.ParamName) (bool, bool) {
	b, ok := p[name].(bool)
	return b, ok
}

// Int returns an integer parameter.
func (p Params) Int(name registry.ParamName) (int, bool) {
	n, ok := p[name].(int)
	return n, ok
}

// Span returns an offset or range parameter.
func (p Params) Span(name registry.ParamName) (Span, bool) {
	s, ok := p[name].(Span)
	return s, ok
}

// Timestamp returns a timestamp parameter in epoch milliseconds.
func (p Params) Timestamp(name registry.ParamName) (int64, bool) {
	t, ok := p[name].(int64)
	return t, ok
}

// canonical returns the parameters as plain values for content hashing.
// Offsets of a single year collapse to an int; ranges stay [lo, hi].
func (p Params) canonical() map[string]any {
	out := make(map[string]any, len(p))
	for name, v := range p {
		switch val := v.(type) {
		case Span:
			if name == registry.ParamYearOffset && val.Single() {
				out[string(name)] = val.Lo
			} else {
				out[string(name)] = []int{val.Lo, val.Hi}
			}
		default:
			out[string(name)] = val
		}
	}
	return out
}

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if ints, ok := v.([]int); ok {
			v = slices.Clone(ints)
		}
		out[k] = v
	}
	return out
}

// parseParam converts one caller-supplied value into its normalized form.
func parseParam(def *registry.Definition, name registry.ParamName, spec registry.ParamSpec, raw any, sc season.Context) (any, error) {
	id := string(def.ID)
	param := string(name)
	fail := func(format string, args ...any) error {
		return invalidParam(id, param, format, args...)
	}

	switch spec.Kind {
	case registry.KindYears, registry.KindWeeks:
		if tok, ok := tokenFrom(raw); ok {
			var (
				out []int
				err error
			)
			if spec.Kind == registry.KindYears {
				out, err = season.ExpandYears(tok, sc)
			} else {
				out, err = season.ExpandWeeks(tok, sc)
			}
			if err != nil {
				return nil, fail("%v", err)
			}
			return out, nil
		}
		out, err := parseIntList(raw, spec)
		if err != nil {
			return nil, fail("%v", err)
		}
		if len(out) == 0 {
			return nil, fail("%s must not be empty", spec.Kind)
		}
		return out, nil

	case registry.KindIntSet:
		out, err := parseIntList(raw, spec)
		if err != nil {
			return nil, fail("%v", err)
		}
		if len(out) == 0 {
			return nil, fail("must not be empty")
		}
		return out, nil

	case registry.KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fail("expected a boolean, got %q", v)
			}
			return b, nil
		}
		return nil, fail("expected a boolean, got %T", raw)

	case registry.KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fail("expected one of %s, got %T", strings.Join(spec.Enum, ", "), raw)
		}
		for _, allowed := range spec.Enum {
			if strings.EqualFold(strings.TrimSpace(s), allowed) {
				return allowed, nil
			}
		}
		return nil, fail("expected one of %s, got %q", strings.Join(spec.Enum, ", "), s)

	case registry.KindInt:
		n, ok := toInt(raw)
		if !ok {
			return nil, fail("expected an integer, got %v", raw)
		}
		if n < spec.Min || n > spec.Max {
			return nil, fail("%d outside [%d, %d]", n, spec.Min, spec.Max)
		}
		return n, nil

	case registry.KindOffset, registry.KindRange:
		sp, err := parseSpan(raw)
		if err != nil {
			return nil, fail("%v", err)
		}
		if sp.Lo < spec.Min || sp.Hi > spec.Max {
			return nil, fail("[%d, %d] outside [%d, %d]", sp.Lo, sp.Hi, spec.Min, spec.Max)
		}
		return sp, nil

	case registry.KindTimestamp:
		ms, err := parseTimestamp(raw)
		if err != nil {
			return nil, fail("%v", err)
		}
		return ms, nil
	}
	return nil, fail("unsupported parameter kind %s", spec.Kind)
}

// tokenFrom recognizes dynamic time tokens: {"dynamic_type": ..., "value": N}
// or a bare token name such as "current_year".
func tokenFrom(raw any) (season.Token, bool) {
	switch v := raw.(type) {
	case string:
		switch v {
		case season.TokenCurrentYear, season.TokenCurrentWeek:
			return season.Token{Kind: v}, true
		}
	case map[string]any:
		kind, ok := v["dynamic_type"].(string)
		if !ok {
			return season.Token{}, false
		}
		tok := season.Token{Kind: kind}
		if val, present := v["value"]; present {
			n, ok := toInt(val)
			if !ok {
				return season.Token{Kind: kind, Value: -1}, true
			}
			tok.Value = n
		}
		return tok, true
	}
	return season.Token{}, false
}

func parseIntList(raw any, spec registry.ParamSpec) ([]int, error) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []int:
		items = make([]any, len(v))
		for i, n := range v {
			items[i] = n
		}
	default:
		items = []any{raw}
	}

	out := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := toInt(item)
		if !ok {
			return nil, fmt.Errorf("expected an integer, got %v", item)
		}
		if n < spec.Min || n > spec.Max {
			return nil, fmt.Errorf("%d outside [%d, %d]", n, spec.Min, spec.Max)
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func parseSpan(raw any) (Span, error) {
	if n, ok := toInt(raw); ok {
		return Span{Lo: n, Hi: n}, nil
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []int:
		for _, n := range v {
			items = append(items, n)
		}
	default:
		return Span{}, fmt.Errorf("expected an integer or [lo, hi], got %v", raw)
	}
	if len(items) != 2 {
		return Span{}, fmt.Errorf("expected [lo, hi], got %d values", len(items))
	}
	lo, ok1 := toInt(items[0])
	hi, ok2 := toInt(items[1])
	if !ok1 || !ok2 {
		return Span{}, fmt.Errorf("expected integer bounds, got %v", raw)
	}
	if lo > hi {
		return Span{}, fmt.Errorf("lower bound %d exceeds upper bound %d", lo, hi)
	}
	return Span{Lo: lo, Hi: hi}, nil
}

// parseTimestamp accepts epoch milliseconds, a date (YYYY-MM-DD, UTC
// midnight) or an RFC 3339 instant.
func parseTimestamp(raw any) (int64, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return t.UnixMilli(), nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UnixMilli(), nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
			return n, nil
		}
		return 0, fmt.Errorf("expected epoch milliseconds, YYYY-MM-DD or RFC 3339, got %q", s)
	}
	n, ok := toInt64(raw)
	if !ok || n < 0 {
		return 0, fmt.Errorf("expected epoch milliseconds, got %v", raw)
	}
	return n, nil
}

func toInt(v any) (int, bool) {
	n, ok := toInt64(v)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
