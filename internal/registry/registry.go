// Package registry holds the catalog of column definitions the data-view
// compiler can select, filter and sort on. The registry is built once and
// read-only afterwards, so it is safe for concurrent use.
package registry

import (
	"fmt"
	"slices"
	"sync"
)

// Registry is an immutable, validated set of column definitions.
type Registry struct {
	byID  map[ColumnID]*Definition
	order []ColumnID
}

// New builds a registry from defs, rejecting duplicates and definitions
// whose shape the compiler cannot handle.
func New(defs []Definition) (*Registry, error) {
	r := &Registry{byID: make(map[ColumnID]*Definition, len(defs))}
	for i := range defs {
		d := defs[i]
		if err := validateDefinition(&d); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate column definition %q", d.ID)
		}
		r.byID[d.ID] = &d
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in catalog. It panics if the catalog is
// inconsistent, which is a programming error caught by tests.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New(catalog())
		if err != nil {
			panic(fmt.Sprintf("registry: invalid built-in catalog: %v", err))
		}
		defaultReg = r
	})
	return defaultReg
}

// Lookup returns the definition for id.
func (r *Registry) Lookup(id ColumnID) (*Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// List returns all definitions in catalog order.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	return len(r.order)
}

func validateDefinition(d *Definition) error {
	if d.ID == "" {
		return fmt.Errorf("column definition without id")
	}
	if !slices.Contains(Sources, d.Source) {
		return fmt.Errorf("column %q: unknown source %q", d.ID, d.Source)
	}
	if !d.HasKey(KeyPid) {
		return fmt.Errorf("column %q: pid join key is required", d.ID)
	}
	if d.HasKey(KeyWeek) && !d.HasKey(KeyYear) {
		return fmt.Errorf("column %q: week key without year key", d.ID)
	}
	if d.Kind != KindNumber && d.Kind != KindText {
		return fmt.Errorf("column %q: unknown value kind %q", d.ID, d.Kind)
	}
	if d.Table == "" {
		return fmt.Errorf("column %q: table is required", d.ID)
	}

	switch d.Source {
	case SourceStaticAttribute:
		if d.Expr == "" {
			return fmt.Errorf("column %q: static attribute needs an expression", d.ID)
		}
		if len(d.Params) > 0 {
			return fmt.Errorf("column %q: static attributes take no parameters", d.ID)
		}
	case SourcePlayEvents:
		if len(d.Roles) == 0 {
			return fmt.Errorf("column %q: play-event column needs at least one role", d.ID)
		}
	case SourceTeamAggregate:
		if len(d.TeamFields) == 0 || d.Flatten == "" {
			return fmt.Errorf("column %q: team aggregate needs fields and a flatten expression", d.ID)
		}
	case SourceCareerLog:
		if d.Accepts(ParamCareerYear) && (d.CareerTable == "" || d.CareerField == "") {
			return fmt.Errorf("column %q: career_year needs a career table and field", d.ID)
		}
	case SourceSeasonLog, SourceProjection, SourceBettingMarket:
		if d.Agg == "" || d.Field == "" {
			return fmt.Errorf("column %q: aggregate and field are required", d.ID)
		}
	}

	if d.Source != SourceStaticAttribute && d.Field == "" {
		return fmt.Errorf("column %q: output field is required", d.ID)
	}
	if d.Accepts(ParamRateType) && !d.Countable {
		return fmt.Errorf("column %q: rate_type on a non-countable column", d.ID)
	}

	for name, spec := range d.Params {
		if spec.Kind == KindEnum && len(spec.Enum) == 0 {
			return fmt.Errorf("column %q: enum parameter %q has no values", d.ID, name)
		}
		if spec.Min > spec.Max && spec.Kind != KindEnum && spec.Kind != KindBool && spec.Kind != KindTimestamp {
			return fmt.Errorf("column %q: parameter %q min > max", d.ID, name)
		}
		if s, ok := spec.Default.(string); ok && spec.Kind == KindEnum && !slices.Contains(spec.Enum, s) {
			return fmt.Errorf("column %q: parameter %q default %q not in enum", d.ID, name, s)
		}
	}
	return nil
}
