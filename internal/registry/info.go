package registry

import "slices"

// ColumnInfo is the public description of a column, as served by the
// column catalog.
type ColumnInfo struct {
	ID          ColumnID    `json:"column_id"`
	Description string      `json:"description,omitempty"`
	Source      Source      `json:"source"`
	Kind        ValueKind   `json:"kind,omitempty"`
	Volatility  Volatility  `json:"volatility"`
	JoinKeys    []JoinKey   `json:"join_keys"`
	Params      []ParamInfo `json:"params,omitempty"`
}

// ParamInfo describes one accepted parameter.
type ParamInfo struct {
	Name     ParamName `json:"name"`
	Kind     string    `json:"kind"`
	Required bool      `json:"required,omitempty"`
	Default  any       `json:"default,omitempty"`
	Enum     []string  `json:"enum,omitempty"`
}

// Info describes d with its parameters sorted by name.
func (d *Definition) Info() ColumnInfo {
	info := ColumnInfo{
		ID:          d.ID,
		Description: d.Description,
		Source:      d.Source,
		Kind:        d.Kind,
		Volatility:  d.Volatility,
		JoinKeys:    slices.Clone(d.JoinKeys),
	}
	for name, spec := range d.Params {
		info.Params = append(info.Params, ParamInfo{
			Name:     name,
			Kind:     spec.Kind.String(),
			Required: spec.Required,
			Default:  spec.Default,
			Enum:     slices.Clone(spec.Enum),
		})
	}
	slices.SortFunc(info.Params, func(a, b ParamInfo) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return info
}
