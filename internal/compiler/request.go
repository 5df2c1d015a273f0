package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dataview/internal/registry"
)

// Request is a data-view compile request.
type Request struct {
	Columns       []ColumnRequest `json:"columns" yaml:"columns"`
	PrefixColumns []ColumnRequest `json:"prefix_columns,omitempty" yaml:"prefix_columns,omitempty"`
	Where         []FilterSpec    `json:"where,omitempty" yaml:"where,omitempty"`
	Sort          []SortSpec      `json:"sort,omitempty" yaml:"sort,omitempty"`
	Splits        []string        `json:"splits,omitempty" yaml:"splits,omitempty"`
	Limit         *int            `json:"limit,omitempty" yaml:"limit,omitempty"`

	// ViewID is passed through to the result untouched.
	ViewID string `json:"view_id,omitempty" yaml:"view_id,omitempty"`
}

// ColumnRequest selects one column. On the wire it is either an object
// {"column_id": ..., "params": {...}} or a bare column_id string.
type ColumnRequest struct {
	ColumnID registry.ColumnID `json:"column_id" yaml:"column_id"`
	Params   map[string]any    `json:"params,omitempty" yaml:"params,omitempty"`
}

type columnRequestObject struct {
	ColumnID registry.ColumnID `json:"column_id" yaml:"column_id"`
	Params   map[string]any    `json:"params,omitempty" yaml:"params,omitempty"`
}

// UnmarshalJSON accepts the bare-string shorthand.
func (c *ColumnRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*c = ColumnRequest{ColumnID: registry.ColumnID(id)}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj columnRequestObject
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("column request: %w", err)
	}
	*c = ColumnRequest(obj)
	return nil
}

// UnmarshalYAML accepts the bare-string shorthand.
func (c *ColumnRequest) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*c = ColumnRequest{ColumnID: registry.ColumnID(node.Value)}
		return nil
	}
	var obj columnRequestObject
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("column request: %w", err)
	}
	*c = ColumnRequest(obj)
	return nil
}

// FilterSpec is one where entry.
type FilterSpec struct {
	ColumnID    registry.ColumnID `json:"column_id" yaml:"column_id"`
	Operator    string            `json:"operator" yaml:"operator"`
	Value       any               `json:"value,omitempty" yaml:"value,omitempty"`
	Params      map[string]any    `json:"params,omitempty" yaml:"params,omitempty"`
	ColumnIndex *int              `json:"column_index,omitempty" yaml:"column_index,omitempty"`
}

// SortSpec is one sort entry.
type SortSpec struct {
	ColumnID    registry.ColumnID `json:"column_id" yaml:"column_id"`
	Desc        bool              `json:"desc,omitempty" yaml:"desc,omitempty"`
	Params      map[string]any    `json:"params,omitempty" yaml:"params,omitempty"`
	ColumnIndex *int              `json:"column_index,omitempty" yaml:"column_index,omitempty"`
}

// ParseRequestJSON decodes a JSON request. Numbers are kept as json.Number
// so large integers survive decoding exactly.
func ParseRequestJSON(data []byte) (Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var req Request
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// ParseRequestYAML decodes a YAML request.
func ParseRequestYAML(data []byte) (Request, error) {
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}
