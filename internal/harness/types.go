package harness

import "github.com/roach88/dataview/internal/compiler"

// Result is the outcome of one scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Query is empty when compilation failed.
	Query    string                 `json:"query,omitempty"`
	Hash     string                 `json:"hash,omitempty"`
	Metadata compiler.CacheMetadata `json:"data_view_metadata"`

	// ErrorCode is set when compilation failed with a compile error.
	ErrorCode string `json:"error_code,omitempty"`

	// Columns and Rows are set when the query was executed.
	Columns  []string `json:"columns,omitempty"`
	Rows     [][]any  `json:"rows,omitempty"`
	Executed bool     `json:"executed"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failed check.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// column returns the index of the named result column, or -1.
func (r *Result) column(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
