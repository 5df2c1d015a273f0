package harness

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// AssertionError is a failed assertion with the compiled query for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Query    string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Query != "" {
		fmt.Fprintf(&buf, "  Query: %s\n", e.Query)
	}
	return buf.String()
}

func evaluate(r *Result, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Query: r.Query}
	}

	if a.Type != AssertErrorCode && r.ErrorCode != "" {
		return fail("a compiled query", "compile error "+r.ErrorCode)
	}
	if a.needsExecution() && !r.Executed {
		return fail("query results", "query was not executed")
	}

	switch a.Type {
	case AssertSQLContains:
		if !strings.Contains(r.Query, a.Text) {
			return fail(fmt.Sprintf("query containing %q", a.Text), "not found")
		}
	case AssertSQLNotContains:
		if strings.Contains(r.Query, a.Text) {
			return fail(fmt.Sprintf("query without %q", a.Text), "found")
		}
	case AssertErrorCode:
		if r.ErrorCode != a.Code {
			actual := r.ErrorCode
			if actual == "" {
				actual = "compiled without error"
			}
			return fail(a.Code, actual)
		}
	case AssertCacheTTL:
		if r.Metadata.CacheTTL != *a.Value {
			return fail(strconv.FormatInt(*a.Value, 10), strconv.FormatInt(r.Metadata.CacheTTL, 10))
		}
	case AssertCacheExpireAt:
		return assertExpireAt(r, a, fail)
	case AssertColumns:
		if !slices.Equal(r.Columns, a.Columns) {
			return fail(fmt.Sprint(a.Columns), fmt.Sprint(r.Columns))
		}
	case AssertRowCount:
		if int64(len(r.Rows)) != *a.Value {
			return fail(fmt.Sprintf("%d rows", *a.Value), fmt.Sprintf("%d rows", len(r.Rows)))
		}
	case AssertRow:
		return assertRow(r, a, fail)
	}
	return nil
}

func assertExpireAt(r *Result, a Assertion, fail func(string, string) error) error {
	got := r.Metadata.CacheExpireAt
	switch {
	case a.Value == nil && got == nil:
		return nil
	case a.Value == nil:
		return fail("no expiry", strconv.FormatInt(*got, 10))
	case got == nil:
		return fail(strconv.FormatInt(*a.Value, 10), "no expiry")
	case *got != *a.Value:
		return fail(strconv.FormatInt(*a.Value, 10), strconv.FormatInt(*got, 10))
	}
	return nil
}

// assertRow checks a subset of one row's values. Numbers compare by value
// whatever their Go type; a null expectation matches SQL NULL.
func assertRow(r *Result, a Assertion, fail func(string, string) error) error {
	if a.Row >= len(r.Rows) {
		return fail(fmt.Sprintf("row %d", a.Row), fmt.Sprintf("%d rows", len(r.Rows)))
	}
	row := r.Rows[a.Row]

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		idx := r.column(k)
		if idx < 0 {
			return fail(fmt.Sprintf("column %s", k), fmt.Sprintf("columns %v", r.Columns))
		}
		if !valuesEqual(a.Expect[k], row[idx]) {
			return fail(fmt.Sprintf("row %d %s = %v", a.Row, k, a.Expect[k]), fmt.Sprintf("%v", row[idx]))
		}
	}
	return nil
}

func valuesEqual(want, got any) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}
	wf, wok := number(want)
	gf, gok := number(got)
	if wok && gok {
		return math.Abs(wf-gf) < 1e-9
	}
	return fmt.Sprint(want) == fmt.Sprint(got)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
