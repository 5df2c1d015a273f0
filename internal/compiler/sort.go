package compiler

import (
	"github.com/roach88/dataview/internal/queryir"
	"github.com/roach88/dataview/internal/registry"
)

// nthOccurrence returns the position in occs of the k-th non-prefix
// occurrence of id.
func nthOccurrence(occs []occurrence, id registry.ColumnID, k int) (int, bool) {
	for i, o := range occs {
		if o.columnID == id && !o.prefix {
			if k == 0 {
				return i, true
			}
			k--
		}
	}
	return 0, false
}

// firstOccurrence returns the first occurrence of id, prefix or not.
func firstOccurrence(occs []occurrence, id registry.ColumnID) (int, bool) {
	for i, o := range occs {
		if o.columnID == id {
			return i, true
		}
	}
	return 0, false
}

// sortTerms compiles the sort list into ordinal ORDER BY terms. Ordinal 1 is
// pid, so occurrence i sits at i+2. A repeated ordinal keeps its first
// direction.
func (c *Compiler) sortTerms(req Request, st *compileState) ([]queryir.OrderTerm, error) {
	var terms []queryir.OrderTerm
	seen := make(map[int]bool)
	for _, s := range req.Sort {
		pos, err := c.sortPosition(s, st)
		if err != nil {
			return nil, err
		}
		ordinal := pos + 2
		if seen[ordinal] {
			continue
		}
		seen[ordinal] = true
		terms = append(terms, queryir.OrderTerm{Ordinal: ordinal, Desc: s.Desc, NullsLast: true})
	}

	terms = append(terms, queryir.OrderTerm{Expr: "pid"})
	if st.split.hasYear() {
		terms = append(terms, queryir.OrderTerm{Expr: "year"})
	}
	if st.split.hasWeek() {
		terms = append(terms, queryir.OrderTerm{Expr: "week"})
	}
	return terms, nil
}

func (c *Compiler) sortPosition(s SortSpec, st *compileState) (int, error) {
	id := s.ColumnID
	if _, ok := c.registry.Lookup(id); !ok {
		return 0, invalidColumn(string(id), "unknown sort column %q", id)
	}

	if s.ColumnIndex != nil {
		pos, ok := nthOccurrence(st.occurrences, id, *s.ColumnIndex)
		if !ok {
			return 0, invalidColumn(string(id), "sort column_index %d out of range", *s.ColumnIndex)
		}
		return pos, nil
	}

	if len(s.Params) > 0 {
		rc, err := c.resolveColumn(id, s.Params, st.season)
		if err != nil {
			return 0, err
		}
		params, err := finalizeParams(rc, st.split, st.season)
		if err != nil {
			return 0, err
		}
		alias, err := instanceAlias(id, params)
		if err != nil {
			return 0, err
		}
		for i, o := range st.occurrences {
			if o.columnID == id && st.arena.items[o.inst].alias == alias {
				return i, nil
			}
		}
		return 0, invalidColumn(string(id), "sort column is not selected with these params")
	}

	pos, ok := firstOccurrence(st.occurrences, id)
	if !ok {
		return 0, invalidColumn(string(id), "sort column is not selected")
	}
	return pos, nil
}
