// Package querysql renders queryir trees to SQL text.
//
// Output is a single line with literals interpolated: strings are quoted
// with doubled single quotes and numbers are written in canonical decimal
// form. The dialect is the common subset of PostgreSQL and SQLite 3.30+
// (NULLS LAST, CTEs, CAST AS DECIMAL, ordinal ORDER BY).
package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dataview/internal/queryir"
)

// Render validates q and renders it to SQL.
//
// Every query is validated first; Validate guarantees the main select has
// an ORDER BY so row order is deterministic for a given dataset.
func Render(q queryir.Query) (string, error) {
	if err := queryir.Validate(q); err != nil {
		return "", err
	}
	var b strings.Builder
	if len(q.CTEs) > 0 {
		b.WriteString("WITH ")
		for i, cte := range q.CTEs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(cte.Name)
			b.WriteString(" AS (")
			if err := writeRelation(&b, cte.Body); err != nil {
				return "", fmt.Errorf("render CTE %s: %w", cte.Name, err)
			}
			b.WriteString(")")
		}
		b.WriteString(" ")
	}
	if err := writeSelect(&b, q.Main); err != nil {
		return "", fmt.Errorf("render main select: %w", err)
	}
	return b.String(), nil
}

// RenderPredicate renders a single predicate. It is used by callers that
// embed filter fragments in error messages and logs.
func RenderPredicate(p queryir.Predicate) (string, error) {
	var b strings.Builder
	if err := writePredicate(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeRelation(b *strings.Builder, r queryir.Relation) error {
	switch rel := r.(type) {
	case queryir.Select:
		return writeSelect(b, rel)
	case queryir.Union:
		for i, s := range rel.Selects {
			if i > 0 {
				b.WriteString(" UNION ALL ")
			}
			if err := writeSelect(b, s); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported relation type: %T", r)
	}
}

func writeSelect(b *strings.Builder, s queryir.Select) error {
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Expr)
		if c.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(c.Alias)
		}
	}

	if s.From != nil {
		b.WriteString(" FROM ")
		if err := writeTableRef(b, s.From); err != nil {
			return err
		}
	}
	for _, j := range s.Joins {
		b.WriteString(" ")
		b.WriteString(j.Kind.String())
		b.WriteString(" ")
		if err := writeTableRef(b, j.Table); err != nil {
			return err
		}
		if j.On != nil {
			b.WriteString(" ON ")
			if err := writePredicate(b, j.On); err != nil {
				return err
			}
		}
	}

	if s.Where != nil && !isEmptyAnd(s.Where) {
		b.WriteString(" WHERE ")
		if err := writePredicate(b, s.Where); err != nil {
			return err
		}
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}
	if s.Having != nil && !isEmptyAnd(s.Having) {
		b.WriteString(" HAVING ")
		if err := writePredicate(b, s.Having); err != nil {
			return err
		}
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			writeOrderTerm(b, o)
		}
	}
	if s.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.Limit))
	}
	return nil
}

func writeTableRef(b *strings.Builder, t queryir.TableRef) error {
	switch ref := t.(type) {
	case queryir.Table:
		b.WriteString(ref.Name)
		if ref.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(ref.Alias)
		}
		return nil
	case queryir.Subquery:
		b.WriteString("(")
		if err := writeRelation(b, ref.Body); err != nil {
			return err
		}
		b.WriteString(") AS ")
		b.WriteString(ref.Alias)
		return nil
	default:
		return fmt.Errorf("unsupported table reference: %T", t)
	}
}

func writeOrderTerm(b *strings.Builder, o queryir.OrderTerm) {
	if o.Ordinal > 0 {
		b.WriteString(strconv.Itoa(o.Ordinal))
	} else {
		b.WriteString(o.Expr)
	}
	if o.Desc {
		b.WriteString(" DESC")
	} else {
		b.WriteString(" ASC")
	}
	if o.NullsLast {
		b.WriteString(" NULLS LAST")
	}
}

func writePredicate(b *strings.Builder, p queryir.Predicate) error {
	switch pred := p.(type) {
	case queryir.Compare:
		b.WriteString(pred.Left)
		b.WriteString(" ")
		b.WriteString(pred.Op)
		b.WriteString(" ")
		return writeOperand(b, pred.Right)
	case queryir.In:
		b.WriteString(pred.Left)
		if pred.Negate {
			b.WriteString(" NOT IN (")
		} else {
			b.WriteString(" IN (")
		}
		for i, v := range pred.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeOperand(b, v); err != nil {
				return err
			}
		}
		b.WriteString(")")
		return nil
	case queryir.Between:
		b.WriteString(pred.Left)
		b.WriteString(" BETWEEN ")
		if err := writeOperand(b, pred.Low); err != nil {
			return err
		}
		b.WriteString(" AND ")
		return writeOperand(b, pred.High)
	case queryir.IsNull:
		b.WriteString(pred.Left)
		if pred.Negate {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
		return nil
	case queryir.And:
		first := true
		for _, sub := range pred.Predicates {
			if sub == nil || isEmptyAnd(sub) {
				continue
			}
			if !first {
				b.WriteString(" AND ")
			}
			first = false
			if err := writePredicate(b, sub); err != nil {
				return err
			}
		}
		return nil
	case queryir.Raw:
		b.WriteString(pred.SQL)
		return nil
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func writeOperand(b *strings.Builder, o queryir.Operand) error {
	switch op := o.(type) {
	case queryir.Ref:
		b.WriteString(string(op))
	case queryir.Number:
		b.WriteString(string(op))
	case queryir.String:
		b.WriteString(QuoteString(string(op)))
	default:
		return fmt.Errorf("unsupported operand: %T", o)
	}
	return nil
}

// QuoteString returns s as a SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isEmptyAnd(p queryir.Predicate) bool {
	a, ok := p.(queryir.And)
	if !ok {
		return false
	}
	for _, sub := range a.Predicates {
		if sub != nil && !isEmptyAnd(sub) {
			return false
		}
	}
	return true
}
