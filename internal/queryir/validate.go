package queryir

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError lists every structural problem found in a query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

var (
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	numberPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
)

var compareOps = map[string]bool{
	"=": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
}

// Validate checks the structural rules every rendered query must satisfy:
//
//  1. CTE names are unique identifiers
//  2. The main select has an ORDER BY and a positive LIMIT
//  3. Every non-cross join has an ON condition
//  4. Ordinals point inside the select list
//  5. Literals are well formed and IN lists are non-empty
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	seen := make(map[string]bool, len(q.CTEs))
	for _, cte := range q.CTEs {
		if !identPattern.MatchString(cte.Name) {
			v.addProblem("CTE name %q is not an identifier", cte.Name)
		}
		if seen[cte.Name] {
			v.addProblem("duplicate CTE name %q", cte.Name)
		}
		seen[cte.Name] = true
		v.validateRelation(cte.Body, "CTE "+cte.Name)
	}

	if len(q.Main.OrderBy) == 0 {
		v.addProblem("main select has no ORDER BY")
	}
	if q.Main.Limit <= 0 {
		v.addProblem("main select limit must be positive, got %d", q.Main.Limit)
	}
	v.validateSelect(q.Main, "main")

	if len(v.problems) > 0 {
		return &ValidationError{Problems: v.problems}
	}
	return nil
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateRelation(r Relation, where string) {
	switch rel := r.(type) {
	case Select:
		v.validateSelect(rel, where)
	case Union:
		if len(rel.Selects) < 2 {
			v.addProblem("%s: union needs at least two selects", where)
		}
		width := -1
		for i, s := range rel.Selects {
			if width >= 0 && len(s.Columns) != width {
				v.addProblem("%s: union branch %d has %d columns, want %d", where, i, len(s.Columns), width)
			}
			width = len(s.Columns)
			v.validateSelect(s, where)
		}
	case nil:
		v.addProblem("%s: nil relation", where)
	default:
		v.addProblem("%s: unknown relation type %T", where, r)
	}
}

func (v *validator) validateSelect(s Select, where string) {
	if len(s.Columns) == 0 {
		v.addProblem("%s: empty select list", where)
	}
	for _, c := range s.Columns {
		if c.Expr == "" {
			v.addProblem("%s: empty column expression", where)
		}
		if c.Alias != "" && !identPattern.MatchString(c.Alias) {
			v.addProblem("%s: alias %q is not an identifier", where, c.Alias)
		}
	}

	if s.From != nil {
		v.validateTableRef(s.From, where)
	} else if len(s.Joins) > 0 {
		v.addProblem("%s: joins without FROM", where)
	}
	for _, j := range s.Joins {
		v.validateTableRef(j.Table, where)
		switch {
		case j.Kind == JoinCross && j.On != nil:
			v.addProblem("%s: cross join with ON condition", where)
		case j.Kind != JoinCross && j.On == nil:
			v.addProblem("%s: %s without ON condition", where, j.Kind)
		}
		v.validatePredicate(j.On, where)
	}
	v.validatePredicate(s.Where, where)
	v.validatePredicate(s.Having, where)

	for _, o := range s.OrderBy {
		switch {
		case o.Ordinal != 0 && o.Expr != "":
			v.addProblem("%s: order term has both ordinal and expression", where)
		case o.Ordinal == 0 && o.Expr == "":
			v.addProblem("%s: empty order term", where)
		case o.Ordinal < 0 || o.Ordinal > len(s.Columns):
			v.addProblem("%s: order ordinal %d out of range", where, o.Ordinal)
		}
	}
	if s.Limit < 0 {
		v.addProblem("%s: negative limit", where)
	}
}

func (v *validator) validateTableRef(t TableRef, where string) {
	switch ref := t.(type) {
	case Table:
		if !identPattern.MatchString(ref.Name) {
			v.addProblem("%s: table name %q is not an identifier", where, ref.Name)
		}
		if ref.Alias != "" && !identPattern.MatchString(ref.Alias) {
			v.addProblem("%s: table alias %q is not an identifier", where, ref.Alias)
		}
	case Subquery:
		if !identPattern.MatchString(ref.Alias) {
			v.addProblem("%s: subquery needs an identifier alias", where)
		}
		v.validateRelation(ref.Body, where)
	default:
		v.addProblem("%s: unknown table reference %T", where, t)
	}
}

func (v *validator) validatePredicate(p Predicate, where string) {
	switch pred := p.(type) {
	case nil:
	case Compare:
		if !compareOps[pred.Op] {
			v.addProblem("%s: unknown comparison operator %q", where, pred.Op)
		}
		v.validateOperand(pred.Right, where)
	case In:
		if len(pred.Values) == 0 {
			v.addProblem("%s: empty IN list on %s", where, pred.Left)
		}
		for _, o := range pred.Values {
			v.validateOperand(o, where)
		}
	case Between:
		v.validateOperand(pred.Low, where)
		v.validateOperand(pred.High, where)
	case IsNull:
		if pred.Left == "" {
			v.addProblem("%s: IS NULL without operand", where)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, where)
		}
	case Raw:
		if strings.TrimSpace(pred.SQL) == "" {
			v.addProblem("%s: empty raw predicate", where)
		}
	default:
		v.addProblem("%s: unknown predicate type %T", where, p)
	}
}

func (v *validator) validateOperand(o Operand, where string) {
	switch op := o.(type) {
	case Number:
		if !numberPattern.MatchString(string(op)) {
			v.addProblem("%s: malformed number literal %q", where, string(op))
		}
	case String:
		if strings.ContainsRune(string(op), 0) {
			v.addProblem("%s: string literal contains NUL", where)
		}
	case Ref:
		if op == "" {
			v.addProblem("%s: empty reference", where)
		}
	default:
		v.addProblem("%s: unknown operand %T", where, o)
	}
}
