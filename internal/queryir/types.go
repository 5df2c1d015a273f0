package queryir

import (
	"fmt"
	"math"
	"strconv"
)

// Query is a complete statement: optional CTEs followed by the main select.
type Query struct {
	CTEs []CTE
	Main Select
}

// CTE is one named entry of a WITH clause.
type CTE struct {
	Name string
	Body Relation
}

// Relation is anything that produces rows: a Select or a Union.
//
// This is a sealed interface - only types in this package implement it.
type Relation interface {
	relationNode()
}

// Select is a single SELECT statement. A nil From renders a FROM-less
// select, which is only valid without joins.
//
//	SELECT [DISTINCT] <columns> FROM <from> <joins>
//	[WHERE <where>] [GROUP BY <group_by>] [HAVING <having>]
//	[ORDER BY <order_by>] [LIMIT <limit>]
type Select struct {
	Distinct bool
	Columns  []Column
	From     TableRef
	Joins    []Join
	Where    Predicate // nil = no filter
	GroupBy  []string
	Having   Predicate // nil = no filter
	OrderBy  []OrderTerm
	Limit    int // 0 = no limit
}

func (Select) relationNode() {}

// Union concatenates selects with UNION ALL.
type Union struct {
	Selects []Select
}

func (Union) relationNode() {}

// Column is one select-list entry.
type Column struct {
	Expr  string
	Alias string // empty = no alias
}

// Col is shorthand for an aliased column.
func Col(expr, alias string) Column {
	return Column{Expr: expr, Alias: alias}
}

// TableRef is the target of a FROM or JOIN.
//
// This is a sealed interface - only types in this package implement it.
type TableRef interface {
	tableRefNode()
}

// Table references a base table or CTE by name.
type Table struct {
	Name  string
	Alias string
}

func (Table) tableRefNode() {}

// Subquery is a derived table.
type Subquery struct {
	Body  Relation
	Alias string
}

func (Subquery) tableRefNode() {}

// JoinKind selects the join operator.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinCross
)

func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinCross:
		return "CROSS JOIN"
	}
	return fmt.Sprintf("JoinKind(%d)", int(k))
}

// Join attaches a table to the FROM clause. On is required unless Kind is
// JoinCross.
type Join struct {
	Kind  JoinKind
	Table TableRef
	On    Predicate
}

// OrderTerm is one ORDER BY entry. Exactly one of Ordinal (1-based select
// list position) or Expr is set.
type OrderTerm struct {
	Ordinal   int
	Expr      string
	Desc      bool
	NullsLast bool
}

// Predicate is a boolean condition in WHERE, HAVING or ON.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Compare is <Left> <Op> <Right> for one of =, !=, >, >=, <, <=.
type Compare struct {
	Left  string
	Op    string
	Right Operand
}

func (Compare) predicateNode() {}

// In is <Left> [NOT] IN (<Values>). Values must be non-empty.
type In struct {
	Left   string
	Values []Operand
	Negate bool
}

func (In) predicateNode() {}

// Between is <Left> BETWEEN <Low> AND <High>.
type Between struct {
	Left string
	Low  Operand
	High Operand
}

func (Between) predicateNode() {}

// IsNull is <Left> IS [NOT] NULL.
type IsNull struct {
	Left   string
	Negate bool
}

func (IsNull) predicateNode() {}

// And is a conjunction. Empty And renders as nothing when used as a
// top-level clause.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Raw is a trusted predicate fragment taken from the column catalog.
type Raw struct {
	SQL string
}

func (Raw) predicateNode() {}

// Conj builds an And from the non-nil predicates, flattening nested Ands.
// It returns nil when nothing remains and the predicate itself when only
// one does.
func Conj(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
		case And:
			if c := Conj(v.Predicates...); c != nil {
				if a, ok := c.(And); ok {
					out = append(out, a.Predicates...)
				} else {
					out = append(out, c)
				}
			}
		default:
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return And{Predicates: out}
}

// Operand is the right-hand side of a predicate.
//
// This is a sealed interface - only types in this package implement it.
type Operand interface {
	operandNode()
}

// Ref is a trusted expression, usually a qualified column.
type Ref string

func (Ref) operandNode() {}

// String is a text literal. The renderer quotes and escapes it.
type String string

func (String) operandNode() {}

// Number is a numeric literal in its canonical decimal text.
type Number string

func (Number) operandNode() {}

// Int returns the Number literal for n.
func Int(n int) Number {
	return Number(strconv.Itoa(n))
}

// Float returns the Number literal for f. Integral values render without a
// fractional part so 3.0 and 3 produce the same SQL.
func Float(f float64) (Number, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return Number(strconv.FormatInt(int64(f), 10)), nil
	}
	return Number(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// Ints converts a slice of ints into operands.
func Ints(ns []int) []Operand {
	out := make([]Operand, len(ns))
	for i, n := range ns {
		out[i] = Int(n)
	}
	return out
}

// Strings converts a slice of strings into operands.
func Strings(ss []string) []Operand {
	out := make([]Operand, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}
