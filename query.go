package jdb

import (
	"fmt"
	"strings"
)

// Op is a comparison operator of a query leaf.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpContains
)

var opSymbols = [...]string{
	OpEq:       "==",
	OpNe:       "!=",
	OpLt:       "<",
	OpGt:       ">",
	OpLe:       "<=",
	OpGe:       ">=",
	OpContains: "contains",
}

func (op Op) String() string {
	if op >= 0 && int(op) < len(opSymbols) {
		return opSymbols[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Expr is an immutable query expression: a comparison, or an AND/OR of
// expressions. Evaluate it with Match.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// Cmp compares a column with a constant.
type Cmp struct {
	Column string
	Op     Op
	Value  any
}

type andExpr []Expr

type orExpr []Expr

func (Cmp) isExpr()     {}
func (andExpr) isExpr() {}
func (orExpr) isExpr()  {}

func cmp(column string, op Op, value any) Cmp {
	if c, err := canonical(value); err == nil {
		value = c
	}
	return Cmp{Column: column, Op: op, Value: value}
}

func Eq(column string, value any) Cmp       { return cmp(column, OpEq, value) }
func Ne(column string, value any) Cmp       { return cmp(column, OpNe, value) }
func Lt(column string, value any) Cmp       { return cmp(column, OpLt, value) }
func Gt(column string, value any) Cmp       { return cmp(column, OpGt, value) }
func Le(column string, value any) Cmp       { return cmp(column, OpLe, value) }
func Ge(column string, value any) Cmp       { return cmp(column, OpGe, value) }
func Contains(column string, value any) Cmp { return cmp(column, OpContains, value) }

// And matches when every operand matches; an empty And matches everything.
func And(exprs ...Expr) Expr {
	return andExpr(append([]Expr(nil), exprs...))
}

// Or matches when any operand matches; an empty Or matches nothing.
func Or(exprs ...Expr) Expr {
	return orExpr(append([]Expr(nil), exprs...))
}

// Where builds a single conjunctive clause.
func Where(conds ...Expr) Expr {
	return And(conds...)
}

// Any builds a disjunction of clauses, i.e. disjunctive normal form when
// each clause comes from Where.
func Any(clauses ...Expr) Expr {
	return Or(clauses...)
}

// Match evaluates e against rec. A comparison on a missing column, or
// between values of incomparable kinds, is false.
func Match(e Expr, rec Record) bool {
	switch e := e.(type) {
	case nil:
		return true
	case Cmp:
		return e.match(rec)
	case andExpr:
		for _, sub := range e {
			if !Match(sub, rec) {
				return false
			}
		}
		return true
	case orExpr:
		for _, sub := range e {
			if Match(sub, rec) {
				return true
			}
		}
		return false
	default:
		panic(fmt.Errorf("unknown expression %T", e))
	}
}

func (c Cmp) match(rec Record) bool {
	v, ok := rec[c.Column]
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return valuesEqual(v, c.Value)
	case OpNe:
		return !valuesEqual(v, c.Value)
	case OpContains:
		return contains(v, c.Value)
	}
	r, ok := compareValues(v, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpLt:
		return r < 0
	case OpGt:
		return r > 0
	case OpLe:
		return r <= 0
	case OpGe:
		return r >= 0
	default:
		return false
	}
}

func contains(container, v any) bool {
	switch c := container.(type) {
	case []any:
		for _, e := range c {
			if valuesEqual(e, v) {
				return true
			}
		}
		return false
	case string:
		s, ok := v.(string)
		return ok && strings.Contains(c, s)
	case map[string]any:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, found := c[s]
		return found
	default:
		return false
	}
}

func (c Cmp) String() string {
	return fmt.Sprintf("%s %v %s", c.Column, c.Op, literal(c.Value))
}

func (e andExpr) String() string {
	return joinExprs(e, " AND ", "TRUE")
}

func (e orExpr) String() string {
	return joinExprs(e, " OR ", "FALSE")
}

func joinExprs(exprs []Expr, sep, empty string) string {
	switch len(exprs) {
	case 0:
		return empty
	case 1:
		return exprs[0].String()
	}
	var buf strings.Builder
	buf.WriteByte('(')
	for i, sub := range exprs {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(sub.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

func literal(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if v == nil {
		return "null"
	}
	return keyString(v)
}
