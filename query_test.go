package jdb

import (
	"testing"
)

func TestMatch(t *testing.T) {
	rec := Record{
		"n":     int64(5),
		"f":     2.5,
		"s":     "hello world",
		"b":     true,
		"list":  []any{int64(1), "two", []any{int64(3)}},
		"m":     map[string]any{"k": int64(1)},
		"empty": nil,
	}

	tests := []struct {
		expr Expr
		want bool
	}{
		{Eq("n", 5), true},
		{Eq("n", 5.0), true},
		{Eq("n", "5"), false},
		{Ne("n", 4), true},
		{Ne("n", 5), false},
		{Ne("missing", 1), false},
		{Lt("n", 6), true},
		{Lt("n", 5), false},
		{Le("n", 5), true},
		{Gt("f", 2), true},
		{Ge("f", 2.5), true},
		{Gt("n", "a"), false},
		{Lt("s", "z"), true},
		{Gt("b", false), true},
		{Lt("m", 1), false},
		{Lt("empty", 1), false},
		{Eq("empty", nil), true},
		{Eq("missing", nil), false},
		{Contains("list", 1), true},
		{Contains("list", 1.0), true},
		{Contains("list", "two"), true},
		{Contains("list", []int{3}), true},
		{Contains("list", 4), false},
		{Contains("s", "lo w"), true},
		{Contains("s", 1), false},
		{Contains("m", "k"), true},
		{Contains("m", "z"), false},
		{Contains("n", 5), false},
		{Lt("list", []any{int64(1), "two", []any{int64(4)}}), true},
		{Eq("m", map[string]int{"k": 1}), true},
		{And(), true},
		{Or(), false},
		{And(Eq("n", 5), Eq("b", true)), true},
		{And(Eq("n", 5), Eq("b", false)), false},
		{Or(Eq("n", 1), Eq("b", true)), true},
		{Any(Where(Eq("n", 1)), Where(Eq("s", "x"))), false},
		{Any(Where(Eq("n", 1)), Where(Gt("n", 1), Contains("s", "world"))), true},
	}
	for _, tt := range tests {
		t.Run(tt.expr.String(), func(t *testing.T) {
			if got := Match(tt.expr, rec); got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}

	if !Match(nil, rec) {
		t.Errorf("Match(nil) = false, want true")
	}
}

func TestExprString(t *testing.T) {
	expr := Any(
		Where(Eq("a", 1), Ne("b", "x")),
		Where(Contains("tags", "go")),
	)
	deepEqual(t, expr.String(), `((a == 1 AND b != "x") OR tags contains "go")`)
	deepEqual(t, And().String(), "TRUE")
	deepEqual(t, Or().String(), "FALSE")
	deepEqual(t, Eq("x", nil).String(), "x == null")
}

func TestExprIsImmutable(t *testing.T) {
	conds := []Expr{Eq("a", 1)}
	expr := Where(conds...)
	conds[0] = Eq("a", 2)
	if !Match(expr, Record{"a": int64(1)}) {
		t.Errorf("expression changed after its operands slice was modified")
	}
}
