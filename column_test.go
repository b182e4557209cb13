package jdb

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func testColumn(tag TypeTag, goType reflect.Type) *Column {
	return &Column{Name: "c", Type: tag, goType: goType}
}

func TestTypeTagOf(t *testing.T) {
	tests := []struct {
		v    any
		want TypeTag
		ok   bool
	}{
		{int(0), Integer, true},
		{uint16(0), Integer, true},
		{float32(0), Float, true},
		{"", String, true},
		{false, Boolean, true},
		{[]string{}, List, true},
		{[3]int{}, List, true},
		{map[string]int{}, Map, true},
		{map[int]string{}, 0, false},
		{Point{}, Composite, true},
		{&Point{}, Composite, true},
		{time.Time{}, String, true},
		{complex64(0), 0, false},
		{make(chan int), 0, false},
	}
	for _, tt := range tests {
		t.Run(reflect.TypeOf(tt.v).String(), func(t *testing.T) {
			got, ok := typeTagOf(reflect.TypeOf(tt.v))
			if got != tt.want || ok != tt.ok {
				t.Errorf("typeTagOf(%T) = %v, %v, want %v, %v", tt.v, got, ok, tt.want, tt.ok)
			}
		})
	}

	if _, ok := typeTagOf(reflect.TypeOf((*any)(nil)).Elem()); ok {
		t.Errorf("typeTagOf(any) succeeded, want failure")
	}
}

func TestColumnPrepare(t *testing.T) {
	intCol := testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem())
	floatCol := testColumn(Float, reflect.TypeOf((*float64)(nil)).Elem())
	strCol := testColumn(String, reflect.TypeOf((*string)(nil)).Elem())
	boolCol := testColumn(Boolean, reflect.TypeOf((*bool)(nil)).Elem())
	listCol := testColumn(List, reflect.TypeOf((*[]int)(nil)).Elem())
	mapCol := testColumn(Map, reflect.TypeOf((*map[string]any)(nil)).Elem())
	compCol := testColumn(Composite, reflect.TypeOf((*Point)(nil)).Elem())

	tests := []struct {
		name string
		col  *Column
		raw  any
		want any
	}{
		{"int nil", intCol, nil, int64(0)},
		{"int int", intCol, 5, int64(5)},
		{"int uint8", intCol, uint8(5), int64(5)},
		{"int float truncates", intCol, -2.7, int64(-2)},
		{"int string", intCol, " 12 ", int64(12)},
		{"int whole float string", intCol, "3.0", int64(3)},
		{"int bool", intCol, true, int64(1)},
		{"float nil", floatCol, nil, float64(0)},
		{"float int", floatCol, 2, float64(2)},
		{"float float32", floatCol, float32(0.1), 0.1},
		{"float string", floatCol, "1.25", 1.25},
		{"string nil", strCol, nil, ""},
		{"string int", strCol, 42, "42"},
		{"string float", strCol, 1.5, "1.5"},
		{"string bool", strCol, true, "true"},
		{"bool nil", boolCol, nil, false},
		{"bool int", boolCol, 2, true},
		{"bool string", boolCol, "false", false},
		{"list nil", listCol, nil, []any{}},
		{"list nil slice", listCol, []int(nil), []any{}},
		{"list slice", listCol, []int{1, 2}, []any{int64(1), int64(2)}},
		{"map nil", mapCol, nil, map[string]any{}},
		{"map typed", mapCol, map[string]int{"a": 1}, map[string]any{"a": int64(1)}},
		{"composite nil", compCol, nil, map[string]any{"x": int64(0), "y": int64(0)}},
		{"composite struct", compCol, Point{1, 2}, map[string]any{"x": int64(1), "y": int64(2)}},
		{"composite pointer", compCol, &Point{3, 4}, map[string]any{"x": int64(3), "y": int64(4)}},
		{"composite partial map", compCol, map[string]any{"x": 1}, map[string]any{"x": int64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.col.Prepare(tt.raw)
			if err != nil {
				t.Fatalf("Prepare(%v) failed: %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Prepare(%v) = %#v, want %#v", tt.raw, got, tt.want)
			}
			if !tt.col.Validate(got) {
				t.Errorf("Validate(Prepare(%v)) = false", tt.raw)
			}
		})
	}
}

func TestColumnPrepareIntegerBounds(t *testing.T) {
	col := testColumn(Integer, reflect.TypeOf((*int64)(nil)).Elem())
	deepEqual(t, must(col.Prepare(-math.Pow(2, 63))), any(int64(math.MinInt64)))
	deepEqual(t, must(col.Prepare("-9223372036854775808")), any(int64(math.MinInt64)))
	deepEqual(t, must(col.Prepare(math.Pow(2, 62))), any(int64(1<<62)))
	deepEqual(t, must(col.Prepare("4.611686018427388e18")), any(int64(1<<62)))
}

func TestColumnPrepareFailures(t *testing.T) {
	tests := []struct {
		name string
		col  *Column
		raw  any
	}{
		{"int from text", testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem()), "abc"},
		{"int from fractional string", testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem()), "1.5"},
		{"int from list", testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem()), []int{1}},
		{"int from 2^63", testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem()), math.Pow(2, 63)},
		{"int from -2^64", testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem()), -math.Pow(2, 64)},
		{"int from 2^63 string", testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem()), "9223372036854775808"},
		{"int from huge float string", testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem()), "1e300"},
		{"int from infinite string", testColumn(Integer, reflect.TypeOf((*int)(nil)).Elem()), "Inf"},
		{"float from text", testColumn(Float, reflect.TypeOf((*float64)(nil)).Elem()), "x"},
		{"float NaN", testColumn(Float, reflect.TypeOf((*float64)(nil)).Elem()), "NaN"},
		{"string from list", testColumn(String, reflect.TypeOf((*string)(nil)).Elem()), []string{"a"}},
		{"bool from text", testColumn(Boolean, reflect.TypeOf((*bool)(nil)).Elem()), "maybe"},
		{"list from string", testColumn(List, reflect.TypeOf((*[]int)(nil)).Elem()), "1,2"},
		{"map from list", testColumn(Map, reflect.TypeOf((*map[string]int)(nil)).Elem()), []int{}},
		{"composite unknown field", testColumn(Composite, reflect.TypeOf((*Point)(nil)).Elem()), map[string]any{"z": 1}},
		{"composite wrong type", testColumn(Composite, reflect.TypeOf((*Point)(nil)).Elem()), map[string]any{"x": "one"}},
		{"unsupported", testColumn(String, reflect.TypeOf((*string)(nil)).Elem()), make(chan int)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.col.Prepare(tt.raw)
			if !errors.Is(err, ErrInvalidValue) {
				t.Fatalf("Prepare(%v) error = %v, want ErrInvalidValue", tt.raw, err)
			}
			var ve *ValueError
			if !errors.As(err, &ve) || ve.Column != "c" {
				t.Fatalf("Prepare(%v) error = %v, want *ValueError for c", tt.raw, err)
			}
		})
	}
}

func TestColumnPrepareDefault(t *testing.T) {
	col := testColumn(List, reflect.TypeOf((*[]int)(nil)).Elem())
	col.Default = []any{int64(1)}
	col.HasDefault = true

	a := must(col.Prepare(nil)).([]any)
	a[0] = int64(99)
	deepEqual(t, must(col.Prepare(nil)), any([]any{int64(1)}))
}

func TestColumnValidateIsExact(t *testing.T) {
	deepEqual(t, testColumn(Integer, nil).Validate(1.0), false)
	deepEqual(t, testColumn(Integer, nil).Validate(int64(1)), true)
	deepEqual(t, testColumn(Float, nil).Validate(int64(1)), false)
	deepEqual(t, testColumn(String, nil).Validate(1), false)
	deepEqual(t, testColumn(List, nil).Validate([]any{}), true)
	deepEqual(t, testColumn(List, nil).Validate(map[string]any{}), false)
}
