package jdb

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// TypeTag is the declared kind of a column.
type TypeTag int

const (
	Integer TypeTag = iota + 1
	Float
	String
	Boolean
	List
	Map
	Composite
)

var typeTagNames = map[TypeTag]string{
	Integer:   "integer",
	Float:     "float",
	String:    "string",
	Boolean:   "boolean",
	List:      "list",
	Map:       "map",
	Composite: "composite",
}

func (t TypeTag) String() string {
	if s, ok := typeTagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TypeTag(%d)", int(t))
}

// typeTagOf maps a Go field type to its column type. ok is false for types
// that have no declared column type (interfaces, channels, functions, complex).
func typeTagOf(t reflect.Type) (TypeTag, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	// time.Time and friends marshal to JSON strings
	if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return String, true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer, true
	case reflect.Float32, reflect.Float64:
		return Float, true
	case reflect.String:
		return String, true
	case reflect.Bool:
		return Boolean, true
	case reflect.Slice, reflect.Array:
		return List, true
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return 0, false
		}
		return Map, true
	case reflect.Struct:
		return Composite, true
	default:
		return 0, false
	}
}

// Column is one typed field of a table.
type Column struct {
	Name       string
	Type       TypeTag
	Default    any
	HasDefault bool

	goType     reflect.Type
	fieldIndex []int
}

func (col *Column) String() string {
	if col.HasDefault {
		return fmt.Sprintf("%s %v = %s", col.Name, col.Type, keyString(col.Default))
	}
	return fmt.Sprintf("%s %v", col.Name, col.Type)
}

// GoType returns the struct field type the column was derived from.
func (col *Column) GoType() reflect.Type {
	return col.goType
}

// Prepare turns a raw value into one that satisfies the column type.
// A nil value yields the default, or the zero value of the type.
func (col *Column) Prepare(raw any) (any, error) {
	v, err := canonical(raw)
	if err != nil {
		return nil, &ValueError{Column: col.Name, Value: raw, Err: err}
	}
	if v == nil {
		if col.HasDefault {
			return cloneValue(col.Default), nil
		}
		return col.zero(), nil
	}
	if col.Validate(v) {
		return v, nil
	}
	c, err := col.convert(v)
	if err != nil {
		return nil, &ValueError{Column: col.Name, Value: raw, Err: err}
	}
	if !col.Validate(c) {
		return nil, &ValueError{Column: col.Name, Value: raw}
	}
	return c, nil
}

// Validate reports whether v, which must be canonical, matches the column
// type exactly.
func (col *Column) Validate(v any) bool {
	switch col.Type {
	case Integer:
		_, ok := v.(int64)
		return ok
	case Float:
		f, ok := v.(float64)
		return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
	case String:
		_, ok := v.(string)
		return ok
	case Boolean:
		_, ok := v.(bool)
		return ok
	case List:
		_, ok := v.([]any)
		return ok
	case Map:
		_, ok := v.(map[string]any)
		return ok
	case Composite:
		m, ok := v.(map[string]any)
		return ok && col.decodeStrict(m) == nil
	default:
		return false
	}
}

func (col *Column) zero() any {
	switch col.Type {
	case Integer:
		return int64(0)
	case Float:
		return float64(0)
	case String:
		return ""
	case Boolean:
		return false
	case List:
		return []any{}
	case Map:
		return map[string]any{}
	case Composite:
		t := col.goType
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		return must(canonical(reflect.New(t).Elem().Interface()))
	default:
		panic(fmt.Errorf("column %s has invalid type %v", col.Name, col.Type))
	}
}

func (col *Column) convert(v any) (any, error) {
	switch col.Type {
	case Integer:
		switch x := v.(type) {
		case float64:
			if !inInt64Range(x) {
				return nil, fmt.Errorf("%v out of integer range", x)
			}
			return int64(x), nil
		case string:
			s := strings.TrimSpace(x)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || f != math.Trunc(f) || !inInt64Range(f) {
				return nil, fmt.Errorf("%q is not an integer", x)
			}
			return int64(f), nil
		case bool:
			return int64(boolInt(x)), nil
		}
	case Float:
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", x)
			}
			return f, nil
		case bool:
			return float64(boolInt(x)), nil
		}
	case String:
		switch v.(type) {
		case int64, float64, bool:
			return keyString(v), nil
		}
	case Boolean:
		switch x := v.(type) {
		case int64:
			return x != 0, nil
		case float64:
			return x != 0, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", x)
			}
			return b, nil
		}
	case Composite:
		if m, ok := v.(map[string]any); ok {
			if err := col.decodeStrict(m); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %v", v, col.Type)
}

// inInt64Range reports whether int64(f) is exact in magnitude. float64(MaxInt64)
// rounds up to 2^63, so the upper bound is exclusive.
func inInt64Range(f float64) bool {
	return f >= -0x1p63 && f < 0x1p63
}

// decodeStrict checks that m decodes into the column's struct type without
// unknown fields.
func (col *Column) decodeStrict(m map[string]any) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(reflect.New(col.goType).Interface())
}

// fixup performs lossless adjustments to decoded values; JSON writes whole
// floats without a fraction, so they read back as integers.
func (col *Column) fixup(v any) any {
	switch col.Type {
	case Float:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	case Integer:
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
	}
	return v
}
