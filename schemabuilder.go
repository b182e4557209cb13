package jdb

import (
	"fmt"
	"reflect"
	"slices"
)

// TableBuilder configures a table inside DefineTable.
type TableBuilder[Row any] struct {
	scm *Schema
}

// DefineTable derives a schema from the exported fields of Row. Column names
// follow encoding/json naming; fields tagged json:"-" are skipped, and a
// string field tagged jdb:"key" receives the record key on reads. A zero
// value in a non-pointer field counts as provided, so defaults declared
// with Default apply to typed rows only through nil pointers, slices and
// maps.
//
// Definition mistakes are programming errors and panic.
func DefineTable[Row any](name string, f func(b *TableBuilder[Row])) *Schema {
	rowType := reflect.TypeOf((*Row)(nil)).Elem()
	if rowType.Kind() != reflect.Struct {
		panic(fmt.Errorf("%s: row type %v is not a struct", name, rowType))
	}
	if name == "" {
		panic(fmt.Errorf("%v: empty table name", rowType))
	}
	scm := &Schema{
		name:           name,
		rowType:        rowType,
		columnsByName:  make(map[string]*Column),
		key:            RandomKey(),
		allowInvalid:   true,
		recoverCorrupt: true,
	}
	reflectColumns(scm, rowType, nil)
	if len(scm.columns) == 0 {
		panic(fmt.Errorf("%s: %v has no columns", name, rowType))
	}

	if f != nil {
		f(&TableBuilder[Row]{scm})
	}

	for _, field := range scm.key.fields {
		if scm.columnsByName[field] == nil {
			panic(fmt.Errorf("%s: key strategy %v uses unknown column %s", name, scm.key, field))
		}
	}
	return scm
}

func reflectColumns(scm *Schema, t reflect.Type, index []int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(slices.Clone(index), i)

		jsonName, _, _ := splitByte(f.Tag.Get("json"), ',')
		if f.Tag.Get("jdb") == "key" {
			if f.Type.Kind() != reflect.String {
				panic(fmt.Errorf("%s: key field %s must be a string, got %v", scm.name, f.Name, f.Type))
			}
			if scm.keyField != nil {
				panic(fmt.Errorf("%s: multiple key fields", scm.name))
			}
			scm.keyField = idx
			switch jsonName {
			case "-":
			case "":
				scm.keyFieldName = f.Name
			default:
				scm.keyFieldName = jsonName
			}
			continue
		}
		if jsonName == "-" {
			continue
		}
		if f.Anonymous && jsonName == "" {
			if f.Type.Kind() == reflect.Struct {
				reflectColumns(scm, f.Type, idx)
				continue
			}
			if f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct {
				panic(fmt.Errorf("%s: embedded pointer %v is not supported", scm.name, f.Type))
			}
		}
		if !f.IsExported() {
			continue
		}

		name := jsonName
		if name == "" {
			name = f.Name
		}
		tag, ok := typeTagOf(f.Type)
		if !ok {
			panic(fmt.Errorf("%s: field %s of type %v has no declared column type", scm.name, f.Name, f.Type))
		}
		scm.addColumn(&Column{
			Name:       name,
			Type:       tag,
			goType:     f.Type,
			fieldIndex: idx,
		})
	}
}

// Default sets the value used when a column is absent or invalid. Rows
// stored through Table always carry every field, so a default only takes
// effect there for pointer, slice and map fields left nil.
func (b *TableBuilder[Row]) Default(column string, value any) {
	col := b.scm.columnsByName[column]
	if col == nil {
		panic(fmt.Errorf("%s: default for unknown column %s", b.scm.name, column))
	}
	v, err := canonical(value)
	if err != nil {
		panic(fmt.Errorf("%s: default for %s: %w", b.scm.name, column, err))
	}
	if v != nil {
		v = col.fixup(v)
	}
	if v == nil || !col.Validate(v) {
		panic(fmt.Errorf("%s: default %v for %s does not satisfy %v", b.scm.name, value, column, col.Type))
	}
	col.Default = v
	col.HasDefault = true
}

func (b *TableBuilder[Row]) Key(ks KeyStrategy) {
	b.scm.key = ks
}

// AllowInvalidValues controls whether an invalid value without a default
// is replaced by the zero value (true, the default) or rejected.
func (b *TableBuilder[Row]) AllowInvalidValues(allow bool) {
	b.scm.allowInvalid = allow
}

// RecoverCorruptDocument controls whether an undecodable document is dumped
// aside and reset (true, the default) or reported as ErrCorruptDocument.
func (b *TableBuilder[Row]) RecoverCorruptDocument(enable bool) {
	b.scm.recoverCorrupt = enable
}

func (b *TableBuilder[Row]) SuppressContentWhenLogging() {
	b.scm.suppressContent = true
}
