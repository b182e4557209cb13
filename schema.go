package jdb

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/invopop/jsonschema"
)

// Schema describes one table: its row type, columns in declaration order,
// key strategy and storage options. Build it with DefineTable.
type Schema struct {
	name          string
	rowType       reflect.Type
	columns       []*Column
	columnsByName map[string]*Column
	keyField      []int
	keyFieldName  string
	key           KeyStrategy

	allowInvalid    bool
	recoverCorrupt  bool
	suppressContent bool
}

func (scm *Schema) Name() string {
	return scm.name
}

func (scm *Schema) String() string {
	return scm.name
}

// RowType is the struct type the schema was derived from.
func (scm *Schema) RowType() reflect.Type {
	return scm.rowType
}

func (scm *Schema) Columns() []*Column {
	return slices.Clone(scm.columns)
}

func (scm *Schema) ColumnNames() []string {
	names := make([]string, len(scm.columns))
	for i, col := range scm.columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column, or nil.
func (scm *Schema) Column(name string) *Column {
	return scm.columnsByName[name]
}

func (scm *Schema) KeyStrategy() KeyStrategy {
	return scm.key
}

func (scm *Schema) AllowInvalidValues() bool {
	return scm.allowInvalid
}

func (scm *Schema) RecoverCorruptDocument() bool {
	return scm.recoverCorrupt
}

// JSONSchema describes the stored record shape, with declared defaults.
func (scm *Schema) JSONSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	s := r.ReflectFromType(scm.rowType)
	s.Title = scm.name
	s.Description = fmt.Sprintf("%s records, keyed by %v", scm.name, scm.key)
	if s.Properties != nil {
		if scm.keyFieldName != "" {
			s.Properties.Delete(scm.keyFieldName)
			s.Required = slices.DeleteFunc(s.Required, func(n string) bool { return n == scm.keyFieldName })
		}
		for _, col := range scm.columns {
			if !col.HasDefault {
				continue
			}
			if prop, ok := s.Properties.Get(col.Name); ok && prop != nil {
				prop.Default = col.Default
			}
		}
	}
	return s
}

func (scm *Schema) addColumn(col *Column) {
	if scm.columnsByName[col.Name] != nil {
		panic(fmt.Errorf("%s: duplicate column %s", scm.name, col.Name))
	}
	scm.columns = append(scm.columns, col)
	scm.columnsByName[col.Name] = col
}

// recordOf flattens a row into a record. Unset pointers, slices and maps
// become nil.
func (scm *Schema) recordOf(rowVal reflect.Value) (Record, error) {
	rec := make(Record, len(scm.columns))
	for _, col := range scm.columns {
		fv := rowVal.FieldByIndex(col.fieldIndex)
		v, err := canonicalVal(fv)
		if err != nil {
			return nil, &ValueError{Column: col.Name, Value: fv.Interface(), Err: err}
		}
		rec[col.Name] = v
	}
	return rec, nil
}

func (scm *Schema) setKey(rowVal reflect.Value, key string) {
	if scm.keyField != nil {
		rowVal.FieldByIndex(scm.keyField).SetString(key)
	}
}

func (scm *Schema) keyOf(rowVal reflect.Value) string {
	if scm.keyField == nil {
		return ""
	}
	return rowVal.FieldByIndex(scm.keyField).String()
}
