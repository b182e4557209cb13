package jdb

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Table is a typed view of an engine whose schema was derived from Row.
type Table[Row any] struct {
	eng *Engine
	scm *Schema
}

// Open returns a typed table for scm, creating its engine in reg if needed.
// It fails with ErrSchemaMismatch if scm, or the engine already registered
// under its name, was not derived from Row.
func Open[Row any](reg *Registry, scm *Schema) (*Table[Row], error) {
	rowType := reflect.TypeOf((*Row)(nil)).Elem()
	if scm.rowType != rowType {
		return nil, tableErrf(scm.name, "", "", ErrSchemaMismatch, "schema row type is %v, not %v", scm.rowType, rowType)
	}
	eng, err := reg.Engine(scm)
	if err != nil {
		return nil, err
	}
	if eng.schema.rowType != rowType {
		return nil, tableErrf(scm.name, "", "", ErrSchemaMismatch, "registered row type is %v, not %v", eng.schema.rowType, rowType)
	}
	return &Table[Row]{eng: eng, scm: eng.schema}, nil
}

// MustOpen is Open that panics on error.
func MustOpen[Row any](reg *Registry, scm *Schema) *Table[Row] {
	return must(Open[Row](reg, scm))
}

func (t *Table[Row]) Engine() *Engine {
	return t.eng
}

func (t *Table[Row]) Schema() *Schema {
	return t.scm
}

func (t *Table[Row]) recordOf(row *Row) (Record, error) {
	if row == nil {
		panic(fmt.Errorf("%s: nil row", t.scm.name))
	}
	rec, err := t.scm.recordOf(reflect.ValueOf(row).Elem())
	if err != nil {
		return nil, &TableError{Table: t.scm.name, Err: err}
	}
	return rec, nil
}

func (t *Table[Row]) decode(key string, rec Record) (*Row, error) {
	raw, err := json.Marshal(map[string]any(rec))
	if err != nil {
		return nil, tableErrf(t.scm.name, key, "", err, "encode")
	}
	row := new(Row)
	if err := json.Unmarshal(raw, row); err != nil {
		return nil, tableErrf(t.scm.name, key, "", err, "decode into %v", t.scm.rowType)
	}
	t.scm.setKey(reflect.ValueOf(row).Elem(), key)
	return row, nil
}

func (t *Table[Row]) decodeAll(entries []Entry) ([]*Row, error) {
	rows := make([]*Row, 0, len(entries))
	for _, ent := range entries {
		row, err := t.decode(ent.Key, ent.Record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Insert stores row under its derived key, which is also set on row's key
// field if it has one.
func (t *Table[Row]) Insert(row *Row) (string, error) {
	rec, err := t.recordOf(row)
	if err != nil {
		return "", err
	}
	key, err := t.eng.Insert(rec)
	if err != nil {
		return "", err
	}
	t.scm.setKey(reflect.ValueOf(row).Elem(), key)
	return key, nil
}

// Put stores row under key.
func (t *Table[Row]) Put(key string, row *Row) error {
	rec, err := t.recordOf(row)
	if err != nil {
		return err
	}
	if err := t.eng.Put(key, rec); err != nil {
		return err
	}
	t.scm.setKey(reflect.ValueOf(row).Elem(), key)
	return nil
}

// Save stores row under the key in its key field, or inserts it when the
// key field is empty.
func (t *Table[Row]) Save(row *Row) (string, error) {
	if key := t.scm.keyOf(reflect.ValueOf(row).Elem()); key != "" {
		return key, t.Put(key, row)
	}
	return t.Insert(row)
}

func (t *Table[Row]) Get(key string) (*Row, error) {
	rec, err := t.eng.Get(key)
	if err != nil {
		return nil, err
	}
	return t.decode(key, rec)
}

func (t *Table[Row]) Exists(key string) (bool, error) {
	return t.eng.Exists(key)
}

func (t *Table[Row]) All() ([]*Row, error) {
	return t.Query(nil)
}

func (t *Table[Row]) Query(expr Expr) ([]*Row, error) {
	entries, err := t.eng.Query(expr)
	if err != nil {
		return nil, err
	}
	return t.decodeAll(entries)
}

func (t *Table[Row]) Keys() ([]string, error) {
	return t.eng.Keys()
}

func (t *Table[Row]) Count() (int, error) {
	return t.eng.Count()
}

func (t *Table[Row]) Update(key string, changes Record, mode UpdateMode) error {
	return t.eng.Update(key, changes, mode)
}

func (t *Table[Row]) Increment(key, column string) (bool, error) {
	return t.eng.Increment(key, column)
}

func (t *Table[Row]) Decrement(key, column string) (bool, error) {
	return t.eng.Decrement(key, column)
}

func (t *Table[Row]) Migrate() (int, error) {
	return t.eng.Migrate()
}

func (t *Table[Row]) Delete(key string) error {
	return t.eng.Delete(key)
}
