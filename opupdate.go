package jdb

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// UpdateMode says how Update combines a change with the stored value.
type UpdateMode int

const (
	// Replace overwrites the column.
	Replace UpdateMode = iota
	// Append adds an element to a list, or merges a map into a map.
	Append
	// Remove deletes the first equal element from a list, or a key from a map.
	Remove
)

func (m UpdateMode) String() string {
	switch m {
	case Replace:
		return "replace"
	case Append:
		return "append"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("UpdateMode(%d)", int(m))
	}
}

func (m UpdateMode) valid() bool {
	return m >= Replace && m <= Remove
}

func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "", "replace":
		return Replace, nil
	case "append":
		return Append, nil
	case "remove":
		return Remove, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrInvalidMode, s)
	}
}

// Update applies changes to the record under key. Columns the table does
// not have are skipped. Append and Remove act on list and map columns and
// behave like Replace on scalars. Either every change applies or nothing
// is written.
func (e *Engine) Update(key string, changes Record, mode UpdateMode) error {
	if !mode.valid() {
		return tableErrf(e.schema.name, key, "", ErrInvalidMode, "%v", mode)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	doc, raw, err := e.load()
	if err != nil {
		return err
	}
	cur, ok := doc[key]
	if !ok {
		return tableErrf(e.schema.name, key, "", ErrKeyNotFound, "")
	}

	next := cur.Clone()
	for _, name := range sortedKeys(changes) {
		col := e.schema.columnsByName[name]
		if col == nil {
			e.logf("db: UPDATE %s/%s skipping unknown column %s", e.schema.name, key, name)
			continue
		}
		v, err := canonical(changes[name])
		if err != nil {
			return &TableError{Table: e.schema.name, Key: key, Column: name, Err: &ValueError{Column: name, Value: changes[name], Err: err}}
		}
		cur := next[name]
		if cur == nil && (col.Type == List || col.Type == Map) {
			cur = col.zero()
		}
		nv, err := applyChange(name, cur, v, mode)
		if err != nil {
			return tableErrf(e.schema.name, key, name, err, "%v", mode)
		}
		next[name] = nv
	}

	prepared, err := e.prepare(key, next)
	if err != nil {
		return err
	}
	e.logf("db: UPDATE.%s %s/%s => %s", mode, e.schema.name, key, e.loggable(prepared))
	doc[key] = prepared
	return e.commit(doc, raw, Change{Table: e.schema.name, Op: ChangePut, Key: key, Record: prepared, OldRecord: cur})
}

func applyChange(column string, cur, v any, mode UpdateMode) (any, error) {
	switch mode {
	case Append:
		switch c := cur.(type) {
		case []any:
			return append(slices.Clone(c), v), nil
		case map[string]any:
			m, ok := v.(map[string]any)
			if !ok {
				return nil, &ValueError{Column: column, Value: v, Err: fmt.Errorf("cannot merge %T into a map", v)}
			}
			merged := maps.Clone(c)
			maps.Copy(merged, m)
			return merged, nil
		}
	case Remove:
		switch c := cur.(type) {
		case []any:
			i := slices.IndexFunc(c, func(e any) bool { return valuesEqual(e, v) })
			if i < 0 {
				return nil, fmt.Errorf("%w: %s", ErrNotInCollection, keyString(v))
			}
			return slices.Delete(slices.Clone(c), i, i+1), nil
		case map[string]any:
			k, ok := v.(string)
			if !ok {
				k = keyString(v)
			}
			if _, ok := c[k]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrNotInCollection, k)
			}
			m := maps.Clone(c)
			delete(m, k)
			return m, nil
		}
	}
	return v, nil
}

// Increment adds one to a numeric column. It returns false, leaving the
// record alone, if the stored value is not a number, and fails with
// ErrInvalidValue if an integer would overflow.
func (e *Engine) Increment(key, column string) (bool, error) {
	return e.step(key, column, 1)
}

// Decrement subtracts one from a numeric column, like Increment.
func (e *Engine) Decrement(key, column string) (bool, error) {
	return e.step(key, column, -1)
}

func (e *Engine) step(key, column string, delta int64) (bool, error) {
	if e.schema.columnsByName[column] == nil {
		return false, tableErrf(e.schema.name, key, column, ErrKeyNotFound, "unknown column")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	doc, raw, err := e.load()
	if err != nil {
		return false, err
	}
	cur, ok := doc[key]
	if !ok {
		return false, tableErrf(e.schema.name, key, "", ErrKeyNotFound, "")
	}

	next := cur.Clone()
	switch v := next[column].(type) {
	case int64:
		sum := v + delta
		if (delta > 0) != (sum > v) {
			return false, tableErrf(e.schema.name, key, column, &ValueError{Column: column, Value: v, Err: errors.New("integer overflow")}, "")
		}
		next[column] = sum
	case float64:
		next[column] = v + float64(delta)
	default:
		e.logf("db: STEP %s/%s.%s not numeric: %T", e.schema.name, key, column, v)
		return false, nil
	}

	prepared, err := e.prepare(key, next)
	if err != nil {
		return false, err
	}
	e.logf("db: STEP %s/%s.%s %+d => %v", e.schema.name, key, column, delta, prepared[column])
	doc[key] = prepared
	return true, e.commit(doc, raw, Change{Table: e.schema.name, Op: ChangePut, Key: key, Record: prepared, OldRecord: cur})
}
