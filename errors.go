package jdb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrInvalidValue    = errors.New("invalid value")
	ErrNotInCollection = errors.New("value not in collection")
	ErrInvalidMode     = errors.New("invalid update mode")
	ErrCorruptDocument = errors.New("corrupt document")
	ErrSchemaMismatch  = errors.New("schema mismatch")
)

// TableError describes a failed operation on a table, optionally pinned to
// a specific record key and column.
type TableError struct {
	Table  string
	Key    string
	Column string
	Msg    string
	Err    error
}

func tableErrf(table, key, column string, err error, format string, args ...any) error {
	return &TableError{table, key, column, fmt.Sprintf(format, args...), err}
}

func (e *TableError) Unwrap() error {
	return e.Err
}

func (e *TableError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Table)
	if e.Key != "" {
		buf.WriteByte('/')
		buf.WriteString(e.Key)
	}
	if e.Column != "" {
		buf.WriteByte('.')
		buf.WriteString(e.Column)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// ValueError reports a value that cannot be stored in a column. It always
// matches ErrInvalidValue under errors.Is.
type ValueError struct {
	Column string
	Value  any
	Err    error
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid value %s: %v", e.Column, truncated(fmt.Sprintf("%#v", e.Value), 64), e.Err)
	}
	return fmt.Sprintf("%s: invalid value %s", e.Column, truncated(fmt.Sprintf("%#v", e.Value), 64))
}

// DocumentError reports a stored document that cannot be decoded. It always
// matches ErrCorruptDocument under errors.Is.
type DocumentError struct {
	Name string
	Data []byte
	Err  error
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func (e *DocumentError) Is(target error) bool {
	return target == ErrCorruptDocument
}

func (e *DocumentError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		return fmt.Sprintf("%s: corrupt document: %v: (%d) %q", e.Name, e.Err, n, e.Data)
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		return fmt.Sprintf("%s: corrupt document: %v: (%d) %q...%q", e.Name, e.Err, n, p, s)
	}
}

// MalformedRecordsError reports records of an otherwise readable document
// that are not objects. DecodeDocument returns it together with the
// well-formed records.
type MalformedRecordsError struct {
	Records map[string]any
}

func (e *MalformedRecordsError) Keys() []string {
	return sortedKeys(e.Records)
}

func (e *MalformedRecordsError) Error() string {
	keys := e.Keys()
	if len(keys) == 1 {
		return fmt.Sprintf("%s: record is %T, not an object", keys[0], e.Records[keys[0]])
	}
	return fmt.Sprintf("%d records are not objects: %s", len(keys), strings.Join(keys, ", "))
}

func truncated(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
