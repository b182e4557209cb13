package jdb

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type keyKind int

const (
	keyRandom keyKind = iota
	keyExact
	keyFields
)

// KeyStrategy decides the storage key of a new record.
//
// Field-based keys are derived from prepared column values, so the same
// logical record always lands on the same key.
type KeyStrategy struct {
	kind     keyKind
	exact    string
	fields   []string
	unhashed bool
}

// RandomKey generates a fresh random 128-bit identifier per record, as 32 hex
// characters. This is the default strategy.
func RandomKey() KeyStrategy {
	return KeyStrategy{kind: keyRandom}
}

// ExactKey stores every record under the given literal key.
func ExactKey(key string) KeyStrategy {
	return KeyStrategy{kind: keyExact, exact: key}
}

// FieldKey derives the key from the SHA-1 of a column's string form.
func FieldKey(column string) KeyStrategy {
	return CompositeKey(column)
}

// CompositeKey derives the key from the SHA-1 of the concatenated string
// forms of the given columns.
func CompositeKey(columns ...string) KeyStrategy {
	if len(columns) == 0 {
		panic("CompositeKey: no columns")
	}
	return KeyStrategy{kind: keyFields, fields: append([]string(nil), columns...)}
}

// Unhashed makes a field-based strategy use the string form as is.
func (ks KeyStrategy) Unhashed() KeyStrategy {
	if ks.kind != keyFields {
		panic(fmt.Errorf("Unhashed: %v is not field-based", ks))
	}
	ks.unhashed = true
	return ks
}

// Fields returns the columns a field-based strategy reads.
func (ks KeyStrategy) Fields() []string {
	return append([]string(nil), ks.fields...)
}

func (ks KeyStrategy) String() string {
	switch ks.kind {
	case keyRandom:
		return "random"
	case keyExact:
		return "exact:" + ks.exact
	default:
		s := strings.Join(ks.fields, "+")
		if ks.unhashed {
			return "!" + s
		}
		return s
	}
}

// ParseKeyStrategy parses the textual form produced by KeyStrategy.String:
// "random", "exact:KEY", "name", "!name", "a+b", "!a+b".
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch {
	case s == "" || s == "random":
		return RandomKey(), nil
	case strings.HasPrefix(s, "exact:"):
		return ExactKey(strings.TrimPrefix(s, "exact:")), nil
	}
	unhashed := strings.HasPrefix(s, "!")
	fields := strings.Split(strings.TrimPrefix(s, "!"), "+")
	for _, f := range fields {
		if f == "" {
			return KeyStrategy{}, fmt.Errorf("invalid key strategy %q", s)
		}
	}
	ks := CompositeKey(fields...)
	ks.unhashed = unhashed
	return ks, nil
}

// Derive computes the key for a prepared record.
func (ks KeyStrategy) Derive(rec Record) string {
	switch ks.kind {
	case keyRandom:
		u := uuid.New()
		return hex.EncodeToString(u[:])
	case keyExact:
		return ks.exact
	default:
		var buf strings.Builder
		for _, f := range ks.fields {
			buf.WriteString(keyString(rec[f]))
		}
		if ks.unhashed {
			return buf.String()
		}
		sum := sha1.Sum([]byte(buf.String()))
		return hex.EncodeToString(sum[:])
	}
}
