package jdb

import (
	"testing"
)

func TestKeyStrategyDerive(t *testing.T) {
	rec := Record{"name": "bob", "age": int64(7), "ratio": 0.5, "ok": true, "tags": []any{"a", int64(1)}}

	tests := []struct {
		ks   KeyStrategy
		want string
	}{
		{ExactKey("settings"), "settings"},
		{FieldKey("name"), sha1hex("bob")},
		{FieldKey("name").Unhashed(), "bob"},
		{CompositeKey("name", "age").Unhashed(), "bob7"},
		{CompositeKey("name", "age"), sha1hex("bob7")},
		{CompositeKey("ratio", "ok").Unhashed(), "0.5true"},
		{FieldKey("tags").Unhashed(), `["a",1]`},
		{FieldKey("missing").Unhashed(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.ks.String(), func(t *testing.T) {
			if got := tt.ks.Derive(rec); got != tt.want {
				t.Errorf("Derive() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRandomKeysAreUnique(t *testing.T) {
	const n = 10000
	seen := make(map[string]bool, n)
	ks := RandomKey()
	for range n {
		k := ks.Derive(nil)
		if len(k) != 32 {
			t.Fatalf("random key %q has %d chars, want 32", k, len(k))
		}
		if seen[k] {
			t.Fatalf("duplicate random key %q", k)
		}
		seen[k] = true
	}
}

func TestParseKeyStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "random"},
		{"random", "random"},
		{"exact:main", "exact:main"},
		{"email", "email"},
		{"!email", "!email"},
		{"a+b", "a+b"},
		{"!a+b", "!a+b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ks, err := ParseKeyStrategy(tt.in)
			if err != nil {
				t.Fatalf("ParseKeyStrategy(%q) failed: %v", tt.in, err)
			}
			if got := ks.String(); got != tt.want {
				t.Errorf("ParseKeyStrategy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"a+", "!", "+b"} {
		if _, err := ParseKeyStrategy(bad); err == nil {
			t.Errorf("ParseKeyStrategy(%q) succeeded, want error", bad)
		}
	}

	ks := must(ParseKeyStrategy("!a+b"))
	deepEqual(t, ks.Fields(), []string{"a", "b"})
	deepEqual(t, ks.Derive(Record{"a": "x", "b": int64(1)}), "x1")
}
