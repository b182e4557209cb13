/*
Package jdb implements an embedded document store that keeps each table in a
single document: a map from string keys to records.

A table is declared from a Go struct with DefineTable. Every exported field
becomes a typed column; values are coerced to the column type on the way in,
and invalid values fall back to a declared default or the zero value (or are
rejected, if the table disallows invalid values).

Keys are produced by a KeyStrategy: random ids, a fixed key, or a SHA-1 of
one or more column values, so that identical logical records share a key.

# Storage

Documents live in a docstore.Store: a directory (the default), memory, a
Bolt database or SQLite. Each operation reads the whole document, changes
it in memory and writes it back; a write whose bytes equal what was read is
skipped. Documents are JSON by default, or MsgPack or BSON.

A document that fails to decode is appended to <name>.dump, after a
"--- DUMP ---" separator, and the table starts over empty, unless the table
disables recovery, in which case operations fail with ErrCorruptDocument.

# Queries

Query takes an expression built from Eq, Ne, Lt, Gt, Le, Ge and Contains,
combined with And and Or. Where and Any build disjunctive normal form:

	eng.Query(Any(
		Where(Eq("a", 1), Eq("b", 2)),
		Where(Eq("c", 3)),
	))

Queries scan every record; there are no indices.

# Concurrency

Operations on one Engine are serialized. Registries do not coordinate with
each other or with other processes; the last writer wins.
*/
package jdb
