package jdb

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump writes a human-readable listing of the table.
func (e *Engine) Dump(w io.Writer, f DumpFlags) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, raw, err := e.load()
	if err != nil {
		return err
	}
	DumpDocument(w, e.schema.name, doc, int64(len(raw)), f)
	return nil
}

// DumpDocument writes a human-readable listing of doc. size is the encoded
// size, shown with DumpStats.
func DumpDocument(w io.Writer, prefix string, doc Document, size int64, f DumpFlags) {
	if f.Contains(DumpTableHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d rows)\n", prefix, len(doc))
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: rows = %d, data_size = %d\n", prefix, len(doc), size)
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(w, dumpSep2)
		}
		for i, key := range doc.Keys() {
			fmt.Fprintf(w, "%s.%d = %s %s\n", prefix, i+1, key, dumpRecord(doc[key]))
		}
	}
}

func dumpRecord(rec Record) string {
	raw, err := json.Marshal(map[string]any(rec))
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(raw)
}
