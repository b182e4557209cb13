package jdb

import (
	"github.com/cespare/xxhash/v2"
)

type Stats struct {
	Rows     int
	DataSize int
	// Checksum is the xxhash of the stored document bytes.
	Checksum uint64

	Reads  uint64
	Writes uint64
	Noops  uint64
}

// Stats describes the stored document and the engine's I/O counters.
func (e *Engine) Stats() (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, raw, err := e.load()
	if err != nil {
		return Stats{}, err
	}
	if raw == nil {
		// just reset or missing; describe what is stored now
		raw, _ = e.enc.EncodeDocument(doc)
	}
	return Stats{
		Rows:     len(doc),
		DataSize: len(raw),
		Checksum: xxhash.Sum64(raw),
		Reads:    e.reads.Load(),
		Writes:   e.writes.Load(),
		Noops:    e.noops.Load(),
	}, nil
}
