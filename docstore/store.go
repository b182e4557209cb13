// Package docstore keeps named documents (opaque byte blobs) in a storage
// backend: a directory on disk, memory, a Bolt file or a SQLite database.
//
// A Store knows nothing about the content of a document. Encoding and
// decoding is done by the caller.
package docstore

import (
	"errors"
	"fmt"
)

// ErrNotExist is returned by Store.Read when the document doesn't exist.
var ErrNotExist = errors.New("document does not exist")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store represents a document storage backend.
type Store interface {
	// Exists reports whether the named document exists.
	Exists(name string) (bool, error)

	// Read returns the full content of the named document, or ErrNotExist.
	Read(name string) ([]byte, error)

	// Write replaces the content of the named document, creating it if needed.
	// A reader never observes a partially written document.
	Write(name string, data []byte) error

	// Append adds data to the end of the named document, creating it if needed.
	Append(name string, data []byte) error

	// Remove deletes the named document. Removing a missing document is not an error.
	Remove(name string) error

	// List returns the names of all documents, sorted.
	List() ([]string, error)

	// Close releases the backend.
	Close() error
}

// Backend names accepted by New.
const (
	BackendDir    = "dir"
	BackendMem    = "mem"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"dir"    - one file per document in dir (default)
//	"mem"    - in-memory (ephemeral, for testing)
//	"bolt"   - Bolt database at dir/jdb.bolt
//	"sqlite" - SQLite database at dir/jdb.sqlite
func New(backend, dir string) (Store, error) {
	switch backend {
	case BackendDir, "":
		return Dir(dir)
	case BackendMem:
		return Mem(), nil
	case BackendBolt:
		return Bolt(joinPath(dir, "jdb.bolt"))
	case BackendSQLite:
		return SQLite(joinPath(dir, "jdb.sqlite"))
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: dir, mem, bolt, sqlite)", backend)
	}
}

func notExist(name string) error {
	return fmt.Errorf("%s: %w", name, ErrNotExist)
}
