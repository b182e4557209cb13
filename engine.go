package jdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/andreyvit/jdb/docstore"
	"github.com/cespare/xxhash/v2"
)

// DumpSeparator precedes every blob appended to a table's .dump document.
const DumpSeparator = "\n\n--- DUMP ---\n"

// Engine performs record operations on one table. Every operation reads
// the whole document and writes it back; a mutex serializes operations
// on the same engine.
type Engine struct {
	schema   *Schema
	store    docstore.Store
	enc      Encoding
	docName  string
	logger   *slog.Logger
	verbose  bool
	onChange func(chg *Change)

	mu sync.Mutex

	reads  atomic.Uint64
	writes atomic.Uint64
	noops  atomic.Uint64
}

func newEngine(reg *Registry, scm *Schema) *Engine {
	return &Engine{
		schema:   scm,
		store:    reg.store,
		enc:      reg.opt.Encoding,
		docName:  reg.opt.Encoding.DocumentName(scm.name),
		logger:   reg.opt.Logger,
		verbose:  reg.opt.Verbose,
		onChange: reg.opt.OnChange,
	}
}

func (e *Engine) Schema() *Schema {
	return e.schema
}

func (e *Engine) Name() string {
	return e.schema.name
}

// DocumentName is the store name of the table's document.
func (e *Engine) DocumentName() string {
	return e.docName
}

func (e *Engine) logf(format string, args ...any) {
	if e.verbose {
		e.logger.Debug(fmt.Sprintf(format, args...))
	}
}

// ensure creates an empty document if there is none, and checks that an
// existing one decodes.
func (e *Engine) ensure() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok, err := e.store.Exists(e.docName)
	if err != nil {
		return e.storeErr(err)
	}
	if !ok {
		e.logf("db: CREATE %s", e.docName)
		return e.save(Document{}, nil)
	}
	_, _, err = e.load()
	return err
}

// load reads and decodes the document. raw is what was read, for no-op
// detection on save; it is nil when the document was reset.
func (e *Engine) load() (doc Document, raw []byte, err error) {
	e.reads.Add(1)
	raw, err = e.store.Read(e.docName)
	if errors.Is(err, docstore.ErrNotExist) {
		return Document{}, nil, nil
	} else if err != nil {
		return nil, nil, e.storeErr(err)
	}

	doc, err = e.enc.DecodeDocument(raw)
	var malformed *MalformedRecordsError
	if errors.As(err, &malformed) && e.schema.recoverCorrupt {
		err = nil
	} else if err != nil {
		derr := &DocumentError{Name: e.docName, Data: raw, Err: err}
		if !e.schema.recoverCorrupt {
			return nil, nil, derr
		}
		if err := dumpAside(e.store, e.docName, raw); err != nil {
			return nil, nil, e.storeErr(err)
		}
		e.logger.Warn("jdb: corrupt document dumped and reset", "table", e.schema.name, "document", e.docName, "dump", e.docName+".dump", "size", len(raw), "err", err)
		doc = Document{}
		if err := e.save(doc, nil); err != nil {
			return nil, nil, err
		}
		return doc, nil, nil
	}

	for _, rec := range doc {
		for name, v := range rec {
			if col := e.schema.columnsByName[name]; col != nil {
				rec[name] = col.fixup(v)
			}
		}
	}

	if malformed != nil {
		if err := dumpMalformed(e.store, e.docName, malformed); err != nil {
			return nil, nil, e.storeErr(err)
		}
		e.logger.Warn("jdb: malformed records dumped and dropped", "table", e.schema.name, "document", e.docName, "dump", e.docName+".dump", "keys", malformed.Keys())
		if err := e.save(doc, nil); err != nil {
			return nil, nil, err
		}
		return doc, nil, nil
	}
	return doc, raw, nil
}

// save writes doc unless its encoding is identical to prev.
func (e *Engine) save(doc Document, prev []byte) error {
	_, err := e.saveChanged(doc, prev)
	return err
}

// saveChanged is save that also reports whether anything was written.
func (e *Engine) saveChanged(doc Document, prev []byte) (bool, error) {
	data, err := e.enc.EncodeDocument(doc)
	if err != nil {
		return false, tableErrf(e.schema.name, "", "", err, "encode")
	}
	if prev != nil && len(prev) == len(data) && xxhash.Sum64(prev) == xxhash.Sum64(data) {
		e.noops.Add(1)
		e.logf("db: PUT.NOOP %s", e.docName)
		return false, nil
	}
	e.writes.Add(1)
	if err := e.store.Write(e.docName, data); err != nil {
		return false, e.storeErr(err)
	}
	return true, nil
}

// commit saves doc and reports changes if the document was written.
func (e *Engine) commit(doc Document, prev []byte, changes ...Change) error {
	written, err := e.saveChanged(doc, prev)
	if err != nil {
		return err
	}
	if written {
		e.notify(changes...)
	}
	return nil
}

func (e *Engine) storeErr(err error) error {
	return tableErrf(e.schema.name, "", "", err, "store")
}

func dumpAside(store docstore.Store, name string, raw []byte) error {
	buf := make([]byte, 0, len(DumpSeparator)+len(raw))
	buf = append(buf, DumpSeparator...)
	buf = append(buf, raw...)
	return store.Append(name+".dump", buf)
}

// dumpMalformed appends the given records, as a JSON object, to the dump
// document of name.
func dumpMalformed(store docstore.Store, name string, merr *MalformedRecordsError) error {
	data, err := json.Marshal(merr.Records)
	if err != nil {
		data = fmt.Appendf(nil, "%#v", merr.Records)
	}
	return dumpAside(store, name, data)
}

// RecoverDocument checks that the named document decodes with enc. If it
// does not, the raw bytes are appended to <name>.dump and the document is
// reset to empty. If only some records are malformed, just those are dumped
// and dropped. It reports whether the document was rewritten.
func RecoverDocument(store docstore.Store, enc Encoding, name string) (bool, error) {
	raw, err := store.Read(name)
	if err != nil {
		return false, err
	}
	doc, err := enc.DecodeDocument(raw)
	if err == nil {
		return false, nil
	}
	var malformed *MalformedRecordsError
	if errors.As(err, &malformed) {
		if err := dumpMalformed(store, name, malformed); err != nil {
			return false, err
		}
	} else {
		if err := dumpAside(store, name, raw); err != nil {
			return false, err
		}
		doc = Document{}
	}
	data, err := enc.EncodeDocument(doc)
	if err != nil {
		return false, err
	}
	return true, store.Write(name, data)
}

// ClearDump removes the dump document collected for name, if any.
func ClearDump(store docstore.Store, name string) error {
	return store.Remove(name + ".dump")
}

// prepare coerces every column of rec. Values that fail fall back to the
// default, then to the zero value if invalid values are allowed.
func (e *Engine) prepare(key string, rec Record) (Record, error) {
	out := make(Record, len(e.schema.columns))
	for _, col := range e.schema.columns {
		raw := rec[col.Name]
		v, err := col.Prepare(raw)
		if err != nil {
			switch {
			case col.HasDefault:
				e.logf("db: INVALID %s/%s.%s => default: %v", e.schema.name, key, col.Name, err)
				v = cloneValue(col.Default)
			case e.schema.allowInvalid:
				e.logf("db: INVALID %s/%s.%s => zero: %v", e.schema.name, key, col.Name, err)
				v = col.zero()
			default:
				return nil, &TableError{Table: e.schema.name, Key: key, Column: col.Name, Err: err}
			}
		}
		out[col.Name] = v
	}
	return out, nil
}

func (e *Engine) loggable(rec Record) string {
	if rec == nil {
		return "<none>"
	}
	if e.schema.suppressContent {
		return "<suppressed>"
	}
	raw, err := json.Marshal(map[string]any(rec))
	if err != nil {
		return fmt.Sprint(map[string]any(rec))
	}
	return string(raw)
}
