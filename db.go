package jdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/andreyvit/jdb/docstore"
)

// Registry owns the engines of one store, one engine per table name.
type Registry struct {
	store docstore.Store
	opt   Options

	mu      sync.Mutex
	engines map[string]*Engine
}

type Options struct {
	// Logger receives warnings and, with Verbose, per-operation debug lines.
	// Defaults to slog.Default().
	Logger  *slog.Logger
	Verbose bool

	Encoding Encoding

	// PublishSchemas writes <table>.schema.json next to each document.
	PublishSchemas bool

	// OnChange is called after every write that changed a record, while
	// the engine is still locked.
	OnChange func(chg *Change)
}

func NewRegistry(store docstore.Store, opt Options) *Registry {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &Registry{
		store:   store,
		opt:     opt,
		engines: make(map[string]*Engine),
	}
}

func (reg *Registry) Store() docstore.Store {
	return reg.store
}

func (reg *Registry) Encoding() Encoding {
	return reg.opt.Encoding
}

// Engine returns the engine for scm, creating it on first use. Later calls
// with a schema of the same name return the same engine; the schema they
// pass is ignored.
func (reg *Registry) Engine(scm *Schema) (*Engine, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if eng := reg.engines[scm.name]; eng != nil {
		return eng, nil
	}

	eng := newEngine(reg, scm)
	if err := eng.ensure(); err != nil {
		return nil, err
	}
	if reg.opt.PublishSchemas {
		if err := reg.publishSchema(scm); err != nil {
			return nil, err
		}
	}
	reg.engines[scm.name] = eng
	if reg.opt.Verbose {
		reg.opt.Logger.Debug(fmt.Sprintf("db: OPEN %s => %s", scm.name, eng.docName), "columns", scm.ColumnNames(), "key", scm.key.String())
	}
	return eng, nil
}

// Lookup returns an already created engine, or nil.
func (reg *Registry) Lookup(name string) *Engine {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.engines[name]
}

// Names lists the tables with engines, sorted.
func (reg *Registry) Names() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	names := make([]string, 0, len(reg.engines))
	for name := range reg.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the underlying store. Engines must not be used afterwards.
func (reg *Registry) Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	clear(reg.engines)
	return reg.store.Close()
}

// SchemaDocumentName is the store name of a table's published JSON Schema.
func SchemaDocumentName(table string) string {
	return table + ".schema.json"
}

func (reg *Registry) publishSchema(scm *Schema) error {
	raw, err := json.MarshalIndent(scm.JSONSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("%s: schema: %w", scm.name, err)
	}
	name := SchemaDocumentName(scm.name)
	if old, err := reg.store.Read(name); err == nil && string(old) == string(raw) {
		return nil
	} else if err != nil && !errors.Is(err, docstore.ErrNotExist) {
		return err
	}
	return reg.store.Write(name, raw)
}
