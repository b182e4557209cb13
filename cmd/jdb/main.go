// Command jdb inspects and repairs jdb documents without needing the Go
// schema that wrote them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/andreyvit/jdb"
	"github.com/andreyvit/jdb/docstore"
	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const usage = `usage: jdb [flags] <command> [args]

commands:
  tables            list tables in the data directory
  keys TABLE        list record keys
  dump TABLE        print every record
  check TABLE...    verify that documents decode
  recover TABLE...  dump aside and reset documents that do not decode
  clear-dump TABLE  remove the collected dump of a table
  describe TABLE    print the published JSON Schema
  watch             log document changes (dir backend only)
`

func main() {
	if err := mainImpl(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "jdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "YAML config file")
	dataDir := flag.String("data-dir", "", "Data directory (overrides config)")
	backend := flag.String("backend", "", "Storage backend: dir, mem, bolt, sqlite (overrides config)")
	encoding := flag.String("encoding", "", "Document encoding: json, msgpack, bson (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage, "\nflags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := jdb.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = jdb.LoadConfig(*configPath)
		if err != nil {
			return err
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *encoding != "" {
		cfg.Encoding = *encoding
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]

	enc, err := jdb.ParseEncoding(cfg.Encoding)
	if err != nil {
		return err
	}
	store, err := docstore.New(cfg.Backend, cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case "tables":
		return listTables(store)
	case "keys":
		return withTable(args, func(table string) error {
			doc, err := readDocument(store, enc, table)
			if err != nil {
				return err
			}
			for _, key := range doc.Keys() {
				fmt.Println(key)
			}
			return nil
		})
	case "dump":
		return withTable(args, func(table string) error {
			doc, err := readDocument(store, enc, table)
			if err != nil {
				return err
			}
			jdb.DumpDocument(os.Stdout, table, doc, -1, jdb.DumpTableHeaders|jdb.DumpRows)
			return nil
		})
	case "check":
		return checkTables(store, enc, args, false)
	case "recover":
		return checkTables(store, enc, args, true)
	case "clear-dump":
		return withTable(args, func(table string) error {
			return jdb.ClearDump(store, enc.DocumentName(table))
		})
	case "describe":
		return withTable(args, func(table string) error {
			raw, err := store.Read(jdb.SchemaDocumentName(table))
			if errors.Is(err, docstore.ErrNotExist) {
				return fmt.Errorf("%s: no published schema (enable publish_schemas)", table)
			} else if err != nil {
				return err
			}
			_, err = os.Stdout.Write(raw)
			return err
		})
	case "watch":
		if cfg.Backend != "" && cfg.Backend != docstore.BackendDir {
			return fmt.Errorf("watch needs the %s backend, got %s", docstore.BackendDir, cfg.Backend)
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watch(ctx, store, cfg.DataDir)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withTable(args []string, f func(table string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one table, got %d arguments", len(args))
	}
	return f(args[0])
}

func readDocument(store docstore.Store, enc jdb.Encoding, table string) (jdb.Document, error) {
	name := enc.DocumentName(table)
	raw, err := store.Read(name)
	if err != nil {
		return nil, err
	}
	doc, err := enc.DecodeDocument(raw)
	if err != nil {
		return nil, &jdb.DocumentError{Name: name, Data: raw, Err: err}
	}
	return doc, nil
}

func listTables(store docstore.Store) error {
	names, err := store.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if enc, table, ok := jdb.EncodingOfName(name); ok {
			fmt.Printf("%s\t%v\n", table, enc)
		}
	}
	return nil
}

func checkTables(store docstore.Store, enc jdb.Encoding, tables []string, fix bool) error {
	if len(tables) == 0 {
		return errors.New("expected at least one table")
	}
	var failed int
	for _, table := range tables {
		name := enc.DocumentName(table)
		if fix {
			reset, err := jdb.RecoverDocument(store, enc, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if reset {
				slog.Warn("document repaired", "document", name, "dump", name+".dump")
			} else {
				slog.Info("document ok", "document", name)
			}
			continue
		}
		doc, err := readDocument(store, enc, table)
		if err != nil {
			failed++
			slog.Error("document broken", "document", name, "err", err)
			continue
		}
		slog.Info("document ok", "document", name, "rows", len(doc))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to decode", failed, len(tables))
	}
	return nil
}

// watch logs every content change of a document in dir. Editors and atomic
// renames fire several events per save, so unchanged content is ignored.
func watch(ctx context.Context, store docstore.Store, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(dir); err != nil {
		return err
	}
	slog.InfoContext(ctx, "watching", "dir", dir)

	sums := make(map[string]uint64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			enc, table, ok := jdb.EncodingOfName(name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Remove) {
				delete(sums, name)
				slog.InfoContext(ctx, "removed", "table", table)
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			raw, err := store.Read(name)
			if err != nil {
				continue
			}
			sum := xxhash.Sum64(raw)
			if prev, seen := sums[name]; seen && prev == sum {
				continue
			}
			sums[name] = sum
			doc, err := enc.DecodeDocument(raw)
			if err != nil {
				slog.WarnContext(ctx, "changed, does not decode", "table", table, "size", len(raw), "err", err)
				continue
			}
			slog.InfoContext(ctx, "changed", "table", table, "rows", len(doc), "size", len(raw), "xxhash", fmt.Sprintf("%016x", sum))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "watch error", "err", err)
		}
	}
}
