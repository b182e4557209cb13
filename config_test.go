package jdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreyvit/jdb/docstore"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
data_dir: /var/lib/app
backend: bolt
encoding: msgpack
verbose: true
publish_schemas: true
log_level: debug
`))
	success(t, err)
	deepEqual(t, cfg, Config{
		DataDir:        "/var/lib/app",
		Backend:        "bolt",
		Encoding:       "msgpack",
		Verbose:        true,
		PublishSchemas: true,
		LogLevel:       "debug",
	})

	cfg, err = ParseConfig(nil)
	success(t, err)
	deepEqual(t, cfg, DefaultConfig())
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"unknown key", "color: blue", "color"},
		{"bad encoding", "encoding: xml", "encoding"},
		{"bad backend", "backend: redis", "backend"},
		{"bad level", "log_level: loud", "log_level"},
		{"no dir", "data_dir: ''", "data_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("ParseConfig(%q) error = %v, wanted one mentioning %q", tt.yaml, err, tt.msg)
			}
		})
	}
}

func TestConfigOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jdb.yaml")
	success(t, os.WriteFile(path, []byte("data_dir: "+filepath.Join(dir, "data")+"\nencoding: bson\n"), 0o644))

	cfg, err := LoadConfig(path)
	success(t, err)
	reg, err := cfg.Open(nil)
	success(t, err)
	defer reg.Close()

	eng := engine(t, reg, countersSchema)
	must(eng.Insert(Record{"name": "c"}))
	deepEqual(t, eng.DocumentName(), "counters.bson")
	if _, err := os.Stat(filepath.Join(dir, "data", "counters.bson")); err != nil {
		t.Fatalf("document not written to data_dir: %v", err)
	}
	if _, ok := reg.Store().(*docstore.FSStore); !ok {
		t.Fatalf("Store() = %T, wanted *docstore.FSStore", reg.Store())
	}

	level, err := cfg.Level()
	success(t, err)
	deepEqual(t, level.String(), "INFO")

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	if err == nil {
		t.Fatalf("LoadConfig(missing) succeeded")
	}
}
