package jdb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/andreyvit/jdb/docstore"
	"gopkg.in/yaml.v3"
)

// Config is the file form of a registry setup.
type Config struct {
	DataDir        string `yaml:"data_dir"`
	Backend        string `yaml:"backend"`
	Encoding       string `yaml:"encoding"`
	Verbose        bool   `yaml:"verbose"`
	PublishSchemas bool   `yaml:"publish_schemas"`
	LogLevel       string `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		DataDir:  "data",
		Backend:  docstore.BackendDir,
		Encoding: JSON.String(),
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), err
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig. Unknown keys are an
// error; empty input yields the defaults.
func ParseConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := ParseEncoding(c.Encoding); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Backend {
	case "", docstore.BackendDir, docstore.BackendMem, docstore.BackendBolt, docstore.BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.DataDir == "" && c.Backend != docstore.BackendMem {
		return fmt.Errorf("data_dir is required for backend %q", c.Backend)
	}
	return nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Open creates the configured store and a registry over it.
func (c Config) Open(logger *slog.Logger) (*Registry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	enc := must(ParseEncoding(c.Encoding))
	store, err := docstore.New(c.Backend, c.DataDir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(store, Options{
		Logger:         logger,
		Verbose:        c.Verbose,
		Encoding:       enc,
		PublishSchemas: c.PublishSchemas,
	}), nil
}
