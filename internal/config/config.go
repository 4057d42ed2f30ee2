// Package config loads the cardflow configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding a config file path.
const EnvConfig = "CARDFLOW_CONFIG"

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "cardflow.yaml"

// Config represents the application configuration.
type Config struct {
	// Database is the SQLite path used when a command's --db is omitted.
	Database string `yaml:"database"`

	// RulesDir is the CUE rules directory used when a command's
	// directory argument is omitted.
	RulesDir string `yaml:"rules_dir"`

	Log LogConfig `yaml:"log"`
}

// LogConfig controls the slog handler the CLI installs.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// ValidLogFormats lists the accepted log.format values.
var ValidLogFormats = []string{"text", "json"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration from path. An empty path falls back to
// $CARDFLOW_CONFIG, then to cardflow.yaml in the working directory.
//
// An explicit path (flag or environment) must exist. The implicit
// cardflow.yaml is optional: when absent, defaults are returned.
func Load(path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = DefaultFile
		explicit = false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration. Unknown keys are an error; missing
// keys take their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in values left empty by the file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if !slices.Contains(ValidLogFormats, c.Log.Format) {
		return fmt.Errorf("log.format %q: must be one of %v", c.Log.Format, ValidLogFormats)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: must be debug, info, warn or error", s)
	}
	return l, nil
}
