// Package config resolves lexstore settings.
//
// Values are layered, later layers winning: built-in defaults, the YAML
// file (lexstore.yaml), a .env file, LEXSTORE_* environment variables, and
// finally command-line flags applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lexstore/internal/store"
)

// Default file names, resolved against the working directory.
const (
	DefaultFile    = "lexstore.yaml"
	DefaultEnvFile = ".env"
)

// Environment variables read by Load.
const (
	EnvBackend   = "LEXSTORE_BACKEND"
	EnvDSN       = "LEXSTORE_DSN"
	EnvKeyPrefix = "LEXSTORE_KEY_PREFIX"
	EnvLogLevel  = "LEXSTORE_LOG_LEVEL"
	EnvLogFormat = "LEXSTORE_LOG_FORMAT"
)

// Config holds resolved settings.
type Config struct {
	Backend   string `yaml:"backend" json:"backend"`
	DSN       string `yaml:"dsn" json:"dsn"`
	KeyPrefix string `yaml:"key_prefix,omitempty" json:"key_prefix,omitempty"`
	LogLevel  string `yaml:"log_level" json:"log_level"`   // debug | info | warn | error
	LogFormat string `yaml:"log_format" json:"log_format"` // text | json
}

// ValidLogFormats lists accepted log formats.
var ValidLogFormats = []string{"text", "json"}

// Default returns the built-in settings: a SQLite database in the working
// directory with info-level text logs.
func Default() Config {
	return Config{
		Backend:   store.BackendSQLite,
		DSN:       "lexstore.db",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Sources names the files Load reads. Empty fields use the defaults, which
// may be absent; an explicitly named file must exist.
type Sources struct {
	File    string
	EnvFile string
}

// Load resolves settings from defaults, files and the environment.
func Load(src Sources) (Config, error) {
	cfg := Default()

	file, required := src.File, true
	if file == "" {
		file, required = DefaultFile, false
	}
	if err := cfg.mergeFile(file, required); err != nil {
		return Config{}, err
	}

	envFile, required := src.EnvFile, true
	if envFile == "" {
		envFile, required = DefaultEnvFile, false
	}
	dotenv, err := readEnvFile(envFile, required)
	if err != nil {
		return Config{}, err
	}
	cfg.mergeEnv(func(key string) (string, bool) {
		if v := os.Getenv(key); v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	slog.Debug("config file loaded", "path", path)
	return nil
}

func readEnvFile(path string, required bool) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return vars, nil
}

// mergeEnv overrides fields whose variable is set and non-empty.
func (c *Config) mergeEnv(lookup func(string) (string, bool)) {
	for key, field := range map[string]*string{
		EnvBackend:   &c.Backend,
		EnvDSN:       &c.DSN,
		EnvKeyPrefix: &c.KeyPrefix,
		EnvLogLevel:  &c.LogLevel,
		EnvLogFormat: &c.LogFormat,
	} {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if !slices.Contains(store.Backends, c.Backend) {
		return fmt.Errorf("invalid backend %q: must be one of %v", c.Backend, store.Backends)
	}
	if c.Backend != store.BackendMemory && c.DSN == "" {
		return fmt.Errorf("backend %q requires a dsn", c.Backend)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains(ValidLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format %q: must be one of %v", c.LogFormat, ValidLogFormats)
	}
	return nil
}

// StoreOptions returns the options for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Backend:   c.Backend,
		DSN:       c.DSN,
		KeyPrefix: c.KeyPrefix,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// NewLogger builds the logger described by c, writing to w. verbose forces
// debug level.
func (c Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
