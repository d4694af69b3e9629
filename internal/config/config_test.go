package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lexstore/internal/store"
)

// clearEnv blanks every LEXSTORE_* variable for one test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvBackend, EnvDSN, EnvKeyPrefix, EnvLogLevel, EnvLogFormat} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// missing returns paths in an empty directory so the default files are absent.
func missing(t *testing.T) Sources {
	dir := t.TempDir()
	return Sources{File: filepath.Join(dir, "none.yaml"), EnvFile: filepath.Join(dir, "none.env")}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(Sources{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	clearEnv(t)
	src := missing(t)

	_, err := Load(Sources{File: src.File})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")

	_, err = Load(Sources{EnvFile: src.EnvFile, File: writeFile(t, t.TempDir(), "c.yaml", "")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read env file")
}

func TestLoad_Layers(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "lexstore.yaml", `
backend: file
dsn: ./data
log_level: warn
`)
	env := writeFile(t, dir, ".env", "LEXSTORE_DSN=/srv/lexstore\nLEXSTORE_LOG_FORMAT=json\n")
	t.Setenv(EnvLogFormat, "text")

	cfg, err := Load(Sources{File: file, EnvFile: env})
	require.NoError(t, err)
	assert.Equal(t, Config{
		Backend:   store.BackendFile,
		DSN:       "/srv/lexstore",
		LogLevel:  "warn",
		LogFormat: "text",
	}, cfg, "environment beats .env which beats the file")
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	src := missing(t)
	src.File = writeFile(t, t.TempDir(), "lexstore.yaml", "")
	src.EnvFile = ""
	t.Chdir(t.TempDir())

	cfg, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	clearEnv(t)
	src := missing(t)
	src.File = writeFile(t, t.TempDir(), "lexstore.yaml", "backend: memory\ncolour: blue\n")
	src.EnvFile = ""
	t.Chdir(t.TempDir())

	_, err := Load(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"memory without dsn", func(c *Config) { c.Backend, c.DSN = store.BackendMemory, "" }, ""},
		{"unknown backend", func(c *Config) { c.Backend = "mongo" }, "invalid backend"},
		{"sqlite without dsn", func(c *Config) { c.DSN = "" }, "requires a dsn"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_StoreOptions(t *testing.T) {
	cfg := Config{Backend: store.BackendRedis, DSN: "redis://localhost:6379/0", KeyPrefix: "office:"}
	assert.Equal(t, store.Options{Backend: "redis", DSN: "redis://localhost:6379/0", KeyPrefix: "office:"}, cfg.StoreOptions())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogFormat = "json"

	logger := cfg.NewLogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.NewLogger(&buf, true).Debug("verbose")
	assert.Contains(t, buf.String(), "verbose")
}
