package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		opts Options
		want any
	}{
		{"memory", Options{Backend: BackendMemory}, &Memory{}},
		{"sqlite", Options{Backend: BackendSQLite, DSN: filepath.Join(dir, "lex.db")}, &SQLite{}},
		{"file", Options{Backend: BackendFile, DSN: filepath.Join(dir, "files")}, &File{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.opts)
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"unknown backend", Options{Backend: "mongo", DSN: "x"}, `unknown backend "mongo"`},
		{"missing dsn", Options{Backend: BackendSQLite}, "requires a dsn"},
		{"bad redis url", Options{Backend: BackendRedis, DSN: "://nope"}, "parse redis url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
