package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/roach88/lexstore/internal/record"
)

const fileExt = ".json"

// File stores each collection as a JSON envelope in a directory.
// Writes go through a temp file and rename, so readers never see a torn
// collection.
//
// A file holding a bare JSON array (an exported browser collection, for
// instance) is read as version 1 of that collection.
type File struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

type fileEnvelope struct {
	Version   int64           `json:"version"`
	Digest    string          `json:"digest"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Records   json.RawMessage `json:"records,omitempty"`
	Raw       *string         `json:"raw,omitempty"`
}

// OpenFile uses dir for collection files, creating it if needed.
func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &File{dir: dir, now: time.Now}, nil
}

func (f *File) path(name string) string {
	return filepath.Join(f.dir, url.PathEscape(name)+fileExt)
}

func (f *File) Get(_ context.Context, name string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(name)
}

func (f *File) read(name string) (Snapshot, error) {
	raw, err := os.ReadFile(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{Name: name}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %q: %w", name, err)
	}

	trimmed := bytes.TrimSpace(raw)
	var env fileEnvelope
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &env) != nil || env.Version <= 0 {
		// Not an envelope. Hand the bytes to the decoder as-is.
		return Snapshot{Name: name, Data: raw, Version: 1, Digest: record.Digest(raw)}, nil
	}
	data := []byte(env.Records)
	if env.Raw != nil {
		data = []byte(*env.Raw)
	}
	return Snapshot{
		Name:      name,
		Data:      data,
		Version:   env.Version,
		Digest:    env.Digest,
		UpdatedAt: env.UpdatedAt,
	}, nil
}

func (f *File) Put(_ context.Context, name string, data []byte, expected int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, err := f.read(name)
	if err != nil {
		return 0, err
	}
	if err := checkVersion(name, expected, cur.Version); err != nil {
		return 0, err
	}
	sum := record.Digest(data)
	if cur.Version > 0 && cur.Digest == sum {
		return cur.Version, nil
	}

	env := fileEnvelope{
		Version:   cur.Version + 1,
		Digest:    sum,
		UpdatedAt: f.now().UTC(),
	}
	if json.Valid(data) {
		env.Records = data
	} else {
		// The envelope must stay parseable, so unparseable text goes in as a string.
		raw := string(data)
		env.Raw = &raw
	}
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return 0, fmt.Errorf("put %q: encode envelope: %w", name, err)
	}
	if err := atomic.WriteFile(f.path(name), &out); err != nil {
		return 0, fmt.Errorf("put %q: %w", name, err)
	}
	return env.Version, nil
}

func (f *File) Names(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		name, err := url.PathUnescape(strings.TrimSuffix(e.Name(), fileExt))
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (f *File) Close() error {
	return nil
}
