package store

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendRedis    = "redis"
)

// Backends lists every backend Open understands.
var Backends = []string{BackendSQLite, BackendFile, BackendPostgres, BackendRedis, BackendMemory}

// Options selects and locates a backend.
type Options struct {
	Backend string
	// DSN is a file path (sqlite), a directory (file), a lib/pq connection
	// string (postgres) or a redis:// URL (redis). Ignored for memory.
	DSN string
	// KeyPrefix namespaces Redis keys.
	KeyPrefix string
}

// Open constructs the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (CollectionStore, error) {
	if opts.Backend != BackendMemory && opts.DSN == "" {
		return nil, fmt.Errorf("backend %q requires a dsn", opts.Backend)
	}
	var (
		s   CollectionStore
		err error
	)
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		s, err = OpenSQLite(opts.DSN)
	case BackendPostgres:
		s, err = OpenPostgres(ctx, opts.DSN)
	case BackendFile:
		s, err = OpenFile(opts.DSN)
	case BackendRedis:
		s, err = OpenRedis(ctx, opts.DSN, opts.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown backend %q (want one of %v)", opts.Backend, Backends)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}
	return s, nil
}
