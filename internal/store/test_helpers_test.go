package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// createTestSQLite opens a SQLite store in a temp directory.
func createTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFile opens a file store in a temp directory.
func createTestFile(t *testing.T) *File {
	t.Helper()
	f, err := OpenFile(filepath.Join(t.TempDir(), "collections"))
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	return f
}

// createTestRedis connects to LEXSTORE_TEST_REDIS_ADDR, skipping when unset.
// Each test gets its own key prefix and its keys are removed afterwards.
func createTestRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("LEXSTORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEXSTORE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis at %s unavailable: %v", addr, err)
	}

	prefix := "lexstore-test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return NewRedis(client, prefix)
}

// backends lists the stores every conformance test runs against.
func backends() map[string]func(t *testing.T) CollectionStore {
	return map[string]func(t *testing.T) CollectionStore{
		"memory": func(t *testing.T) CollectionStore { return NewMemory() },
		"sqlite": func(t *testing.T) CollectionStore { return createTestSQLite(t) },
		"file":   func(t *testing.T) CollectionStore { return createTestFile(t) },
		"redis":  func(t *testing.T) CollectionStore { return createTestRedis(t) },
	}
}

// forEachBackend runs fn once per backend as a subtest.
func forEachBackend(t *testing.T, fn func(t *testing.T, s CollectionStore)) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}
