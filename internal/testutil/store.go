package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/store"
)

// NewStore returns an empty in-memory store.
func NewStore(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	t.Cleanup(func() { s.Close() })
	return s
}

// Seed replaces a collection's content, failing the test on error.
func Seed[T record.Record](t *testing.T, s store.CollectionStore, name string, records ...T) {
	t.Helper()
	if records == nil {
		records = []T{}
	}
	_, err := store.PutCollection(context.Background(), s, name, records, store.AnyVersion)
	require.NoError(t, err, "seed %s", name)
}

// Read returns a collection's records, failing the test on error.
func Read[T record.Record](t *testing.T, s store.CollectionStore, name string) []T {
	t.Helper()
	records, _, err := store.GetCollection[T](context.Background(), s, name)
	require.NoError(t, err, "read %s", name)
	return records
}

// Keys returns the primary keys of records in order.
func Keys[T record.Record](records []T) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key()
	}
	return out
}
