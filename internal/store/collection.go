package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/lexstore/internal/codec"
	"github.com/roach88/lexstore/internal/record"
)

// maxUpdateAttempts bounds Update's retry loop under contention.
const maxUpdateAttempts = 5

// GetCollection reads and decodes a collection. It returns the records and
// the version they were read at.
//
// Absent collections read as empty at version 0. Content that fails to
// decode also reads as empty (at its stored version) after a warning; only
// backend failures are returned as errors.
func GetCollection[T record.Record](ctx context.Context, s CollectionStore, name string) ([]T, int64, error) {
	records, version, decodeErr, err := readCollection[T](ctx, s, name)
	if err != nil {
		return nil, 0, err
	}
	if decodeErr != nil {
		slog.Warn("collection unreadable, treating as empty",
			"collection", name,
			"version", version,
			"error", decodeErr,
		)
	}
	return records, version, nil
}

// readCollection is GetCollection without the degradation: a decode failure
// is returned separately alongside the empty slice.
func readCollection[T record.Record](ctx context.Context, s CollectionStore, name string) (records []T, version int64, decodeErr, err error) {
	snap, err := s.Get(ctx, name)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("read collection %q: %w", name, err)
	}
	if !snap.Exists() {
		return []T{}, 0, nil, nil
	}
	records, decodeErr = codec.Decode[T](snap.Data)
	if decodeErr != nil {
		return []T{}, snap.Version, decodeErr, nil
	}
	return records, snap.Version, nil, nil
}

// PutCollection encodes records and writes them with the given expected
// version. See CollectionStore.Put.
func PutCollection[T record.Record](ctx context.Context, s CollectionStore, name string, records []T, expected int64) (int64, error) {
	data, err := codec.Encode(records)
	if err != nil {
		return 0, fmt.Errorf("encode collection %q: %w", name, err)
	}
	version, err := s.Put(ctx, name, data, expected)
	if err != nil {
		return 0, fmt.Errorf("write collection %q: %w", name, err)
	}
	slog.Debug("collection written", "collection", name, "version", version, "records", len(records))
	return version, nil
}

// Update performs a read-modify-write of one collection, retrying when a
// concurrent writer bumps the version in between. fn receives a freshly
// decoded slice it may modify; returning ErrNoChange skips the write.
//
// A collection whose stored content cannot be decoded is never rewritten:
// Update returns an *UnreadableError instead of calling fn, so records it
// could not read are not replaced by fn's result.
//
// Returns the version after the update.
func Update[T record.Record](ctx context.Context, s CollectionStore, name string, fn func([]T) ([]T, error)) (int64, error) {
	for attempt := 1; ; attempt++ {
		records, version, decodeErr, err := readCollection[T](ctx, s, name)
		if err != nil {
			return 0, err
		}
		if decodeErr != nil {
			slog.Error("refusing to update unreadable collection",
				"collection", name,
				"version", version,
				"error", decodeErr,
			)
			return 0, &UnreadableError{Collection: name, Version: version, Err: decodeErr}
		}

		next, err := fn(records)
		if errors.Is(err, ErrNoChange) {
			return version, nil
		}
		if err != nil {
			return 0, err
		}

		written, err := PutCollection(ctx, s, name, next, version)
		if err == nil {
			return written, nil
		}
		if !errors.Is(err, ErrVersionConflict) || attempt >= maxUpdateAttempts {
			return 0, err
		}
		slog.Debug("version conflict, retrying update",
			"collection", name,
			"attempt", attempt,
			"read_version", version,
		)

		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
}
