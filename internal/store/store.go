package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AnyVersion disables the version check on Put.
const AnyVersion int64 = -1

var (
	// ErrVersionConflict is matched by *ConflictError.
	ErrVersionConflict = errors.New("version conflict")

	// ErrNoChange may be returned by an Update function to skip the write.
	ErrNoChange = errors.New("no change")

	// ErrUnreadable is matched by *UnreadableError.
	ErrUnreadable = errors.New("collection unreadable")
)

// UnreadableError reports a read-modify-write refused because the stored
// content could not be decoded.
type UnreadableError struct {
	Collection string
	Version    int64
	Err        error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("collection %q (version %d) is unreadable: %v", e.Collection, e.Version, e.Err)
}

func (e *UnreadableError) Is(target error) bool {
	return target == ErrUnreadable
}

func (e *UnreadableError) Unwrap() error {
	return e.Err
}

// ConflictError reports an optimistic concurrency failure.
type ConflictError struct {
	Collection string
	Expected   int64
	Current    int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("collection %q: version conflict (expected %d, current %d)", e.Collection, e.Expected, e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// Snapshot is the stored state of one collection.
type Snapshot struct {
	Name      string
	Data      []byte
	Version   int64 // 0 when the collection has never been written
	Digest    string
	UpdatedAt time.Time
}

// Exists reports whether the collection has been written.
func (s Snapshot) Exists() bool {
	return s.Version > 0
}

// CollectionStore is the raw storage interface shared by all backends.
// Implementations are safe for concurrent use.
type CollectionStore interface {
	// Get returns the collection's snapshot. A collection that was never
	// written returns a zero-version snapshot and no error.
	Get(ctx context.Context, name string) (Snapshot, error)

	// Put replaces the collection's content and returns the new version.
	// expected must equal the current version (0 = must not exist) unless it
	// is AnyVersion.
	Put(ctx context.Context, name string, data []byte, expected int64) (int64, error)

	// Names lists the collections that exist, sorted.
	Names(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// checkVersion applies the optimistic concurrency rule shared by backends.
func checkVersion(name string, expected, current int64) error {
	if expected == AnyVersion || expected == current {
		return nil
	}
	return &ConflictError{Collection: name, Expected: expected, Current: current}
}
