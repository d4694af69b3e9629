// Package store provides durable storage for named record collections.
//
// A collection is stored whole: readers get the entire encoded text and
// writers replace it. There is no partial-write API.
//
// # Versions
//
// Every collection carries a monotonic version (0 = absent). Put takes the
// version the caller read; a mismatch fails with *ConflictError, which
// matches ErrVersionConflict. Passing AnyVersion restores last-writer-wins.
// Update wraps read-modify-write with bounded retries on conflict.
//
// A Put whose content digest equals the stored digest changes nothing and
// does not bump the version.
//
// # Backends
//
//   - Memory: in-process map, used by tests and as a substitute store
//   - SQLite: single file, WAL mode, schema migrations via user_version
//   - Postgres: shared database, row lock per collection
//   - File: one JSON envelope per collection, replaced atomically
//   - Redis: one hash per collection, compare-and-set in a Lua script
//
// # Decode failures
//
// GetCollection never fails on unreadable content. Malformed or mis-shaped
// text is logged with slog.Warn and read as an empty collection, so callers
// can keep rendering.
package store
