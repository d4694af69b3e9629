// Package relation follows foreign keys between collections.
//
// Resolution is read-only and linear in the target collection's size; no
// index is persisted. A dangling key, an empty key and an absent target
// collection all resolve to "not found" rather than an error. Only backend
// failures are returned as errors.
//
// Check scans every relation at once and reports drift (dangling references,
// users without a CRM row, duplicate keys) without repairing it.
package relation
