// Package query filters record collections with composable predicates.
//
// Predicate is a sealed interface using the marker method pattern: only the
// types in this package implement it, so Filter and Validate can switch over
// them exhaustively.
//
// Predicate kinds:
//   - Category: category equality; "all" or "" matches everything
//   - Status: status equality ("active" gates public views)
//   - Text: case-insensitive substring match across named fields
//   - Equals: field equality, typically a foreign key
//   - And: every sub-predicate must match
//
// There is no Or. Filter ANDs its arguments and never reorders: matches come
// back in their original relative order.
//
// Fields are addressed by JSON name through record.Record.Field, so the same
// predicate works on typed fields and on unknown fields kept in a record's
// extras.
//
// Text matching normalizes both sides to NFC and applies Unicode case folding,
// so "DIVORCIO", "divorcio" and a decomposed "divorcío" compare as expected.
package query
