// Package record defines the typed entities kept in lexstore collections.
//
// This package is the foundational layer: every other internal package
// imports record; record imports nothing internal.
//
// Key design constraints:
//   - JSON tags use the camelCase names already present in stored data
//   - Every entity carries an Extra bag so unknown fields survive a
//     decode/encode cycle
//   - Optional fields decode to their zero value when absent
//   - Timestamps are kept as the stored text (see Timestamp)
package record
