// Package aggregate computes derived values from collections.
//
// Every function is pure and recomputes from its inputs; nothing is cached
// or persisted. Missing relations contribute zero.
package aggregate
