// Package upsert inserts records that are not already present by natural
// key and skips the rest.
//
// An upsert never updates in place: a candidate whose natural key matches an
// existing record is skipped and the collection is left untouched. New
// records are prepended, so collections read most-recent-first.
//
// An empty natural key never matches anything, so a candidate that cannot
// produce a key is always inserted.
//
// Every upsert is a store.Update, so concurrent writers to the same
// collection are retried rather than lost.
package upsert
