package upsert

import (
	"context"
	"fmt"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/store"
)

// Outcome reports what an upsert did.
type Outcome int

const (
	Inserted Outcome = iota + 1
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ByKey uses the primary key as the natural key.
func ByKey[T record.Record](r T) string {
	return r.Key()
}

// UpsertByNaturalKey prepends candidate to the collection unless a record
// with the same natural key already exists. key returns "" for records
// that have no natural key.
func UpsertByNaturalKey[T record.Record](ctx context.Context, s store.CollectionStore, collection string, key func(T) string, candidate T) (Outcome, error) {
	outcome := Skipped
	_, err := store.Update(ctx, s, collection, func(records []T) ([]T, error) {
		if k := key(candidate); k != "" && contains(records, key, k) {
			outcome = Skipped
			return nil, store.ErrNoChange
		}
		outcome = Inserted
		return append([]T{candidate}, records...), nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return outcome, nil
}

// Result counts the outcomes of a batch upsert.
type Result struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// UpsertMany upserts a batch in a single collection write. Candidates keep
// their relative order ahead of the existing records. A candidate whose key
// repeats an earlier candidate's is skipped.
func UpsertMany[T record.Record](ctx context.Context, s store.CollectionStore, collection string, key func(T) string, candidates []T) (Result, error) {
	var res Result
	_, err := store.Update(ctx, s, collection, func(records []T) ([]T, error) {
		res = Result{}
		seen := make(map[string]struct{}, len(records)+len(candidates))
		for _, r := range records {
			if k := key(r); k != "" {
				seen[k] = struct{}{}
			}
		}

		fresh := make([]T, 0, len(candidates))
		for _, c := range candidates {
			k := key(c)
			if k != "" {
				if _, dup := seen[k]; dup {
					res.Skipped++
					continue
				}
				seen[k] = struct{}{}
			}
			fresh = append(fresh, c)
			res.Inserted++
		}
		if len(fresh) == 0 {
			return nil, store.ErrNoChange
		}
		return append(fresh, records...), nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("upsert batch into %s: %w", collection, err)
	}
	return res, nil
}

func contains[T record.Record](records []T, key func(T) string, k string) bool {
	for _, r := range records {
		if key(r) == k {
			return true
		}
	}
	return false
}
