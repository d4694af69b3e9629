package query

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/lexstore/internal/record"
)

// matcher is a compiled predicate.
type matcher func(record.Record) bool

// Filter returns the records matching every predicate, in input order.
// The result is never nil.
func Filter[T record.Record](records []T, preds ...Predicate) []T {
	match := compile(And{Predicates: preds})
	out := make([]T, 0, len(records))
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Match reports whether a single record satisfies p. A nil predicate matches.
func Match(r record.Record, p Predicate) bool {
	return compile(p)(r)
}

func compile(p Predicate) matcher {
	switch pred := deref(p).(type) {
	case nil:
		return matchAll
	case Category:
		return compileCategory(pred)
	case Status:
		return fieldEquals("status", pred.Value)
	case Text:
		return compileText(pred)
	case Equals:
		return fieldEquals(pred.Field, pred.Value)
	case And:
		return compileAnd(pred)
	default:
		// Unreachable while the interface is sealed.
		panic(fmt.Sprintf("query: unknown predicate type %T", p))
	}
}

func matchAll(record.Record) bool { return true }

func compileCategory(c Category) matcher {
	if c.Value == "" || c.Value == CategoryAll {
		return matchAll
	}
	return fieldEquals("category", c.Value)
}

func fieldEquals(field, value string) matcher {
	return func(r record.Record) bool {
		got, ok := r.Field(field)
		return ok && got == value
	}
}

func compileAnd(a And) matcher {
	matchers := make([]matcher, len(a.Predicates))
	for i, p := range a.Predicates {
		matchers[i] = compile(p)
	}
	return func(r record.Record) bool {
		for _, m := range matchers {
			if !m(r) {
				return false
			}
		}
		return true
	}
}

func compileText(t Text) matcher {
	folder := newFolder()
	needle := folder.fold(strings.TrimSpace(t.Query))
	if needle == "" {
		return matchAll
	}
	fields := t.Fields
	if len(fields) == 0 {
		fields = DefaultTextFields
	}
	return func(r record.Record) bool {
		for _, f := range fields {
			v, ok := r.Field(f)
			if ok && strings.Contains(folder.fold(v), needle) {
				return true
			}
		}
		return false
	}
}

// folder normalizes text for case-insensitive comparison.
// Not safe for concurrent use; each compiled matcher owns one.
type folder struct {
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{caser: cases.Fold()}
}

func (f *folder) fold(s string) string {
	return f.caser.String(norm.NFC.String(s))
}

// Fold returns s in the form Text compares: NFC-normalized and case-folded.
func Fold(s string) string {
	return newFolder().fold(s)
}
