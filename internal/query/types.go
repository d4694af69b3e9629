package query

import "github.com/roach88/lexstore/internal/record"

// Predicate is a filter condition over one record.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// CategoryAll is the category wildcard.
const CategoryAll = "all"

// Category matches records whose "category" field equals Value.
// Value "" or CategoryAll matches every record.
type Category struct {
	Value string
}

func (Category) predicateNode() {}

// Status matches records whose "status" field equals Value.
type Status struct {
	Value string
}

func (Status) predicateNode() {}

// DefaultTextFields are searched when a Text predicate names no fields.
var DefaultTextFields = []string{"name", "title", "description", "email", "customerName", "itemName"}

// Text matches records where any of Fields contains Query, ignoring case.
// An empty Query matches every record.
type Text struct {
	Query  string
	Fields []string // nil = DefaultTextFields
}

func (Text) predicateNode() {}

// Equals matches records whose Field has exactly Value.
// A record without the field never matches.
type Equals struct {
	Field string
	Value string
}

func (Equals) predicateNode() {}

// And matches when every predicate matches. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Catalog returns the predicate for public catalog views: active items in
// the given category.
func Catalog(category string) And {
	return And{Predicates: []Predicate{
		Status{Value: record.StatusActive},
		Category{Value: category},
	}}
}

// deref returns the value a pointer predicate points to. A nil pointer
// becomes a nil Predicate.
func deref(p Predicate) Predicate {
	switch pred := p.(type) {
	case *Category:
		if pred != nil {
			return *pred
		}
	case *Status:
		if pred != nil {
			return *pred
		}
	case *Text:
		if pred != nil {
			return *pred
		}
	case *Equals:
		if pred != nil {
			return *pred
		}
	case *And:
		if pred != nil {
			return *pred
		}
	default:
		return p
	}
	return nil
}
