package query

import (
	"fmt"
	"strings"
)

// ParseEquals parses "field=value" into an Equals predicate.
func ParseEquals(s string) (Equals, error) {
	field, value, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return Equals{}, fmt.Errorf("invalid condition %q (want field=value)", s)
	}
	return Equals{Field: field, Value: value}, nil
}
