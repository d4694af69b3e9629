package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/lexstore/internal/record"
)

// DecodeErrorKind categorizes decode failures.
type DecodeErrorKind string

const (
	// KindSyntax means the text is not a JSON array.
	KindSyntax DecodeErrorKind = "SYNTAX"

	// KindShape means an element does not match its record definition.
	KindShape DecodeErrorKind = "SHAPE"
)

// DecodeError reports why stored text could not be decoded.
type DecodeError struct {
	Kind   DecodeErrorKind
	Record string // record kind being decoded
	Index  int    // element index for KindShape, -1 otherwise
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("decode %s: %s at element %d: %v", e.Record, e.Kind, e.Index, e.Err)
	}
	return fmt.Sprintf("decode %s: %s: %v", e.Record, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode returns the canonical JSON array text for records.
// A nil slice encodes as an empty array.
func Encode[T record.Record](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	data, err := record.MarshalCanonical(records)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

// Decode parses stored text into records.
//
// Empty text and JSON null decode to an empty slice. Any other failure is a
// *DecodeError; no partial result is returned.
func Decode[T record.Record](data []byte) ([]T, error) {
	var zero T
	kind := zero.Kind()

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var elems []any
	if err := dec.Decode(&elems); err != nil {
		return nil, &DecodeError{Kind: KindSyntax, Record: kind, Index: -1, Err: err}
	}
	if dec.More() {
		return nil, &DecodeError{Kind: KindSyntax, Record: kind, Index: -1, Err: fmt.Errorf("trailing data after array")}
	}

	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		normalized, err := json.Marshal(normalizeIDs(elem))
		if err != nil {
			return nil, &DecodeError{Kind: KindSyntax, Record: kind, Index: i, Err: err}
		}
		if err := validate(kind, normalized); err != nil {
			return nil, &DecodeError{Kind: KindShape, Record: kind, Index: i, Err: err}
		}
		var rec T
		if err := json.Unmarshal(normalized, &rec); err != nil {
			return nil, &DecodeError{Kind: KindShape, Record: kind, Index: i, Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

// normalizeIDs rewrites numeric values of id-like keys ("id" or "...Id")
// as strings, at any depth outside submission data. Numeric elements of
// id lists ("completedLessons" or "...Ids") are rewritten the same way.
func normalizeIDs(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if k == "data" {
				continue
			}
			if n, ok := child.(json.Number); ok && isIDKey(k) {
				val[k] = n.String()
				continue
			}
			if list, ok := child.([]any); ok && isIDListKey(k) {
				for i, elem := range list {
					if n, ok := elem.(json.Number); ok {
						list[i] = n.String()
					}
				}
				continue
			}
			val[k] = normalizeIDs(child)
		}
		return val
	case []any:
		for i, child := range val {
			val[i] = normalizeIDs(child)
		}
		return val
	default:
		return v
	}
}

func isIDKey(k string) bool {
	return k == "id" || strings.HasSuffix(k, "Id")
}

func isIDListKey(k string) bool {
	return k == "completedLessons" || strings.HasSuffix(k, "Ids")
}
