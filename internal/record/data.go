package record

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SubmissionData maps form field ids to submitted values.
//
// Browser forms store checkboxes as booleans and multi-selects as arrays.
// Decoding accepts any JSON scalar or array and keeps its text form, so one
// unusual value does not make the whole collection unreadable. Null values
// are dropped.
type SubmissionData map[string]string

func (d *SubmissionData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*d = nil
		return nil
	}
	out := make(SubmissionData, len(raw))
	for k, v := range raw {
		text, ok := scalarText(v)
		if !ok {
			continue
		}
		out[k] = text
	}
	*d = out
	return nil
}

func scalarText(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", false
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if text, ok := scalarText(item); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, ", "), true
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", false
		}
		return buf.String(), true
	}
}
