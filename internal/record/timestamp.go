package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Timestamp is a point in time kept as the text found in storage.
//
// Writers in this module always produce RFC 3339 UTC text. Older data may
// carry other layouts; keeping the raw text means such records still decode
// and round-trip unchanged.
type Timestamp string

// UnmarshalJSON accepts text, null, or a number of milliseconds since the
// Unix epoch. Numbers are converted to text on decode.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ts = Timestamp(s)
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsInf(ms, 0) || math.IsNaN(ms) {
		return fmt.Errorf("timestamp: unsupported value %s", data)
	}
	*ts = NewTimestamp(time.UnixMilli(int64(ms)))
	return nil
}

// timestampLayouts are tried in order by Time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// NewTimestamp formats t as RFC 3339 in UTC with millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

// Time parses the timestamp. ok is false for empty or unrecognised text.
func (ts Timestamp) Time() (t time.Time, ok bool) {
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, string(ts)); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
