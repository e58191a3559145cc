package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// looseString renders a JSON value as text: strings as-is, null or absent
// as "", and any other value as its compact JSON form.
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// looseInt reads an integer from a number or a numeric string. Anything else
// is 0.
func looseInt(raw json.RawMessage) int64 {
	s := looseString(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// looseStrings reads a list of values as text. A non-list is nil.
func looseStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, looseString(item))
	}
	return out
}
