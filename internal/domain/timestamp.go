package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// BackendTimeLayout is the layout the storefront backend uses for createdAt.
const BackendTimeLayout = "2006-01-02 15:04:05"

// Timestamp is an optional point in time decoded leniently: any layout
// dateparse understands is accepted, and anything else decodes to the zero
// value instead of failing the surrounding document.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses s with dateparse in UTC. Blank or unparseable input
// returns the zero Timestamp and false.
func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Timestamp{}, false
	}
	return NewTimestamp(t), true
}

// Valid reports whether a timestamp is present.
func (t Timestamp) Valid() bool {
	return !t.IsZero()
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		// Bare numbers are epoch values; dateparse handles those as strings.
		raw = string(b)
	}

	parsed, _ := ParseTimestamp(raw)
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(BackendTimeLayout))
}
