package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Messages synthesized by the gateway when the backend gives nothing usable.
const (
	MsgInvalidFormat   = "Invalid response format"
	connectionErrorFmt = "Connection error: %s"
)

// Kind classifies how a call ended.
type Kind int

const (
	// KindOK is a 2xx answer with a JSON object body.
	KindOK Kind = iota
	// KindRemoteFailure is a non-2xx answer with a JSON object body.
	KindRemoteFailure
	// KindInvalidFormat is any answer whose body is not a JSON object.
	KindInvalidFormat
	// KindConnection means no answer was received at all.
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindRemoteFailure:
		return "remote_failure"
	case KindInvalidFormat:
		return "invalid_format"
	case KindConnection:
		return "connection_error"
	default:
		return "unknown"
	}
}

// Result is the normalized outcome of a gateway call. It always holds a
// JSON object: either the backend's payload or one synthesized as
// {"success": false, "error": "..."}.
type Result struct {
	// Status is the HTTP status of the answer, 0 when none was received.
	Status int
	Kind   Kind

	body   []byte
	fields map[string]json.RawMessage
}

// NewResult normalizes a raw backend answer the way Call does. It is
// useful for stubbing the backend in tests.
func NewResult(status int, body []byte) Result {
	return parsedResult(status, body)
}

// ConnectionFailure builds the result of a call that got no answer.
func ConnectionFailure(err error) Result {
	return connectionResult(err)
}

func parsedResult(status int, body []byte) Result {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return synthesized(status, KindInvalidFormat, MsgInvalidFormat)
	}

	kind := KindOK
	if status < 200 || status > 299 {
		kind = KindRemoteFailure
	}
	return Result{Status: status, Kind: kind, body: body, fields: fields}
}

func connectionResult(err error) Result {
	return synthesized(0, KindConnection, fmt.Sprintf(connectionErrorFmt, err.Error()))
}

func synthesized(status int, kind Kind, message string) Result {
	errMsg, _ := json.Marshal(message)
	fields := map[string]json.RawMessage{
		"success": json.RawMessage("false"),
		"error":   errMsg,
	}
	body, _ := json.Marshal(fields)
	return Result{Status: status, Kind: kind, body: body, fields: fields}
}

// OK reports whether the backend answered 2xx with a JSON object.
func (r Result) OK() bool {
	return r.Kind == KindOK
}

// Success reports whether the payload carries "success": true.
func (r Result) Success() bool {
	var ok bool
	found, err := r.Field("success", &ok)
	return found && err == nil && ok
}

// ErrorText returns the payload's "error" field as text. Numbers and
// booleans are rendered; zero, false, null and objects count as absent.
func (r Result) ErrorText() string {
	return r.stringField("error")
}

// Message returns the payload's "message" field as text, like ErrorText.
func (r Result) Message() string {
	return r.stringField("message")
}

// Has reports whether the payload has the given top-level key.
func (r Result) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Field decodes one top-level key of the payload into dst. It reports false
// when the key is absent.
func (r Result) Field(key string, dst any) (bool, error) {
	raw, ok := r.fields[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// Raw returns the payload as JSON.
func (r Result) Raw() json.RawMessage {
	return r.body
}

// Decode unmarshals the whole payload into dst.
func (r Result) Decode(dst any) error {
	if err := json.Unmarshal(r.body, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// FailureMessage is the human-readable reason of a failed call: the "error"
// field, then "message", then a generic status-coded text.
func (r Result) FailureMessage() string {
	if msg := r.ErrorText(); msg != "" {
		return msg
	}
	if msg := r.Message(); msg != "" {
		return msg
	}
	return fmt.Sprintf("API Error (%d)", r.Status)
}

// Err converts a failed result into an application error. It returns nil
// for KindOK.
func (r Result) Err() error {
	switch r.Kind {
	case KindOK:
		return nil
	case KindConnection:
		return apperrors.Unavailable(r.ErrorText())
	case KindInvalidFormat:
		return apperrors.Malformed(r.ErrorText())
	default:
		return apperrors.Upstream(r.Status, r.FailureMessage())
	}
}

func (r Result) stringField(key string) string {
	raw, ok := r.fields[key]
	if !ok {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
	case float64:
		if v != 0 {
			return strings.TrimSpace(string(raw))
		}
	}
	return ""
}
