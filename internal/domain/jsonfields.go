package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errNotObject = errors.New("not a JSON object")

// objectFields splits a JSON object into its raw members.
func objectFields(data []byte) (map[string]json.RawMessage, bool) {
	if !isObject(data) {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// lenient decodes fields[key] into T. Absent, null and mistyped members
// report false and leave the zero value.
func lenient[T any](fields map[string]json.RawMessage, key string) (T, bool) {
	var out T
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
