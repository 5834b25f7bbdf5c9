package jsonutil

import (
	"encoding/json"
	"strings"
)

// Compact renders v as one-line JSON. Unmarshalable values degrade to "{}"
// rather than failing, so callers can embed the result unconditionally.
func Compact(v any) string {
	if v == nil {
		return "{}"
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(buf)
}

// Pretty re-indents a raw JSON document. Invalid input is returned unchanged.
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return raw
	}
	return string(buf)
}
