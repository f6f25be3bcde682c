package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one update as delivered by the API. Fields are loosely typed and
// all optional; accessors resolve the documented fallbacks.
type Record map[string]any

// Title resolves title, then name, then "Update".
func (r Record) Title() string {
	if s, ok := r.first("title", "name"); ok {
		return s
	}
	return "Update"
}

// Text resolves text, then body, then message.
func (r Record) Text() string {
	s, _ := r.first("text", "body", "message")
	return s
}

// Tag resolves tag, then type, then level, then "info".
func (r Record) Tag() string {
	if s, ok := r.first("tag", "type", "level"); ok {
		return s
	}
	return "info"
}

// Date returns the raw timestamp value (date, created_at or timestamp), or nil.
func (r Record) Date() any {
	for _, k := range []string{"date", "created_at", "timestamp"} {
		if v := r[k]; truthy(v) {
			return v
		}
	}
	return nil
}

// SearchText is the haystack the list filter matches against: the raw title,
// text and body fields joined by spaces.
func (r Record) SearchText() string {
	return r.str("title") + " " + r.str("text") + " " + r.str("body")
}

func (r Record) str(key string) string {
	if v := r[key]; truthy(v) {
		return Stringify(v)
	}
	return ""
}

func (r Record) first(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := r[k]; truthy(v) {
			return Stringify(v), true
		}
	}
	return "", false
}

// truthy follows JSON-ish truthiness: empty strings, zero, false and null are
// absent; objects and arrays are present even when empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// Stringify renders a decoded JSON value as display text.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		return "[object Object]"
	case []any:
		parts := make([]byte, 0, 16)
		for i, e := range t {
			if i > 0 {
				parts = append(parts, ',')
			}
			parts = append(parts, Stringify(e)...)
		}
		return string(parts)
	default:
		return fmt.Sprint(t)
	}
}
