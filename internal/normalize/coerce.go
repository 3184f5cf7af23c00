package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Coercion helpers for values decoded from upstream JSON of unknown shape.
// All are best-effort: an unconvertible value yields the fallback, never an error.

// IntField reads key from record as an int, falling back when absent or unconvertible.
func IntField(record map[string]any, key string, fallback int) int {
	if v, ok := lookupInt(record, key); ok {
		return v
	}
	return fallback
}

func lookupInt(record map[string]any, key string) (int, bool) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return 0, false
	}
	return toInt(raw)
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed), true
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// StringAlias returns the first key that holds a string-coercible value.
func StringAlias(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := toString(record[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

// IntAlias returns the first key that holds an int-coercible value, else 0.
func IntAlias(record map[string]any, keys ...string) int {
	for _, key := range keys {
		if v, ok := lookupInt(record, key); ok {
			return v
		}
	}
	return 0
}

// FloatAlias returns the first key that holds a float-coercible value, else 0.
func FloatAlias(record map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if raw, ok := record[key]; ok && raw != nil {
			if v, ok := toFloat(raw); ok {
				return v
			}
		}
	}
	return 0
}

// StringsAlias returns the first key holding a string slice. A bare string
// value counts as a one-element slice, which covers single-role identities.
func StringsAlias(record map[string]any, keys ...string) []string {
	for _, key := range keys {
		raw, ok := record[key]
		if !ok || raw == nil {
			continue
		}
		if out := toStringSlice(raw); out != nil {
			return out
		}
		if s, ok := raw.(string); ok && s != "" {
			return []string{s}
		}
	}
	return nil
}

func lookupBool(record map[string]any, key string) (bool, bool) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return false, false
	}
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		if parsed, err := v.Float64(); err == nil {
			return parsed, true
		}
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func toString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case float64:
		// JSON numbers used where the console expects identifiers.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := toString(item); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
