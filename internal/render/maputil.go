package render

import (
	"encoding/json"
	"sort"
)

// sortedKeys returns m's keys in lexical order so map-driven rendering
// stays deterministic (Render's output must be a pure function of its
// input and seed, and Go map iteration order is not).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// deepCopyAny round-trips v through JSON to produce an independent copy.
// The Renderer must be a pure function of its input (Determinism, §4.1);
// working on a copy keeps it from mutating a record the caller still holds.
func deepCopyAny(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// isEmptyValue reports whether v is the empty container or empty string
// that the composer-normalization step strips from a service definition.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// stripEmpty removes every key whose value is empty from m, in place.
func stripEmpty(m map[string]any) {
	for k, v := range m {
		if isEmptyValue(v) {
			delete(m, k)
		}
	}
}
