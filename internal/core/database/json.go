package db

import (
	"encoding/json"
	"strings"
)

// encodeJSON marshals v for a JSONB column, using empty when v is nil.
func encodeJSON(v any, empty string) (string, error) {
	switch t := v.(type) {
	case nil:
		return empty, nil
	case map[string]any:
		if t == nil {
			return empty, nil
		}
	case []string:
		if t == nil {
			return empty, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMap(raw []byte, dst *map[string]any) error {
	if len(raw) == 0 {
		*dst = map[string]any{}
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = map[string]any{}
	}
	return nil
}

// prefixed qualifies every column in a comma-separated list.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
