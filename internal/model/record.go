package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record maps a feature name to a scalar value. CSV rows hold strings;
// JSON payloads may also hold float64, bool or json.Number values.
type Record map[string]any

// Has reports whether the record carries a non-null value for name.
func (r Record) Has(name string) bool {
	v, ok := r[name]
	return ok && v != nil
}

// Keys lists the names of fields carrying a non-null value.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k, v := range r {
		if v != nil {
			keys = append(keys, k)
		}
	}
	return keys
}

func numericValue(r Record, name string) (float64, error) {
	if !r.Has(name) {
		return 0, fmt.Errorf("missing value for feature %q", name)
	}
	raw := r[name]
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("feature %q: %w", name, err)
		}
		return f, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("missing value for feature %q", name)
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("feature %q: could not convert %q to a number", name, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("feature %q: unsupported value type %T", name, raw)
	}
}

func categoricalValue(r Record, name string) (string, error) {
	if !r.Has(name) {
		return "", fmt.Errorf("missing value for feature %q", name)
	}
	raw := r[name]
	switch v := raw.(type) {
	case string:
		return normalizeLevel(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return normalizeLevel(fmt.Sprint(v)), nil
	}
}

func normalizeLevel(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
