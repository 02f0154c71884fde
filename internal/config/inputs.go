package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseStringMap decodes a JSON object into a string map. Scalar values are
// stringified so {"COUNT": 3, "DRY_RUN": true} becomes COUNT=3, DRY_RUN=true.
func ParseStringMap(text string) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		case float64, bool:
			out[k] = fmt.Sprint(val)
		default:
			// nested values are passed through as their JSON text
			b, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("value for %q: %w", k, err)
			}
			out[k] = string(b)
		}
	}
	return out, nil
}

// ParseKeyValues parses repeated key=value flags
func ParseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid key=value pair: %q", pair)
		}
		out[k] = v
	}
	return out, nil
}

// MergeStringMaps returns base overlaid with override. Neither input is modified.
func MergeStringMaps(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
