package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"cosmicds/internal/config"
)

// parseAssignments turns key=value pairs into state values. Fields the stage
// declares are parsed by their manifest type; anything else is read as JSON
// when it parses and kept as a string otherwise.
func parseAssignments(stage *config.Stage, pairs []string) (map[string]any, error) {
	values := make(map[string]any)
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid assignment %q: empty key", pair)
		}
		raw = strings.TrimSpace(raw)

		if stage != nil {
			if field, ok := stage.FieldByName(key); ok {
				value, err := field.Parse(raw)
				if err != nil {
					return nil, err
				}
				values[key] = value
				continue
			}
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		values[key] = value
	}
	return values, nil
}
