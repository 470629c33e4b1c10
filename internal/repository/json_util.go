package repository

import (
	"encoding/json"
	"fmt"
)

// jsonParam encodes v for a JSONB column. Nil values become SQL NULL.
func jsonParam(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json column: %w", err)
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

// scanJSON decodes a nullable JSONB column into out.
func scanJSON(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode json column: %w", err)
	}
	return nil
}
