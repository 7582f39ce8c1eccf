package attachment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeImages coerces the loosely typed images value sent by clients into
// a canonical list. Accepted shapes: an array of strings and/or objects, a
// JSON-encoded string holding any of these, a single URL string, a single
// object, or null. Normalizing an already canonical list returns it unchanged.
func NormalizeImages(raw json.RawMessage) (List, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return List{}, nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("normalize images: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			return List{}, nil
		}
		inner := bytes.TrimSpace([]byte(s))
		if !json.Valid(inner) {
			// not JSON, so it is a single URL
			return List{FromURL(s)}, nil
		}
		trimmed = inner
	}

	if trimmed[0] == '[' {
		var items []Attachment
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("normalize images: %w", err)
		}
		return List(items), nil
	}

	var single Attachment
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("normalize images: %w", err)
	}
	if single.IsZero() {
		return List{}, nil
	}
	return List{single}, nil
}
