package common

import (
	"bytes"
	"encoding/json"
)

// ExtractList pulls a list out of a JSON payload that may be a bare array,
// an object with "data", or an object with "items", checked in that order.
// Anything else yields an empty list.
func ExtractList(raw []byte) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []json.RawMessage{}
	}

	var list []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err == nil {
			return list
		}
		return []json.RawMessage{}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return []json.RawMessage{}
	}
	for _, key := range []string{"data", "items"} {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '[' {
			if err := json.Unmarshal(inner, &list); err == nil {
				return list
			}
		}
	}
	return []json.RawMessage{}
}
