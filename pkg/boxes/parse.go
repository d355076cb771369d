package boxes

import (
	"encoding/json"
	"strings"
)

// ParseBoxes extracts a JSON array of boxes from a model reply. Replies are
// tried as fenced code blocks, as a whole, between the first '[' and the last
// ']', and finally as a truncated array closed after its last complete
// object. Elements that do not decode as a box are dropped; no array at all
// yields nil.
func ParseBoxes(content string) []Box {
	raw := findArray(strings.TrimSpace(content))
	if raw == nil {
		return nil
	}

	boxes := make([]Box, 0, len(raw))
	for _, item := range raw {
		var b Box
		if err := json.Unmarshal(item, &b); err != nil {
			continue
		}
		boxes = append(boxes, b)
	}
	return boxes
}

func findArray(content string) []json.RawMessage {
	if strings.Contains(content, "```") {
		for _, part := range strings.Split(content, "```") {
			part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "json"))
			if arr, ok := decodeArray(part); ok {
				return arr
			}
		}
	}

	if arr, ok := decodeArray(content); ok {
		return arr
	}

	start, end := strings.Index(content, "["), strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		if arr, ok := decodeArray(content[start : end+1]); ok {
			return arr
		}
	}

	if start >= 0 {
		if last := strings.LastIndex(content, "}"); last > start {
			if arr, ok := decodeArray(content[start:last+1] + "]"); ok {
				return arr
			}
		}
	}
	return nil
}

func decodeArray(s string) ([]json.RawMessage, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil, false
	}
	return arr, true
}
