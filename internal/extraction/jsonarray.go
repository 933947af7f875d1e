package extraction

import (
	"bytes"
	"encoding/json"
	"strings"
)

// extractJSONArray isolates the JSON array payload from a raw model
// response. It looks for the first '[' and the last ']'; when both exist the
// substring between them is returned, otherwise the whole trimmed response
// is. This is deliberately heuristic and kept behind one function so its
// behavior stays observable independent of any model call.
func extractJSONArray(raw string) string {
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

// decodeObjects parses payload as a JSON array and returns its object
// elements. Elements that parse but are not objects are silently dropped.
// A payload that is not a JSON array at all is a parse error.
func decodeObjects(payload string) ([]json.RawMessage, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &elements); err != nil {
		return nil, err
	}

	objects := elements[:0]
	for _, el := range elements {
		if isObject(el) {
			objects = append(objects, el)
		}
	}
	return objects, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
