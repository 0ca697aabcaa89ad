package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrEmptyModelReply is returned when the model produced no content at all.
var ErrEmptyModelReply = errors.New("empty model reply")

// ParseModelJSON parses a model reply expected to be a JSON object. Models
// sometimes wrap the object in prose or markdown fences; if the direct
// parse fails, the substring between the first '{' and the last '}' is
// parsed once more before giving up.
func ParseModelJSON(content string) (map[string]any, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyModelReply
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &parsed); err == nil {
			return parsed, nil
		}
	}
	return nil, errors.New("no JSON object found in model reply")
}
