package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotJSON is returned when a response holds no parseable JSON value
var ErrNotJSON = errors.New("response is not valid JSON")

// ExtractJSON returns the JSON value in a model response, accepting bare
// JSON or JSON wrapped in a fenced code block
func ExtractJSON(text string) (json.RawMessage, error) {
	body := StripFence(text)
	if !json.Valid([]byte(body)) {
		return nil, ErrNotJSON
	}
	return json.RawMessage(body), nil
}

// StripFence removes a surrounding ``` or ```json fence and whitespace
func StripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
