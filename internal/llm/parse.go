package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a reply contains no JSON object
var ErrNoJSON = errors.New("no JSON object in model output")

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject pulls a JSON object out of a model reply. It tries the
// whole reply, then a fenced code block, then the first balanced {...} span.
func ExtractJSONObject(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoJSON
	}

	if isObject(text) {
		return []byte(text), nil
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil && isObject(m[1]) {
		return []byte(m[1]), nil
	}

	if span, ok := firstObjectSpan(text); ok && isObject(span) {
		return []byte(span), nil
	}

	return nil, ErrNoJSON
}

func isObject(s string) bool {
	var v map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &v) == nil
}

// firstObjectSpan scans for the first brace-balanced span, skipping braces
// inside string literals
func firstObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
