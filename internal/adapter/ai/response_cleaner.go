// Package ai provides response cleaning utilities shared by judge clients
// and the writing evaluator.
package ai

import (
	"encoding/json"
	"strings"
)

// CleanJSONResponse strips markdown code fences and surrounding prose from a
// judge response, returning the first balanced JSON object it contains. The
// input is returned unchanged when no object can be located; callers treat a
// subsequent parse failure as a fallback condition.
func CleanJSONResponse(response string) string {
	response = removeMarkdownFences(response)
	return extractJSONObject(response)
}

// IsValidJSON reports whether s parses as JSON.
func IsValidJSON(s string) bool {
	var v any
	return json.Unmarshal([]byte(s), &v) == nil
}

func removeMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first balanced {...} span, tolerating prose
// before and after it.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s
}
