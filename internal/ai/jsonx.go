package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers a JSON object or array from a model's raw reply. The
// reply may be bare JSON, JSON inside Markdown code fences, or JSON wrapped
// in prose on either side. When nothing recoverable is found it returns
// "{}", never an error; schema validation downstream decides whether the
// recovered text is actually usable.
//
// The slice heuristic assumes at most one top-level JSON value and does not
// track braces inside string literals; a reply embedding unbalanced braces
// in a string can confuse it. Accepted risk: the schema check catches the
// damage and the operation falls back.
func ExtractJSON(raw string) string {
	s := stripFences(strings.TrimSpace(raw))
	if s == "" {
		return "{}"
	}

	if json.Valid([]byte(s)) {
		return s
	}

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	var closer byte
	start := -1
	switch {
	case objStart == -1 && arrStart == -1:
		return "{}"
	case arrStart == -1 || (objStart != -1 && objStart < arrStart):
		closer, start = '}', objStart
	default:
		closer, start = ']', arrStart
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "{}"
	}
	return s[start : end+1]
}

// stripFences removes a surrounding Markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the language tag up to the first newline
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first == "" || isLangTag(first) {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isLangTag(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return len(s) <= 12
}
