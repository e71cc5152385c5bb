package template

import (
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/errors"
)

// ErrNoJSON is returned when no embedded JSON value can be located.
var ErrNoJSON = stderrors.New("no JSON object or array found in input")

// ExtractJSONObject returns the first brace-balanced JSON object in s,
// or "" when none is found. Braces inside string literals are ignored.
//
// Models often wrap JSON in prose or markdown fences; this pulls the
// payload out without requiring the whole response to be valid JSON.
func ExtractJSONObject(s string) string {
	return extractBalanced(s, '{', '}')
}

// ExtractJSONArray returns the first bracket-balanced JSON array in s,
// or "" when none is found.
func ExtractJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

// UnmarshalEmbedded locates the first JSON object in s and unmarshals
// it into v. If no object is found, the array form is tried. A located
// candidate that still fails to decode yields a JSONParseError.
func UnmarshalEmbedded(s string, v any) error {
	candidate := ExtractJSONObject(s)
	if candidate == "" {
		candidate = ExtractJSONArray(s)
	}
	if candidate == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return &errors.JSONParseError{Input: candidate, Message: err.Error()}
	}
	return nil
}

func extractBalanced(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
