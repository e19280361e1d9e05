package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoJSON is returned when no balanced JSON value could be located.
	ErrNoJSON = errors.New("llm: no JSON found in response")

	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONArray returns the first balanced [...] substring of content.
// Models like to wrap their answer in prose or ```json fences, so the scan
// ignores everything outside the brackets and is aware of string literals.
func ExtractJSONArray(content string) string {
	return extractBalanced(content, '[', ']')
}

// ExtractJSONObject returns the first balanced {...} substring of content.
func ExtractJSONObject(content string) string {
	return extractBalanced(content, '{', '}')
}

// DecodeJSONArray extracts the first array from content and unmarshals it into out.
func DecodeJSONArray(content string, out interface{}) error {
	raw := ExtractJSONArray(content)
	if raw == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(cleanJSON(raw)), out)
}

// DecodeJSONObject extracts the first object from content and unmarshals it into out.
func DecodeJSONObject(content string, out interface{}) error {
	raw := ExtractJSONObject(content)
	if raw == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(cleanJSON(raw)), out)
}

func extractBalanced(content string, open, close byte) string {
	start := strings.IndexByte(content, open)
	for start != -1 {
		if end := matchClosing(content, start, open, close); end != -1 {
			return content[start : end+1]
		}
		next := strings.IndexByte(content[start+1:], open)
		if next == -1 {
			return ""
		}
		start += next + 1
	}
	return ""
}

// matchClosing returns the index of the bracket closing the one at start, or -1.
func matchClosing(content string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		c := content[i]
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
				return i
			}
		}
	}
	return -1
}

// cleanJSON removes trailing commas, a common artifact in model output.
func cleanJSON(raw string) string {
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}
