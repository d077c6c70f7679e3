package jsonutil

import (
	"errors"
	"strings"
)

// ErrNoStructure is returned when a reply contains neither a fenced JSON block
// nor a bracket-delimited JSON span.
var ErrNoStructure = errors.New("jsonutil: no JSON structure found")

// StripFences removes leading/trailing Markdown code-fence markers, with or
// without a "json" tag. A reply with only an opening or only a closing fence
// is tolerated; anything else is returned trimmed but otherwise untouched.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	open := ""
	switch {
	case strings.HasPrefix(s, "```json"):
		open = "```json"
	case strings.HasPrefix(s, "```"):
		open = "```"
	}
	if open != "" {
		s = strings.TrimSpace(s[len(open):])
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(s[:len(s)-3])
	}
	return s
}

// FirstStructure returns the first bracket-delimited JSON span in s: from the
// earliest top-level '{' or '[' to the last closing bracket of the same kind.
// Matching greedily to the last closer keeps nested structures intact.
func FirstStructure(s string) (string, error) {
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start, closer := -1, byte(0)
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start, closer = objStart, '}'
	case arrStart >= 0:
		start, closer = arrStart, ']'
	default:
		return "", ErrNoStructure
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", ErrNoStructure
	}
	return s[start : end+1], nil
}

// ExtractStructure normalizes a free-form model reply down to its JSON
// payload: code fences are stripped first, then, if the remainder is not
// already bracket-led, the first embedded JSON span is located.
func ExtractStructure(s string) (string, error) {
	s = StripFences(s)
	if s == "" {
		return "", ErrNoStructure
	}
	if s[0] == '{' || s[0] == '[' {
		return s, nil
	}
	return FirstStructure(s)
}
