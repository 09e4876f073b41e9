// Package jsvar extracts a balanced JSON object assigned to a JavaScript
// variable inside arbitrary HTML/JS text.
//
// A JSON parser cannot be pointed at the page directly — the object has to be
// isolated first, and regex or naive bracket counting breaks as soon as a
// string value inside the object contains a literal brace (caption track URLs
// and error messages regularly do). The scanner therefore tracks quoting and
// escaping while counting depth.
package jsvar

import (
	"errors"
	"strings"
)

// ErrNotFound means the variable assignment does not appear in the input.
var ErrNotFound = errors.New("jsvar: variable assignment not found")

// ErrUnterminated means the input ended before the object's braces balanced
// out. Well-formed platform responses never trigger this; hitting it points
// at a truncated response or a logic error, not at something retryable.
var ErrUnterminated = errors.New("jsvar: unterminated object")

// Extract returns the JSON object assigned to `var <name>`, including both
// enclosing braces, as a raw substring to be decoded by the caller.
func Extract(rawHTML, name string) (string, error) {
	_, rest, found := strings.Cut(rawHTML, "var "+name)
	if !found {
		return "", ErrNotFound
	}

	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return "", ErrUnterminated
	}

	// Scanning bytes is safe: '{', '}', '"' and '\' are ASCII and can never
	// be part of a multi-byte UTF-8 sequence.
	escaped := false
	inQuotes := false
	depth := 1

	for i := start + 1; i < len(rest); i++ {
		switch c := rest[i]; {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return rest[start : i+1], nil
			}
		}
	}

	return "", ErrUnterminated
}
