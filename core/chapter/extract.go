package chapter

import "errors"

var errNoJSONObject = errors.New("no JSON object found in response")

// extractJSONObject returns the first balanced-brace JSON object embedded
// in s. Capability responses routinely wrap the payload in prose or code
// fences; everything outside the first object is discarded. Brace depth is
// tracked outside of string literals so option text containing braces does
// not truncate the object.
func extractJSONObject(s string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if start >= 0 && inString {
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
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], nil
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", errNoJSONObject
}
