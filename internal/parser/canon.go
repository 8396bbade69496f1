package parser

import "strings"

// canonicalize reduces a tool or parameter name to lowercased snake_case:
// camelCase boundaries become underscores, separators (space/hyphen/dot/
// slash/underscore) become underscores, anything else non-alphanumeric is dropped,
// runs of underscores collapse, and edges are trimmed. Idempotent:
// canonicalize(canonicalize(x)) == canonicalize(x), since the output never
// contains an upper-to-lower transition or a non-alphanumeric separator.
func canonicalize(name string) string {
	if name == "" {
		return ""
	}

	// Drop everything that isn't alphanumeric or a separator first, so
	// stripped punctuation can't interrupt a camelCase boundary like
	// "weird!!Name" -> "weirdName" -> "weird_name".
	var filtered []rune
	for _, r := range name {
		switch {
		case r == ' ' || r == '-' || r == '.' || r == '/' || r == '_':
			filtered = append(filtered, '_')
		case isAlnum(r):
			filtered = append(filtered, r)
		}
	}

	var withBoundaries strings.Builder
	for i, r := range filtered {
		if i > 0 && isLower(filtered[i-1]) && isUpper(r) {
			withBoundaries.WriteByte('_')
		}
		withBoundaries.WriteRune(r)
	}

	lowered := strings.ToLower(withBoundaries.String())

	var collapsed strings.Builder
	lastUnderscore := false
	for _, r := range lowered {
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		collapsed.WriteRune(r)
	}

	return strings.Trim(collapsed.String(), "_")
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isAlnum(r rune) bool { return isLower(r) || isUpper(r) || isDigit(r) }
