package utils

import (
	"strings"
	"unicode"
)

// AnonymizePath replaces the user home component of a path with a fixed
// "USER" placeholder so reports never carry an account name.
func AnonymizePath(path string) string {
	if !strings.HasPrefix(path, "/Users/") {
		return path
	}
	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[2] == "" {
		return path
	}
	parts[2] = "USER"
	return strings.Join(parts, "/")
}

// IsASCII returns true if the string contains only single-byte runes.
func IsASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// PadRight pads s with spaces to the given column width. Overlong or
// multi-byte names are returned unchanged; column alignment is best
// effort, matching the classic report layout.
func PadRight(s string, width int) string {
	if len(s) >= width || !IsASCII(s) {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Sentinel substitutes the report placeholder for an unknown value.
func Sentinel(s string) string {
	if s == "" {
		return "???"
	}
	return s
}
