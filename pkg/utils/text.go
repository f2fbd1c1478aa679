package utils

import "unicode/utf8"

// Truncate returns s truncated to maxLen runes, with "..." appended if
// truncated. Cutting on rune boundaries keeps multi-byte characters intact.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
