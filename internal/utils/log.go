package utils

import "strings"

// TruncateForLog flattens s onto one line and cuts it to limit runes. Used for
// response bodies, which are often pretty printed.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
