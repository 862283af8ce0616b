package challenge

import (
	"strings"
)

// IsInteger reports whether s, after trimming surrounding spaces, is an
// optionally signed run of decimal digits.
func IsInteger(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
