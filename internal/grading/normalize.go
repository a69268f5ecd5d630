package grading

import "strings"

// Normalize canonicalizes program output for comparison: CRLF becomes LF and
// leading/trailing whitespace is dropped. Nothing else is compared loosely.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
