// Package util provides string helpers for the bracketed-array command format
// emitted by the sim host.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// SplitArrayFields splits a stringified bracketed array into its top-level
// fields. Quotes are preserved for the caller to strip, and nested arrays or
// objects stay intact as single fields. Returns nil if s is not wrapped in
// brackets.
func SplitArrayFields(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil
	}
	inner := s[1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return []string{}
	}

	fields := []string{}
	depth := 0
	inQuotes := false
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '"':
			// doubled quotes are escapes, only singles toggle quote state
			if inQuotes && i+1 < len(inner) && inner[i+1] == '"' {
				i++
				continue
			}
			inQuotes = !inQuotes
		case '[', '{':
			if !inQuotes {
				depth++
			}
		case ']', '}':
			if !inQuotes {
				depth--
			}
		case ',':
			if !inQuotes && depth == 0 {
				fields = append(fields, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	fields = append(fields, strings.TrimSpace(inner[start:]))
	return fields
}
