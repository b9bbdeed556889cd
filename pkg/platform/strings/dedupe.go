// Package strings provides string-list helpers for configuration parsing.
package strings

import (
	"strings"
)

// SplitList splits s on sep and returns the trimmed, non-empty,
// de-duplicated items in order of first appearance.
//
// Example:
//
//	SplitList(" DSC-SE, DSC-ENG-WAL,,DSC-SE ", ",")
//	// Returns: []string{"DSC-SE", "DSC-ENG-WAL"}
func SplitList(s, sep string) []string {
	return DedupeAndTrim(strings.Split(s, sep))
}

// DedupeAndTrim removes duplicates and blank entries, trimming each
// element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
