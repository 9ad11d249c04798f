// internal/session/type.go
package session

import (
	"fmt"
	"strings"
)

// Type is the kind of acquisition a measurement holds. It also names the
// folder the measurement is archived under.
type Type int

const (
	Anat Type = iota
	Func
	Misc
)

// Types returns all measurement types in display order.
func Types() []Type {
	return []Type{Anat, Func, Misc}
}

// String returns the folder/protocol representation of the type
func (t Type) String() string {
	switch t {
	case Func:
		return "func"
	case Misc:
		return "misc"
	default:
		return "anat"
	}
}

// HasLogfiles reports whether measurements of this type carry stimulus logfiles.
func (t Type) HasLogfiles() bool {
	return t != Anat
}

// ParseType parses a string into a Type
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anat":
		return Anat, nil
	case "func":
		return Func, nil
	case "misc":
		return Misc, nil
	}
	if suggestion := closestType(strings.ToLower(s)); suggestion != "" {
		return Anat, fmt.Errorf("invalid measurement type: %q (did you mean %q?)", s, suggestion)
	}
	return Anat, fmt.Errorf("invalid measurement type: %q (valid: anat, func, misc)", s)
}

// closestType returns the type name closest to input, or "" when nothing is
// within two edits.
func closestType(input string) string {
	const maxDistance = 2
	bestDistance := maxDistance + 1
	var bestMatch string

	for _, t := range Types() {
		distance := levenshteinDistance(input, t.String())
		if distance < bestDistance {
			bestDistance = distance
			bestMatch = t.String()
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// levenshteinDistance is the minimum number of single-character edits
// required to change one string into the other.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
