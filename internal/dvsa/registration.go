package dvsa

import (
	"strings"
	"unicode"
)

// Normalize returns the canonical form of a registration: no whitespace, upper case.
func Normalize(registration string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, registration)
}

// ParseRegistrations splits every entry on commas and semicolons, normalizes
// the pieces and drops empties and duplicates, keeping first-seen order.
func ParseRegistrations(entries ...string) []string {
	seen := make(map[string]struct{})
	regs := make([]string, 0, len(entries))

	for _, entry := range entries {
		for _, part := range strings.FieldsFunc(entry, func(r rune) bool { return r == ',' || r == ';' }) {
			reg := Normalize(part)
			if reg == "" {
				continue
			}
			if _, dup := seen[reg]; dup {
				continue
			}
			seen[reg] = struct{}{}
			regs = append(regs, reg)
		}
	}
	return regs
}
