package rendering

import "strings"

// DefaultFilename is used when a name has nothing left after cleaning
const DefaultFilename = "cv"

// SuggestedFilename derives a portable file name stem from a person's name:
// everything except ASCII letters, digits and whitespace is dropped, runs of
// whitespace become a single underscore and the result is lowercased.
func SuggestedFilename(fullName string) string {
	var b strings.Builder
	b.Grow(len(fullName))
	for _, r := range fullName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\v', r == '\f':
			b.WriteByte(' ')
		}
	}
	parts := strings.Fields(b.String())
	if len(parts) == 0 {
		return DefaultFilename
	}
	return strings.ToLower(strings.Join(parts, "_"))
}
