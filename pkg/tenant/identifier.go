package tenant

import "regexp"

// MaxIdentifierLength bounds identifiers accepted by ValidIdentifier.
const MaxIdentifierLength = 63

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidIdentifier reports whether id is safe to embed in file names,
// schema names and URLs: ASCII letters, digits, '-' and '_' only.
func ValidIdentifier(id string) bool {
	return len(id) > 0 && len(id) <= MaxIdentifierLength && identifierPattern.MatchString(id)
}
