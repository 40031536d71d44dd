package wiki

import "strings"

// NormalizeName trims whitespace and leading/trailing path separators from a
// page name. Case is never normalized; lookups are exact-match.
func NormalizeName(name string) string {
	return strings.Trim(strings.TrimSpace(name), "/")
}
