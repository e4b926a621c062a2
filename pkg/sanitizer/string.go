package sanitizer

import (
	"strings"
	"unicode"
)

// CollapseSpace trims s and folds every whitespace run into a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName drops control and invisible format runes, such as the
// direction marks phones paste into contact names, then collapses whitespace.
func NormalizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, name)
	return CollapseSpace(name)
}

func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return strings.TrimPrefix(email, "mailto:")
}
