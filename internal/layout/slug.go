package layout

import (
	"fmt"
	"strings"
)

// Slug implements the naming rule from spec §4.3: replace any character not
// in [A-Za-z0-9_-] with '_' and lower-case; collisions append "-<i>".
func Slug(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.ToLower(b.String())
}

// UniqueSlugs slugifies a list of names, disambiguating collisions by
// appending "-<i>" to later duplicates, where i is the name's index in names.
func UniqueSlugs(names []string) []string {
	seen := make(map[string]bool)
	out := make([]string, len(names))
	for i, n := range names {
		s := Slug(n)
		if seen[s] {
			out[i] = fmt.Sprintf("%s-%d", s, i)
		} else {
			seen[s] = true
			out[i] = s
		}
	}
	return out
}
