package dtsi

import (
	"regexp"
	"strings"
)

var defaultIdentifierPattern = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitizeIdentifier turns name into a valid devicetree node/label fragment
// using the profile's identifier-sanitization pattern, or a sane default
// (anything but letters, digits, underscore) when the profile doesn't
// specify one (spec §3: "identifier-sanitization pattern").
func sanitizeIdentifier(name, pattern string) string {
	re := defaultIdentifierPattern
	if pattern != "" {
		if compiled, err := regexp.Compile(pattern); err == nil {
			re = compiled
		}
	}
	return re.ReplaceAllString(name, "_")
}

func upperID(name, pattern string) string {
	return strings.ToUpper(sanitizeIdentifier(name, pattern))
}

func lowerID(name, pattern string) string {
	return strings.ToLower(sanitizeIdentifier(name, pattern))
}
