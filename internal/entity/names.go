package entity

import "strings"

// ResolveName returns the first non blank name found for locales, tried in order.
func ResolveName(names map[string]string, locales ...string) (string, bool) {
	for _, l := range locales {
		if l == "" {
			continue
		}
		if n := names[l]; strings.TrimSpace(n) != "" {
			return n, true
		}
	}
	return "", false
}
