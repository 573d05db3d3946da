// Package validator holds the input checks shared by the allocation engine and the CLI.
package validator

import (
	"net/url"
	"regexp"
)

var shortcodeRe = regexp.MustCompile(`^[A-Za-z0-9]{3,20}$`)

// ValidURL reports whether candidate is an absolute http or https URL with a
// non-empty host name.
func ValidURL(candidate string) bool {
	parsed, err := url.Parse(candidate)
	if err != nil || !parsed.IsAbs() || parsed.Hostname() == "" {
		return false
	}
	// url.Parse lowercases the scheme.
	switch parsed.Scheme {
	case "http", "https":
		return true
	default:
		return false
	}
}

// ValidShortcode reports whether candidate is 3-20 ASCII letters or digits.
func ValidShortcode(candidate string) bool {
	return shortcodeRe.MatchString(candidate)
}
