package galleria

import (
	"regexp"
	"strings"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValidEmail reports whether s looks like an email address. The aggregate
// key is never a valid email, which keeps the global record out of the
// signup namespace.
func IsValidEmail(s string) bool {
	if s == "" || len(s) > 254 {
		return false
	}
	return emailRegex.MatchString(s)
}

// IsValidPassword reports whether s meets the password format rules:
// minimum length and no surrounding whitespace.
func IsValidPassword(s string) bool {
	if len(s) < MinPasswordLength {
		return false
	}
	return strings.TrimSpace(s) == s
}
