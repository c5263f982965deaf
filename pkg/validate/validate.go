package validate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUsernameLength is the longest username the hosted service accepts.
const MaxUsernameLength = 50

// emailShape is a deliberately permissive local@domain check (the domain must
// contain a dot). It is not RFC-5322-complete; tightening it would change
// which strings are treated as self-hosted usernames instead of emails.
var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// reservedUsernames are names the hosted service will never issue to a user.
// A reserved name is a strong signal the user is trying to reach a
// self-hosted install.
var reservedUsernames = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"invite":        {},
	"main":          {},
	"root":          {},
	"web":           {},
	"www":           {},
}

// IsEmail reports whether the string looks like an email address.
func IsEmail(s string) bool {
	return emailShape.MatchString(s)
}

// IsUsernameReserved reports whether the username is reserved on the hosted
// service. The check is case-insensitive and whitespace-trimmed, and any
// name containing "wordpress" is reserved as well.
func IsUsernameReserved(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := reservedUsernames[name]; ok {
		return true
	}
	return strings.Contains(name, "wordpress")
}

// UsernameWithinMaxLength reports whether the username fits the hosted
// service's length limit.
func UsernameWithinMaxLength(name string) bool {
	return utf8.RuneCountInString(name) <= MaxUsernameLength
}

// ContainsNoWhitespace reports whether every given field is free of
// whitespace. Identifier, email address and site address must pass this;
// passwords are exempt.
func ContainsNoWhitespace(fields ...string) bool {
	for _, f := range fields {
		if strings.ContainsFunc(f, unicode.IsSpace) {
			return false
		}
	}
	return true
}
