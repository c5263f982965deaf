package validate

import (
	"regexp"
	"strings"
)

// wordPressComHost is the hosted service's domain. Addresses under it are
// always reached over https.
const wordPressComHost = "wordpress.com"

var (
	wpLoginSuffix = regexp.MustCompile(`(?i)/wp-login\.php$`)
	wpAdminSuffix = regexp.MustCompile(`(?i)/wp-admin/?$`)
	trailingSlash = regexp.MustCompile(`/+$`)
)

// NormalizeSiteAddress derives the base site URL from whatever the user
// typed into the site-address field: lowercased, scheme forced to https for
// hosted-service addresses and defaulted to http otherwise, with any
// /wp-login.php, /wp-admin and trailing-slash suffixes stripped.
//
// The normalized value is what gets persisted into the credential bag and is
// the only form ever sent to site discovery. Normalization is idempotent.
func NormalizeSiteAddress(address string) string {
	path := strings.ToLower(strings.TrimSpace(address))
	if path == "" {
		return ""
	}

	if isWordPressComAddress(path) {
		if !hasScheme(path) {
			path = "https://" + path
		} else if strings.HasPrefix(path, "http://") {
			path = "https://" + strings.TrimPrefix(path, "http://")
		}
	} else if !hasScheme(path) {
		path = "http://" + path
	}

	// Suffixes can stack ("/wp-admin/wp-login.php/"), so strip until
	// nothing changes. Keeps the result a fixed point of this function.
	for {
		stripped := trailingSlash.ReplaceAllString(path, "")
		stripped = wpLoginSuffix.ReplaceAllString(stripped, "")
		stripped = wpAdminSuffix.ReplaceAllString(stripped, "")
		if stripped == path {
			return path
		}
		path = stripped
	}
}

// IsWordPressComAddress reports whether the address points at the hosted
// service's domain.
func IsWordPressComAddress(address string) bool {
	return isWordPressComAddress(strings.ToLower(strings.TrimSpace(address)))
}

func isWordPressComAddress(path string) bool {
	host := path
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host == wordPressComHost || strings.HasSuffix(host, "."+wordPressComHost)
}

func hasScheme(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
