package auth

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]{8,20}$`)

// ValidUsername reports whether a username is 8-20 alphanumeric/._
// characters with no leading, trailing, or consecutive separators.
func ValidUsername(username string) bool {
	if !usernamePattern.MatchString(username) {
		return false
	}
	if strings.HasPrefix(username, ".") || strings.HasPrefix(username, "_") ||
		strings.HasSuffix(username, ".") || strings.HasSuffix(username, "_") {
		return false
	}
	for i := 0; i+1 < len(username); i++ {
		a, b := username[i], username[i+1]
		if (a == '.' || a == '_') && (b == '.' || b == '_') {
			return false
		}
	}
	return true
}

// NormalizeUsername applies the stored form: trimmed and lower-cased.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// DeriveUsername builds a username from a provider display name by
// stripping whitespace and lower-casing. Collisions are not handled.
func DeriveUsername(displayName string) string {
	return strings.ToLower(strings.Join(strings.Fields(displayName), ""))
}

// DefaultAvatarURL synthesizes a deterministic avatar from the user's
// initials via the ui-avatars service.
func DefaultAvatarURL(name, email string) string {
	var initials []rune
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		initials = append(initials, unicode.ToUpper(r))
		if len(initials) >= 2 {
			break
		}
	}
	if len(initials) == 0 && email != "" {
		r, _ := utf8.DecodeRuneInString(email)
		initials = append(initials, unicode.ToUpper(r))
	}
	return fmt.Sprintf(
		"https://ui-avatars.com/api/?name=%s&background=random&color=fff&size=200&bold=true",
		url.QueryEscape(string(initials)),
	)
}

// ValidImage accepts an embedded data URI or an absolute http(s) URL.
func ValidImage(image string) bool {
	if strings.HasPrefix(image, "data:image") {
		return true
	}
	return strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://")
}
