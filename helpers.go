package grovekeep

import (
	"html"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)
)

// ValidIdentifier reports whether a caller chosen user identifier is acceptable.
// Identifiers are lookup keys and are stored exactly as given.
func ValidIdentifier(id string) bool {
	return identifierRegex.MatchString(id)
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailAllowed checks the format of an already normalized email and that its
// domain is in allowedDomains. An empty allow-list accepts any domain.
func EmailAllowed(email string, allowedDomains []string) bool {
	if !emailRegex.MatchString(email) {
		return false
	}
	if len(allowedDomains) == 0 {
		return true
	}
	_, domain, _ := strings.Cut(email, "@")
	return slices.Contains(allowedDomains, domain)
}

// sanitizeText trims free text and escapes markup so it is inert when rendered
func sanitizeText(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// looksLikeEmail decides whether a login identifier should be matched against emails
func looksLikeEmail(login string) bool {
	return strings.Contains(login, "@")
}

func generateUserId() string {
	return uuid.NewString()
}
