package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 100

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var reservedCommunitySlugs = map[string]struct{}{
	"admin":       {},
	"api":         {},
	"auth":        {},
	"categories":  {},
	"communities": {},
	"posts":       {},
	"comments":    {},
	"reports":     {},
	"likes":       {},
	"me":          {},
	"new":         {},
	"ws":          {},
	"swagger":     {},
	"metrics":     {},
	"login":       {},
}

// Slugify lowercases name, strips accents and joins the remaining
// alphanumeric runs with single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingDash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

// ValidateSlug checks the shape of a slug.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug must contain at least one letter or digit")
	}
	if len(slug) > maxSlugLen {
		return fmt.Errorf("slug must not exceed %d characters", maxSlugLen)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug may only contain lowercase letters, numbers, and single hyphens")
	}
	return nil
}

// ValidateCommunitySlug additionally rejects slugs that collide with routes.
func ValidateCommunitySlug(slug string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if _, exists := reservedCommunitySlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}
	return nil
}
