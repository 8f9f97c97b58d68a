package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)
	dashRun    = regexp.MustCompile(`-+`)
)

// ToSlug canonicalizes text into an ASCII URL slug. It is lossy: labels made
// only of non-ASCII letters or symbols come back empty, and callers fall back
// to StableKey for those (see TaxonomyKey).
func ToSlug(input string) string {
	s := norm.NFKC.String(input)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", " and ")
	s = nonSlugRun.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// TaxonomyKey returns a URL-safe key for a tag or category label.
func TaxonomyKey(label string) string {
	if slug := ToSlug(label); slug != "" {
		return slug
	}
	return StableKey(label, "tag")
}
