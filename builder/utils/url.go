package utils

import (
	"strings"
)

// CanonicalURL joins a site-relative path onto the site base.
// Input: "https://marque-journal.com", "/cars/porsche-964"
// Output: "https://marque-journal.com/cars/porsche-964"
func CanonicalURL(siteBase, path string) string {
	siteBase = strings.TrimRight(siteBase, "/")
	path = strings.TrimLeft(path, "/")
	return siteBase + "/" + path
}

// RecordPath returns the site-relative path of a record page.
func RecordPath(collection, slug string) string {
	return "/" + collection + "/" + strings.Trim(slug, "/")
}
