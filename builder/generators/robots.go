package generators

import (
	"strings"
)

// BuildRobots returns robots.txt for siteBase. API and internal routes are
// disallowed and both sitemap URLs are advertised.
func BuildRobots(siteBase string) []byte {
	base := strings.TrimRight(siteBase, "/")
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /_internal/\n")
	b.WriteString("\n")
	b.WriteString("Sitemap: " + base + "/sitemap\n")
	b.WriteString("Sitemap: " + base + "/sitemap.xml\n")
	return []byte(b.String())
}
