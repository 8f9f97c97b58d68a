// Package monetize resolves affiliate configuration and tags partner links.
package monetize

import (
	"net/url"
	"strings"
)

// PartnerDomain is matched as a substring of the link's hostname, so every
// Amazon storefront (amazon.com, amazon.co.jp, smile.amazon.de) qualifies.
const PartnerDomain = "amazon."

// DefaultTag is used when no associate tag is configured.
const DefaultTag = "marquejournal-22"

// WithAmazonTag sets the tag query parameter on Amazon links, replacing any
// existing value. Anything that is not an absolute Amazon URL is returned
// untouched, including strings that fail to parse. Applying it twice gives the
// same result as applying it once.
func WithAmazonTag(href, tag string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return href
	}
	if !strings.Contains(strings.ToLower(u.Hostname()), PartnerDomain) {
		return href
	}
	if tag == "" {
		tag = DefaultTag
	}
	q := u.Query()
	q.Set("tag", tag)
	u.RawQuery = q.Encode()
	return u.String()
}
