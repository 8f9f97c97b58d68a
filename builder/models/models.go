// defines the data structures shared by the content loader, generators and server
package models

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Collection names a content collection backed by <contentDir>/<name>.json.
type Collection string

const (
	Cars     Collection = "cars"
	Columns  Collection = "columns"
	Guides   Collection = "guides"
	Heritage Collection = "heritage"
	News     Collection = "news"
)

// AllCollections returns the collections in feed order.
func AllCollections() []Collection {
	return []Collection{Cars, Columns, Guides, Heritage, News}
}

// ParseCollection maps a path segment to a known collection.
func ParseCollection(s string) (Collection, bool) {
	for _, c := range AllCollections() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Date is a calendar timestamp decoded from either 2006-01-02 or RFC 3339.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format(time.RFC3339))
}

// Record is one authored content item. Only Slug is required for feeds.
type Record struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary,omitempty"` // markdown
	Tags        []string `json:"tags,omitempty"`
	Author      string   `json:"author,omitempty"`
	Image       string   `json:"image,omitempty"`
	Status      string   `json:"status,omitempty"`
	NoIndex     bool     `json:"noindex,omitempty"`
	MonetizeKey string   `json:"monetizeKey,omitempty"`

	// Cars only
	Maker string `json:"maker,omitempty"`
	Model string `json:"model,omitempty"`
	Years string `json:"years,omitempty"`

	UpdatedAt   *Date `json:"updatedAt,omitempty"`
	PublishedAt *Date `json:"publishedAt,omitempty"`
	CreatedAt   *Date `json:"createdAt,omitempty"`
}

// LastModified returns the first present of updatedAt, publishedAt, createdAt.
func (r Record) LastModified() (time.Time, bool) {
	for _, d := range []*Date{r.UpdatedAt, r.PublishedAt, r.CreatedAt} {
		if d != nil && !d.IsZero() {
			return d.Time, true
		}
	}
	return time.Time{}, false
}

// Published returns publishedAt, falling back to createdAt.
func (r Record) Published() (time.Time, bool) {
	for _, d := range []*Date{r.PublishedAt, r.CreatedAt} {
		if d != nil && !d.IsZero() {
			return d.Time, true
		}
	}
	return time.Time{}, false
}

// MonetizeConfig is one row of the static monetization table.
type MonetizeConfig struct {
	MonetizeKey  string `json:"monetizeKey"`
	Partner      string `json:"partner"`
	Disclosure   string `json:"disclosure"`
	PrimaryLabel string `json:"primaryLabel"`
	PrimaryURL   string `json:"primaryUrl"`
}

// --- Sitemap Structures ---

// ChangeFreq is the sitemap protocol's change frequency hint.
type ChangeFreq string

const (
	ChangeAlways  ChangeFreq = "always"
	ChangeHourly  ChangeFreq = "hourly"
	ChangeDaily   ChangeFreq = "daily"
	ChangeWeekly  ChangeFreq = "weekly"
	ChangeMonthly ChangeFreq = "monthly"
	ChangeYearly  ChangeFreq = "yearly"
	ChangeNever   ChangeFreq = "never"
)

// Valid reports whether f is one of the protocol values.
func (f ChangeFreq) Valid() bool {
	switch f {
	case ChangeAlways, ChangeHourly, ChangeDaily, ChangeWeekly, ChangeMonthly, ChangeYearly, ChangeNever:
		return true
	}
	return false
}

// SitemapEntry is one URL destined for a urlset document.
// LastMod is a YYYY-MM-DD date (longer ISO strings are cut to 10 chars).
type SitemapEntry struct {
	Loc        string
	LastMod    string
	ChangeFreq ChangeFreq
	Priority   float64
}

const SitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type UrlSet struct {
	XMLName xml.Name `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	Urls    []Url    `xml:"url"`
}

type Url struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type SitemapIndex struct {
	XMLName  xml.Name     `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 sitemapindex"`
	Sitemaps []SitemapRef `xml:"sitemap"`
}

type SitemapRef struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// --- RSS Structures ---

type Rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

type Channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	Language      string `xml:"language,omitempty"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	Items         []Item `xml:"item"`
}

type Item struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description CData      `xml:"description"`
	PubDate     string     `xml:"pubDate,omitempty"`
	Guid        Guid       `xml:"guid"`
	Categories  []Category `xml:"category,omitempty"`
}

// CData wraps rendered HTML so it survives as character data.
type CData struct {
	Text string `xml:",cdata"`
}

type Guid struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type Category struct {
	Domain string `xml:"domain,attr,omitempty"`
	Value  string `xml:",chardata"`
}

// RelatedItem is the JSON shape returned by the related-content endpoint.
type RelatedItem struct {
	Slug  string   `json:"slug"`
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Tags  []string `json:"tags,omitempty"`
}
