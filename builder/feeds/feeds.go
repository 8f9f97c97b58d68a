// Package feeds defines the per-collection sitemap feeds.
package feeds

import (
	"time"

	"github.com/marque-journal/marque/builder/content"
	"github.com/marque-journal/marque/builder/generators"
	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/utils"
)

// Editorial change-frequency and priority per collection. These are picked by
// hand and deliberately not derived from content.
const (
	CarsChangeFreq     = models.ChangeMonthly
	CarsPriority       = 0.6
	ColumnsChangeFreq  = models.ChangeWeekly
	ColumnsPriority    = 0.8
	GuidesChangeFreq   = models.ChangeWeekly
	GuidesPriority     = 0.8
	HeritageChangeFreq = models.ChangeMonthly
	HeritagePriority   = 0.7
)

// Feed turns one collection's records into sitemap entries.
type Feed struct {
	Collection models.Collection
	ChangeFreq models.ChangeFreq
	Priority   float64

	// Predicate filters records; nil admits every record with a slug.
	Predicate content.Predicate

	// Suppressed feeds always render an empty urlset.
	Suppressed bool
}

// Definitions returns one feed per collection in models.AllCollections order.
// now drives the scheduled-column check.
func Definitions(now func() time.Time) []Feed {
	if now == nil {
		now = time.Now
	}
	return []Feed{
		{Collection: models.Cars, ChangeFreq: CarsChangeFreq, Priority: CarsPriority, Predicate: content.IndexableCar},
		{Collection: models.Columns, ChangeFreq: ColumnsChangeFreq, Priority: ColumnsPriority, Predicate: content.IndexableColumn(now)},
		{Collection: models.Guides, ChangeFreq: GuidesChangeFreq, Priority: GuidesPriority},
		{Collection: models.Heritage, ChangeFreq: HeritageChangeFreq, Priority: HeritagePriority},
		// News is kept out of sitemaps as editorial policy.
		{Collection: models.News, Suppressed: true},
	}
}

// Lookup returns the feed definition for c.
func Lookup(c models.Collection, now func() time.Time) (Feed, bool) {
	for _, f := range Definitions(now) {
		if f.Collection == c {
			return f, true
		}
	}
	return Feed{}, false
}

// Path is the URL path the feed is served at.
func (f Feed) Path() string {
	return "/sitemap-" + string(f.Collection) + ".xml"
}

// Entries drops records without a slug, applies the predicate and maps the
// rest to entries in input order.
func (f Feed) Entries(siteBase string, records []models.Record) []models.SitemapEntry {
	if f.Suppressed {
		return nil
	}
	entries := make([]models.SitemapEntry, 0, len(records))
	for _, r := range records {
		if r.Slug == "" {
			continue
		}
		if f.Predicate != nil && !f.Predicate(r) {
			continue
		}
		e := models.SitemapEntry{
			Loc:        utils.CanonicalURL(siteBase, utils.RecordPath(string(f.Collection), r.Slug)),
			ChangeFreq: f.ChangeFreq,
			Priority:   f.Priority,
		}
		if t, ok := r.LastModified(); ok {
			e.LastMod = utils.FormatDate(t)
		}
		entries = append(entries, e)
	}
	return entries
}

// Document renders the feed's urlset.
func (f Feed) Document(siteBase string, records []models.Record) ([]byte, error) {
	return generators.BuildURLSet(f.Entries(siteBase, records))
}

// IndexRef returns the sitemap index row for this feed. LastMod is the newest
// lastmod among entries, or empty.
func (f Feed) IndexRef(siteBase string, entries []models.SitemapEntry) models.SitemapRef {
	ref := models.SitemapRef{Loc: utils.CanonicalURL(siteBase, f.Path())}
	for _, e := range entries {
		if e.LastMod > ref.LastMod {
			ref.LastMod = e.LastMod
		}
	}
	return ref
}
