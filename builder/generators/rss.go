package generators

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/utils"
)

// RSSChannel is the channel-level metadata of the journal feed.
type RSSChannel struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// RSSEntry pairs a record with the collection it was published in.
type RSSEntry struct {
	Collection models.Collection
	Record     models.Record
}

// RSSBuilder renders the journal's RSS 2.0 feed. Summaries are markdown and
// are rendered with goldmark; raw HTML in them is dropped.
type RSSBuilder struct {
	md goldmark.Markdown
}

func NewRSSBuilder() *RSSBuilder {
	return &RSSBuilder{
		md: goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify, extension.Typographer)),
	}
}

// Build renders entries in the given order. buildDate is the lastBuildDate;
// a zero value omits it.
func (b *RSSBuilder) Build(ch RSSChannel, siteBase string, entries []RSSEntry, buildDate time.Time) ([]byte, error) {
	items := make([]models.Item, 0, len(entries))
	for _, e := range entries {
		r := e.Record
		if r.Slug == "" {
			continue
		}
		link := utils.CanonicalURL(siteBase, utils.RecordPath(string(e.Collection), r.Slug))

		desc, err := b.summary(r.Summary)
		if err != nil {
			return nil, fmt.Errorf("render summary of %s/%s: %w", e.Collection, r.Slug, err)
		}

		item := models.Item{
			Title:       r.Title,
			Link:        link,
			Description: models.CData{Text: desc},
			Guid:        models.Guid{IsPermaLink: true, Value: link},
		}
		if t, ok := r.Published(); ok {
			item.PubDate = t.UTC().Format(time.RFC1123Z)
		}
		item.Categories = append(item.Categories, models.Category{Value: string(e.Collection)})
		for _, tag := range r.Tags {
			item.Categories = append(item.Categories, models.Category{
				Domain: utils.CanonicalURL(siteBase, "/tags"),
				Value:  utils.TaxonomyKey(tag),
			})
		}
		items = append(items, item)
	}

	rss := models.Rss{
		Version: "2.0",
		Channel: models.Channel{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Language:    ch.Language,
			Items:       items,
		},
	}
	if !buildDate.IsZero() {
		rss.Channel.LastBuildDate = buildDate.UTC().Format(time.RFC1123Z)
	}
	return encodeXML(rss)
}

func (b *RSSBuilder) summary(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := b.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
