package generators

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/utils"
)

// BuildURLSet renders entries as a sitemap urlset document. An empty slice
// yields a valid urlset with no children.
func BuildURLSet(entries []models.SitemapEntry) ([]byte, error) {
	set := models.UrlSet{Urls: make([]models.Url, 0, len(entries))}
	for _, e := range entries {
		u := models.Url{
			Loc:      e.Loc,
			LastMod:  lastMod(e.LastMod),
			Priority: formatPriority(e.Priority),
		}
		if e.ChangeFreq.Valid() {
			u.ChangeFreq = string(e.ChangeFreq)
		}
		set.Urls = append(set.Urls, u)
	}
	return encodeXML(set)
}

// BuildSitemapIndex renders a sitemapindex pointing at per-collection feeds.
func BuildSitemapIndex(refs []models.SitemapRef) ([]byte, error) {
	idx := models.SitemapIndex{Sitemaps: make([]models.SitemapRef, 0, len(refs))}
	for _, r := range refs {
		r.LastMod = lastMod(r.LastMod)
		idx.Sitemaps = append(idx.Sitemaps, r)
	}
	return encodeXML(idx)
}

func lastMod(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func formatPriority(p float64) string {
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	return strconv.FormatFloat(p, 'f', 1, 64)
}

func encodeXML(v any) ([]byte, error) {
	buf := utils.SharedBufferPool.Get()
	defer utils.SharedBufferPool.Put(buf)

	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	buf.WriteByte('\n')
	return bytes.Clone(buf.Bytes()), nil
}
