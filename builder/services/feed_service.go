package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/content"
	"github.com/marque-journal/marque/builder/feeds"
	"github.com/marque-journal/marque/builder/generators"
	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/monetize"
	"github.com/marque-journal/marque/builder/utils"
)

// Paths that are not tied to one collection.
const (
	PathSitemapIndex    = "/sitemap.xml"
	PathSitemapIndexAlt = "/sitemap"
	PathRobots          = "/robots.txt"
	PathRSS             = "/rss.xml"

	// PathSiteStructuredData holds the WebSite JSON-LD in a static build.
	PathSiteStructuredData = "/_internal/jsonld/site.json"
)

// rssCollections are the collections syndicated in the journal feed.
var rssCollections = []models.Collection{models.Columns, models.News, models.Guides}

type feedServiceImpl struct {
	cfg      *config.Config
	fs       afero.Fs
	repo     *content.Repository
	resolver *monetize.Resolver
	rss      *generators.RSSBuilder
	logger   *slog.Logger

	// serializes Reload against itself; readers go through repo and resolver
	reloadMu sync.Mutex
}

// NewFeedService wires the content repository and monetization table read
// from cfg.ContentDir on fs. Call Reload before first use.
func NewFeedService(cfg *config.Config, fs afero.Fs, logger *slog.Logger) FeedService {
	return &feedServiceImpl{
		cfg:      cfg,
		fs:       fs,
		repo:     content.NewRepository(fs, cfg.ContentDir, logger),
		resolver: monetize.NewResolver(monetize.NewTable(nil), cfg.Monetize, cfg.AffiliateTag),
		rss:      generators.NewRSSBuilder(),
		logger:   logger,
	}
}

func (s *feedServiceImpl) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	// The table is parsed before the repository swaps so that a bad
	// monetize.json leaves both halves on the previous snapshot.
	table, err := monetize.LoadTable(s.fs, s.cfg.ContentDir)
	if err != nil {
		return fmt.Errorf("load monetization table: %w", err)
	}
	if err := s.repo.Reload(); err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	s.resolver.Swap(table)
	s.logger.Info("content reloaded", "counts", s.repo.Counts(), "monetizeKeys", table.Len())
	return nil
}

func (s *feedServiceImpl) Counts() map[models.Collection]int {
	return s.repo.Counts()
}

func (s *feedServiceImpl) feed(c models.Collection) (feeds.Feed, error) {
	f, ok := feeds.Lookup(c, s.cfg.Now)
	if !ok {
		return feeds.Feed{}, fmt.Errorf("%w: collection %q", ErrNotFound, c)
	}
	return f, nil
}

func (s *feedServiceImpl) Sitemap(c models.Collection) ([]byte, error) {
	f, err := s.feed(c)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.Records(c)
	if err != nil {
		return nil, err
	}
	return f.Document(s.cfg.BaseURL, records)
}

func (s *feedServiceImpl) SitemapIndex() ([]byte, error) {
	var refs []models.SitemapRef
	for _, f := range feeds.Definitions(s.cfg.Now) {
		if f.Suppressed {
			continue
		}
		records, err := s.repo.Records(f.Collection)
		if err != nil {
			return nil, err
		}
		refs = append(refs, f.IndexRef(s.cfg.BaseURL, f.Entries(s.cfg.BaseURL, records)))
	}
	return generators.BuildSitemapIndex(refs)
}

func (s *feedServiceImpl) Robots() []byte {
	return generators.BuildRobots(s.cfg.BaseURL)
}

func (s *feedServiceImpl) RSS() ([]byte, error) {
	var entries []generators.RSSEntry
	for _, c := range rssCollections {
		records, err := s.repo.Records(c)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if s.indexable(c, r) {
				entries = append(entries, generators.RSSEntry{Collection: c, Record: r})
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, okI := entries[i].Record.Published()
		tj, okJ := entries[j].Record.Published()
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
	if len(entries) > s.cfg.RSSLimit {
		entries = entries[:s.cfg.RSSLimit]
	}

	return s.rss.Build(generators.RSSChannel{
		Title:       s.cfg.Title,
		Link:        s.cfg.BaseURL,
		Description: s.cfg.Description,
		Language:    s.cfg.Language,
	}, s.cfg.BaseURL, entries, s.cfg.Now())
}

func (s *feedServiceImpl) site() generators.SiteInfo {
	return generators.SiteInfo{
		BaseURL:     s.cfg.BaseURL,
		Name:        s.cfg.Title,
		Description: s.cfg.Description,
		Language:    s.cfg.Language,
		AuthorName:  s.cfg.Author.Name,
		AuthorURL:   s.cfg.Author.URL,
	}
}

func (s *feedServiceImpl) find(c models.Collection, slug string) (models.Record, error) {
	if _, ok := models.ParseCollection(string(c)); !ok {
		return models.Record{}, fmt.Errorf("%w: collection %q", ErrNotFound, c)
	}
	r, ok := s.repo.Find(c, slug)
	if !ok || !s.indexable(c, r) {
		return models.Record{}, fmt.Errorf("%w: %s/%s", ErrNotFound, c, slug)
	}
	return r, nil
}

// indexable applies the feed rule of c, falling back to the base rule for
// collections whose feed admits every record.
func (s *feedServiceImpl) indexable(c models.Collection, r models.Record) bool {
	if r.Slug == "" {
		return false
	}
	if f, ok := feeds.Lookup(c, s.cfg.Now); ok && f.Predicate != nil {
		return f.Predicate(r)
	}
	return content.Indexable(r)
}

func (s *feedServiceImpl) StructuredData(c models.Collection, slug string) ([]byte, error) {
	r, err := s.find(c, slug)
	if err != nil {
		return nil, err
	}
	return generators.MarshalJSONLD(generators.ForRecord(s.site(), c, r)...)
}

func (s *feedServiceImpl) Related(c models.Collection, slug string, limit int) ([]models.RelatedItem, error) {
	current, err := s.find(c, slug)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.RelatedLimit
	}
	candidates, err := s.candidates(c)
	if err != nil {
		return nil, err
	}
	return content.RelatedItems(s.cfg.BaseURL, c, content.Related(candidates, current, limit)), nil
}

// candidates are the records of c that may be published.
func (s *feedServiceImpl) candidates(c models.Collection) ([]models.Record, error) {
	records, err := s.repo.Records(c)
	if err != nil {
		return nil, err
	}
	kept := records[:0]
	for _, r := range records {
		if s.indexable(c, r) {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func (s *feedServiceImpl) Outbound(key string) (models.MonetizeConfig, bool) {
	return s.resolver.Resolve(key)
}

// Artifacts renders every enabled output. Per-record JSON-LD goes under
// /_internal/, which robots.txt keeps out of crawlers' reach.
func (s *feedServiceImpl) Artifacts(ctx context.Context) ([]Artifact, error) {
	gen := s.cfg.Features.Generators
	feedTTL, robotsTTL := s.cfg.FeedTTL(), s.cfg.RobotsTTL()
	var out []Artifact

	if gen.Sitemap {
		for _, f := range feeds.Definitions(s.cfg.Now) {
			doc, err := s.Sitemap(f.Collection)
			if err != nil {
				return nil, fmt.Errorf("sitemap %s: %w", f.Collection, err)
			}
			out = append(out, Artifact{Path: f.Path(), ContentType: ContentTypeXML, Body: doc, TTL: feedTTL})
		}
		idx, err := s.SitemapIndex()
		if err != nil {
			return nil, fmt.Errorf("sitemap index: %w", err)
		}
		out = append(out,
			Artifact{Path: PathSitemapIndex, ContentType: ContentTypeXML, Body: idx, TTL: feedTTL},
			Artifact{Path: PathSitemapIndexAlt, ContentType: ContentTypeXML, Body: idx, TTL: feedTTL},
		)
	}
	if gen.Robots {
		out = append(out, Artifact{Path: PathRobots, ContentType: ContentTypeRobots, Body: s.Robots(), TTL: robotsTTL})
	}
	if gen.RSS {
		doc, err := s.RSS()
		if err != nil {
			return nil, fmt.Errorf("rss: %w", err)
		}
		out = append(out, Artifact{Path: PathRSS, ContentType: ContentTypeRSS, Body: doc, TTL: feedTTL})
	}
	if gen.StructuredData {
		doc, err := generators.MarshalJSONLD(generators.ForSite(s.site()))
		if err != nil {
			return nil, fmt.Errorf("site structured data: %w", err)
		}
		out = append(out, Artifact{Path: PathSiteStructuredData, ContentType: ContentTypeJSONLD, Body: doc, TTL: feedTTL})

		for _, c := range models.AllCollections() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			records, err := s.repo.Records(c)
			if err != nil {
				return nil, err
			}
			for _, r := range records {
				if !s.indexable(c, r) {
					continue
				}
				doc, err := generators.MarshalJSONLD(generators.ForRecord(s.site(), c, r)...)
				if err != nil {
					s.logger.Warn("skipping structured data", "collection", c, "slug", r.Slug, "error", err)
					continue
				}
				out = append(out, Artifact{
					Path:        StructuredDataPath(c, r.Slug),
					ContentType: ContentTypeJSONLD,
					Body:        doc,
					TTL:         feedTTL,
				})
			}
		}
	}
	if gen.Related {
		for _, c := range models.AllCollections() {
			records, err := s.repo.Records(c)
			if err != nil {
				return nil, err
			}
			candidates, err := s.candidates(c)
			if err != nil {
				return nil, err
			}
			for _, r := range records {
				if !s.indexable(c, r) {
					continue
				}
				items := content.RelatedItems(s.cfg.BaseURL, c, content.Related(candidates, r, s.cfg.RelatedLimit))
				body, err := json.Marshal(items)
				if err != nil {
					return nil, err
				}
				out = append(out, Artifact{
					Path:        "/_internal/related/" + string(c) + "/" + r.Slug + ".json",
					ContentType: "application/json",
					Body:        body,
					TTL:         feedTTL,
				})
			}
		}
	}
	return out, nil
}

// StructuredDataPath is where a record's JSON-LD is written by a static build.
func StructuredDataPath(c models.Collection, slug string) string {
	return "/_internal/jsonld" + utils.RecordPath(string(c), slug) + ".json"
}
