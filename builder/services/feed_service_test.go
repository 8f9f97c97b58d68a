package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/testutil"
)

func setupFeedServiceTest(t *testing.T, mutate func(*config.Config)) (FeedService, afero.Fs) {
	t.Helper()
	cfg := testutil.CreateSampleConfig()
	if mutate != nil {
		mutate(cfg)
	}
	fs := testutil.CreateTestFilesystemWithContent(testutil.SampleContent)
	svc := NewFeedService(cfg, fs, testutil.DiscardLogger())
	if err := svc.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	return svc, fs
}

func TestFeedService_Sitemap(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, nil)

	tests := []struct {
		name       string
		collection models.Collection
		contains   []string
		excludes   []string
	}{
		{
			name:       "cars drop placeholders and noindex",
			collection: models.Cars,
			contains: []string{
				"<loc>https://marque-journal.com/cars/porsche-964</loc>",
				"<lastmod>2024-03-10</lastmod>",
				"<loc>https://marque-journal.com/cars/bmw-e30-m3</loc>",
				"<lastmod>2023-11-02</lastmod>",
				"<changefreq>monthly</changefreq>",
				"<priority>0.6</priority>",
			},
			excludes: []string{"/cars/placeholder", "/cars/hidden", "/cars/<"},
		},
		{
			name:       "columns hide scheduled posts",
			collection: models.Columns,
			contains:   []string{"/columns/why-manuals-matter", "<priority>0.8</priority>"},
			excludes:   []string{"/columns/next-month"},
		},
		{
			name:       "heritage without dates omits lastmod",
			collection: models.Heritage,
			contains:   []string{"/heritage/mercedes-300sl"},
			excludes:   []string{"<lastmod>"},
		},
		{
			name:       "news is always empty",
			collection: models.News,
			contains:   []string{"<urlset"},
			excludes:   []string{"<url>", "launch"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := svc.Sitemap(tt.collection)
			if err != nil {
				t.Fatalf("Sitemap(%s) failed: %v", tt.collection, err)
			}
			body := string(doc)
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("sitemap missing %q:\n%s", want, body)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(body, bad) {
					t.Errorf("sitemap should not contain %q:\n%s", bad, body)
				}
			}
		})
	}
}

func TestFeedService_SitemapUnknownCollection(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, nil)
	if _, err := svc.Sitemap("boats"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Sitemap(boats) error = %v, want ErrNotFound", err)
	}
}

func TestFeedService_SitemapIndex(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, nil)

	doc, err := svc.SitemapIndex()
	if err != nil {
		t.Fatalf("SitemapIndex failed: %v", err)
	}
	body := string(doc)
	for _, c := range []string{"cars", "columns", "guides", "heritage"} {
		if !strings.Contains(body, "<loc>https://marque-journal.com/sitemap-"+c+".xml</loc>") {
			t.Errorf("index missing %s feed:\n%s", c, body)
		}
	}
	if strings.Contains(body, "sitemap-news.xml") {
		t.Error("index should not list the news feed")
	}
	if !strings.Contains(body, "<lastmod>2024-03-10</lastmod>") {
		t.Errorf("cars ref should carry its newest lastmod:\n%s", body)
	}
}

func TestFeedService_RSS(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, nil)

	doc, err := svc.RSS()
	if err != nil {
		t.Fatalf("RSS failed: %v", err)
	}
	feed, err := gofeed.NewParser().ParseString(string(doc))
	if err != nil {
		t.Fatalf("generated RSS does not parse: %v", err)
	}

	var links []string
	for _, item := range feed.Items {
		links = append(links, item.Link)
	}
	want := []string{
		"https://marque-journal.com/columns/why-manuals-matter",
		"https://marque-journal.com/guides/first-track-day",
		"https://marque-journal.com/news/launch",
	}
	if strings.Join(links, "\n") != strings.Join(want, "\n") {
		t.Errorf("items = %v, want %v", links, want)
	}
	if !strings.Contains(feed.Items[0].Description, "<strong>one</strong>") {
		t.Errorf("summary should be rendered markdown, got %q", feed.Items[0].Description)
	}
}

func TestFeedService_RSSLimit(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, func(c *config.Config) { c.RSSLimit = 1 })

	doc, err := svc.RSS()
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(doc), "<item>"); n != 1 {
		t.Errorf("got %d items, want 1", n)
	}
}

func TestFeedService_StructuredData(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, nil)

	doc, err := svc.StructuredData(models.Cars, "porsche-964")
	if err != nil {
		t.Fatalf("StructuredData failed: %v", err)
	}
	var parsed struct {
		Context string           `json:"@context"`
		Graph   []map[string]any `json:"@graph"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	if parsed.Context != "https://schema.org" {
		t.Errorf("@context = %q", parsed.Context)
	}
	if len(parsed.Graph) != 2 {
		t.Fatalf("graph has %d nodes, want 2", len(parsed.Graph))
	}
	if parsed.Graph[0]["@type"] != "Product" || parsed.Graph[1]["@type"] != "BreadcrumbList" {
		t.Errorf("types = %v, %v", parsed.Graph[0]["@type"], parsed.Graph[1]["@type"])
	}

	for _, tc := range []struct {
		c    models.Collection
		slug string
	}{
		{models.Cars, "does-not-exist"},
		{"boats", "porsche-964"},
		{models.Cars, "hidden"},
		{models.Cars, "placeholder"},
		{models.Columns, "next-month"},
	} {
		if _, err := svc.StructuredData(tc.c, tc.slug); !errors.Is(err, ErrNotFound) {
			t.Errorf("StructuredData(%s, %s) error = %v, want ErrNotFound", tc.c, tc.slug, err)
		}
	}
}

func TestFeedService_Related(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, nil)

	items, err := svc.Related(models.Cars, "porsche-964", 0)
	if err != nil {
		t.Fatalf("Related failed: %v", err)
	}
	if len(items) != 1 || items[0].Slug != "bmw-e30-m3" {
		t.Fatalf("items = %+v, want only bmw-e30-m3", items)
	}
	if items[0].URL != "https://marque-journal.com/cars/bmw-e30-m3" {
		t.Errorf("URL = %q", items[0].URL)
	}

	for _, tc := range []struct {
		c    models.Collection
		slug string
	}{
		{models.Cars, "nope"},
		{models.Cars, "placeholder"},
		{models.Cars, "hidden"},
		{models.Columns, "next-month"},
	} {
		if _, err := svc.Related(tc.c, tc.slug, 3); !errors.Is(err, ErrNotFound) {
			t.Errorf("Related(%s, %s) error = %v, want ErrNotFound", tc.c, tc.slug, err)
		}
	}

	columns, err := svc.Related(models.Columns, "why-manuals-matter", 0)
	if err != nil {
		t.Fatalf("Related columns failed: %v", err)
	}
	for _, item := range columns {
		if item.Slug == "next-month" {
			t.Error("scheduled column should not be offered as related")
		}
	}
}

func TestFeedService_Outbound(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, nil)

	cfg, ok := svc.Outbound("detailing-kit")
	if !ok {
		t.Fatal("detailing-kit should resolve")
	}
	if cfg.PrimaryURL != "https://www.amazon.co.jp/dp/B000X?tag=marque-test-22" {
		t.Errorf("PrimaryURL = %q", cfg.PrimaryURL)
	}
	if _, ok := svc.Outbound("unknown"); ok {
		t.Error("unknown key should not resolve")
	}

	off, _ := setupFeedServiceTest(t, func(c *config.Config) { c.Monetize = false })
	if _, ok := off.Outbound("detailing-kit"); ok {
		t.Error("disabled monetization should resolve nothing")
	}
}

func TestFeedService_Artifacts(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, nil)

	artifacts, err := svc.Artifacts(context.Background())
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	byPath := make(map[string]Artifact, len(artifacts))
	for _, a := range artifacts {
		byPath[a.Path] = a
	}

	for _, p := range []string{
		"/sitemap-cars.xml", "/sitemap-news.xml", "/sitemap.xml", "/sitemap",
		"/robots.txt", "/rss.xml",
		"/_internal/jsonld/site.json",
		"/_internal/jsonld/cars/porsche-964.json",
		"/_internal/related/cars/porsche-964.json",
	} {
		if _, ok := byPath[p]; !ok {
			t.Errorf("missing artifact %s", p)
		}
	}
	for _, p := range []string{
		"/_internal/jsonld/cars/hidden.json",
		"/_internal/related/cars/hidden.json",
		"/_internal/jsonld/cars/placeholder.json",
		"/_internal/related/cars/placeholder.json",
		"/_internal/jsonld/columns/next-month.json",
		"/_internal/related/columns/next-month.json",
	} {
		if _, ok := byPath[p]; ok {
			t.Errorf("unexpected artifact %s for a record left out of its sitemap", p)
		}
	}
	if got := byPath["/robots.txt"]; got.ContentType != ContentTypeRobots || got.TTL.Hours() != 24 {
		t.Errorf("robots artifact = %s %v", got.ContentType, got.TTL)
	}
}

func TestFeedService_ArtifactsHonourFeatures(t *testing.T) {
	svc, _ := setupFeedServiceTest(t, func(c *config.Config) {
		c.Features.Generators = config.GeneratorsConfig{Robots: true}
	})

	artifacts, err := svc.Artifacts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 1 || artifacts[0].Path != PathRobots {
		t.Errorf("artifacts = %+v, want only robots.txt", artifacts)
	}
}

func TestFeedService_Reload(t *testing.T) {
	svc, fs := setupFeedServiceTest(t, nil)

	if err := afero.WriteFile(fs, "content/heritage.json", []byte(`[{"slug": "jaguar-e-type", "title": "E-Type"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	doc, err := svc.Sitemap(models.Heritage)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc), "/heritage/jaguar-e-type") || strings.Contains(string(doc), "mercedes-300sl") {
		t.Errorf("reload not picked up:\n%s", doc)
	}

	if err := afero.WriteFile(fs, "content/heritage.json", []byte(`{broken`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(); err == nil {
		t.Error("broken JSON should fail the reload")
	}
	doc, _ = svc.Sitemap(models.Heritage)
	if !strings.Contains(string(doc), "jaguar-e-type") {
		t.Error("failed reload should keep the previous snapshot")
	}
}

func TestFeedService_ReloadKeepsContentWhenTableFails(t *testing.T) {
	svc, fs := setupFeedServiceTest(t, nil)

	guides := `[{"slug": "new-guide", "title": "New Guide"}]`
	if err := afero.WriteFile(fs, "content/guides.json", []byte(guides), 0644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "content/monetize.json", []byte(`[{"monetizeKey": `), 0644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(); err == nil {
		t.Fatal("broken monetize.json should fail the reload")
	}

	doc, err := svc.Sitemap(models.Guides)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(doc), "new-guide") || !strings.Contains(string(doc), "first-track-day") {
		t.Errorf("failed reload swapped content in:\n%s", doc)
	}
	if _, ok := svc.Outbound("detailing-kit"); !ok {
		t.Error("failed reload should keep the previous monetization table")
	}
}
