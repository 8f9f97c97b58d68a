// Package testutil provides testing utilities and fixtures
package testutil

import (
	"time"

	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/models"
)

// FixedNow is the clock used by fixtures; scheduled columns are after it.
var FixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Date parses a YYYY-MM-DD fixture date.
func Date(s string) *models.Date {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &models.Date{Time: t}
}

// SampleContent is a small content directory covering every collection and
// the edge cases the feeds care about.
var SampleContent = map[string]string{
	"content/cars.json": `[
  {"slug": "porsche-964", "title": "Porsche 911 (964)", "maker": "Porsche", "model": "911 Carrera 2",
   "tags": ["Air-cooled", "Flat Six"], "updatedAt": "2024-03-10", "monetizeKey": "detailing-kit"},
  {"slug": "bmw-e30-m3", "title": "BMW E30 M3", "maker": "BMW", "tags": ["Homologation", "Air-cooled"],
   "publishedAt": "2023-11-02T08:00:00Z"},
  {"slug": "placeholder", "title": ""},
  {"slug": "", "title": "Missing slug"},
  {"slug": "hidden", "title": "Hidden", "noindex": true}
]`,
	"content/columns.json": `[
  {"slug": "why-manuals-matter", "title": "Why Manuals Still Matter", "summary": "Three pedals, **one** opinion.",
   "tags": ["Manual Gearbox"], "publishedAt": "2024-05-20"},
  {"slug": "next-month", "title": "Scheduled", "publishedAt": "2024-07-01"}
]`,
	"content/guides.json": `[
  {"slug": "first-track-day", "title": "Your First Track Day", "tags": ["Track"], "createdAt": "2024-01-15"}
]`,
	"content/heritage.json": `[
  {"slug": "mercedes-300sl", "title": "Mercedes-Benz 300 SL", "tags": ["Air-cooled"]}
]`,
	"content/news.json": `[
  {"slug": "launch", "title": "Marque Journal launches", "publishedAt": "2024-01-01"}
]`,
	"content/monetize.json": `[
  {"monetizeKey": "detailing-kit", "partner": "amazon", "disclosure": "We may earn a commission.",
   "primaryLabel": "Buy on Amazon", "primaryUrl": "https://www.amazon.co.jp/dp/B000X?tag=old"}
]`,
}

// CreateSampleConfig creates a valid Config for testing
func CreateSampleConfig() *config.Config {
	return &config.Config{
		Title:        "Marque Journal",
		Description:  "Test journal",
		Language:     "en",
		BaseURL:      "https://marque-journal.com",
		Author:       config.Author{Name: "Editorial Desk", URL: "https://marque-journal.com/about"},
		ContentDir:   "content",
		OutputDir:    "public",
		CacheDir:     ".marque-cache",
		Monetize:     true,
		AffiliateTag: "marque-test-22",
		RSSLimit:     10,
		RelatedLimit: 3,
		Features: config.FeaturesConfig{
			Generators: config.GeneratorsConfig{
				Sitemap:        true,
				Robots:         true,
				RSS:            true,
				StructuredData: true,
				Related:        true,
			},
		},
		Now:   func() time.Time { return FixedNow },
		Build: config.DefaultBuildConfig(),
	}
}
