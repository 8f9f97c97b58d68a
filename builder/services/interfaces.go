package services

import (
	"context"
	"errors"
	"time"

	"github.com/marque-journal/marque/builder/cache"
	"github.com/marque-journal/marque/builder/models"
)

// ErrNotFound is returned when a collection or record does not exist.
var ErrNotFound = errors.New("not found")

// Content types of generated artifacts.
const (
	ContentTypeXML    = "application/xml"
	ContentTypeRSS    = "application/rss+xml; charset=utf-8"
	ContentTypeRobots = "text/plain; charset=utf-8"
	ContentTypeJSONLD = "application/ld+json"
)

// Artifact is one generated output together with how it should be served.
type Artifact struct {
	Path        string // URL path, e.g. /sitemap-cars.xml
	ContentType string
	Body        []byte
	TTL         time.Duration
}

// FeedService produces every SEO artifact from the current content.
type FeedService interface {
	Sitemap(c models.Collection) ([]byte, error)
	SitemapIndex() ([]byte, error)
	Robots() []byte
	RSS() ([]byte, error)
	StructuredData(c models.Collection, slug string) ([]byte, error)
	Related(c models.Collection, slug string, limit int) ([]models.RelatedItem, error)
	Outbound(monetizeKey string) (models.MonetizeConfig, bool)
	Artifacts(ctx context.Context) ([]Artifact, error)

	// Reload re-reads content and the monetization table. On error the
	// previous content stays in service.
	Reload() error
	Counts() map[models.Collection]int
}

// CacheService abstracts the artifact cache
type CacheService interface {
	Unchanged(path string, body []byte) (bool, error)
	PutArtifact(path, contentType string, body []byte) (changed bool, err error)
	Prune(keep map[string]bool) ([]string, error)

	// Lifecycle
	Stats() (*cache.CacheStats, error)
	IncrementBuildCount() error
	Close() error
}
