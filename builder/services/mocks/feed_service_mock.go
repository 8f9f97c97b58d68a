package mocks

import (
	"context"
	"sync/atomic"

	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/services"
)

// MockFeedService returns canned documents. Keys of Sitemaps, Documents and
// RelatedItems are collection names or "collection/slug".
type MockFeedService struct {
	Sitemaps     map[models.Collection][]byte
	Index        []byte
	RobotsBody   []byte
	RSSBody      []byte
	Documents    map[string][]byte
	RelatedItems map[string][]models.RelatedItem
	Links        map[string]models.MonetizeConfig
	Outputs      []services.Artifact
	RecordCounts map[models.Collection]int
	Err          error

	// LastLimit is the limit passed to the most recent Related call.
	LastLimit int

	reloads atomic.Int32
}

func NewMockFeedService() *MockFeedService {
	return &MockFeedService{
		Sitemaps:     make(map[models.Collection][]byte),
		Documents:    make(map[string][]byte),
		RelatedItems: make(map[string][]models.RelatedItem),
		Links:        make(map[string]models.MonetizeConfig),
	}
}

// Reloads returns how often Reload was called.
func (m *MockFeedService) Reloads() int { return int(m.reloads.Load()) }

func (m *MockFeedService) Sitemap(c models.Collection) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	doc, ok := m.Sitemaps[c]
	if !ok {
		return nil, services.ErrNotFound
	}
	return doc, nil
}

func (m *MockFeedService) SitemapIndex() ([]byte, error) {
	return m.Index, m.Err
}

func (m *MockFeedService) Robots() []byte {
	return m.RobotsBody
}

func (m *MockFeedService) RSS() ([]byte, error) {
	return m.RSSBody, m.Err
}

func (m *MockFeedService) StructuredData(c models.Collection, slug string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	doc, ok := m.Documents[string(c)+"/"+slug]
	if !ok {
		return nil, services.ErrNotFound
	}
	return doc, nil
}

func (m *MockFeedService) Related(c models.Collection, slug string, limit int) ([]models.RelatedItem, error) {
	m.LastLimit = limit
	if m.Err != nil {
		return nil, m.Err
	}
	items, ok := m.RelatedItems[string(c)+"/"+slug]
	if !ok {
		return nil, services.ErrNotFound
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockFeedService) Outbound(key string) (models.MonetizeConfig, bool) {
	cfg, ok := m.Links[key]
	return cfg, ok
}

func (m *MockFeedService) Artifacts(ctx context.Context) ([]services.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Outputs, m.Err
}

func (m *MockFeedService) Reload() error {
	m.reloads.Add(1)
	return m.Err
}

func (m *MockFeedService) Counts() map[models.Collection]int {
	return m.RecordCounts
}
