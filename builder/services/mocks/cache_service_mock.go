// Package mocks provides mock implementations for testing
package mocks

import (
	"bytes"
	"sync"

	"github.com/marque-journal/marque/builder/cache"
	"github.com/marque-journal/marque/builder/services"
)

var _ services.CacheService = (*MockCacheService)(nil)

// MockCacheService is an in-memory services.CacheService. It is safe for the
// concurrent use the build pipeline's worker pool makes of it.
type MockCacheService struct {
	mu sync.Mutex

	Bodies       map[string][]byte
	ContentTypes map[string]string
	BuildCount   int
	Closed       bool
	Err          error
	CallCount    map[string]int
}

// NewMockCacheService creates a new mock cache service
func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		Bodies:       make(map[string][]byte),
		ContentTypes: make(map[string]string),
		CallCount:    make(map[string]int),
	}
}

// recordCall must be called with mu held.
func (m *MockCacheService) recordCall(method string) {
	if m.CallCount == nil {
		m.CallCount = make(map[string]int)
	}
	m.CallCount[method]++
}

// Calls returns how often method was called.
func (m *MockCacheService) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount[method]
}

func (m *MockCacheService) Unchanged(path string, body []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("Unchanged")
	if m.Err != nil {
		return false, m.Err
	}
	prev, ok := m.Bodies[path]
	return ok && bytes.Equal(prev, body), nil
}

func (m *MockCacheService) PutArtifact(path, contentType string, body []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("PutArtifact")
	if m.Err != nil {
		return false, m.Err
	}
	if prev, ok := m.Bodies[path]; ok && bytes.Equal(prev, body) {
		return false, nil
	}
	m.Bodies[path] = bytes.Clone(body)
	m.ContentTypes[path] = contentType
	return true, nil
}

func (m *MockCacheService) Prune(keep map[string]bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("Prune")
	if m.Err != nil {
		return nil, m.Err
	}
	var removed []string
	for p := range m.Bodies {
		if !keep[p] {
			delete(m.Bodies, p)
			delete(m.ContentTypes, p)
			removed = append(removed, p)
		}
	}
	return removed, nil
}

// Stats returns cache statistics
func (m *MockCacheService) Stats() (*cache.CacheStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("Stats")
	if m.Err != nil {
		return nil, m.Err
	}
	return &cache.CacheStats{TotalArtifacts: len(m.Bodies), BuildCount: m.BuildCount}, nil
}

// IncrementBuildCount increments the build counter
func (m *MockCacheService) IncrementBuildCount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("IncrementBuildCount")
	if m.Err != nil {
		return m.Err
	}
	m.BuildCount++
	return nil
}

// Close closes the cache
func (m *MockCacheService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("Close")
	m.Closed = true
	return m.Err
}
