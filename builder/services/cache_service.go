package services

import (
	"log/slog"

	"github.com/marque-journal/marque/builder/cache"
)

// cacheServiceImpl implements CacheService
type cacheServiceImpl struct {
	manager *cache.Manager
	logger  *slog.Logger
}

func NewCacheService(manager *cache.Manager, logger *slog.Logger) CacheService {
	return &cacheServiceImpl{
		manager: manager,
		logger:  logger,
	}
}

func (s *cacheServiceImpl) Unchanged(path string, body []byte) (bool, error) {
	return s.manager.Unchanged(path, body)
}

// PutArtifact records body and reports whether it differs from the last build.
func (s *cacheServiceImpl) PutArtifact(path, contentType string, body []byte) (bool, error) {
	_, changed, err := s.manager.PutArtifact(path, contentType, body)
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.Debug("artifact changed", "path", path, "bytes", len(body))
	}
	return changed, nil
}

func (s *cacheServiceImpl) Prune(keep map[string]bool) ([]string, error) {
	removed, err := s.manager.Prune(keep)
	for _, p := range removed {
		s.logger.Debug("artifact pruned", "path", p)
	}
	return removed, err
}

func (s *cacheServiceImpl) Stats() (*cache.CacheStats, error) {
	return s.manager.Stats()
}

func (s *cacheServiceImpl) IncrementBuildCount() error {
	return s.manager.IncrementBuildCount()
}

func (s *cacheServiceImpl) Close() error {
	return s.manager.Close()
}
