package run

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"

	"github.com/marque-journal/marque/builder/cache"
	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/services"
	"github.com/marque-journal/marque/builder/utils"
)

// Builder maintains the state for artifact builds
type Builder struct {
	cfg      *config.Config
	logger   *slog.Logger
	feeds    services.FeedService
	cache    services.CacheService
	minifier *minify.M

	// DestFs receives the output tree rooted at cfg.OutputDir.
	DestFs afero.Fs

	// cacheRebuilt is reported once, on the first build after a reset.
	cacheRebuilt bool
}

// NewBuilder opens the build cache and wires the feed service over the OS
// filesystem. The cache is reset when the site base changed since the last
// build, since every URL in every artifact depends on it.
func NewBuilder(cfg *config.Config, logger *slog.Logger) (*Builder, error) {
	bc := cfg.Build
	if bc == nil {
		bc = config.DefaultBuildConfig()
	}
	mgr, err := cache.Open(cfg.CacheDir, cache.Options{
		Timeout:     bc.CacheDBTimeout,
		FastZstdMax: bc.FastZstdMax,
		IsDev:       cfg.IsDev,
	})
	if err != nil {
		return nil, fmt.Errorf("open build cache: %w", err)
	}

	cacheID := cache.HashString(cfg.BaseURL)
	rebuild, err := mgr.VerifyCacheID(cacheID)
	if err != nil {
		_ = mgr.Close()
		return nil, fmt.Errorf("verify build cache: %w", err)
	}
	if rebuild {
		if err := mgr.Clear(); err != nil {
			_ = mgr.Close()
			return nil, fmt.Errorf("reset build cache: %w", err)
		}
		if err := mgr.SetCacheID(cacheID); err != nil {
			_ = mgr.Close()
			return nil, err
		}
	}

	osFs := afero.NewOsFs()
	b := NewBuilderWith(cfg, logger,
		services.NewFeedService(cfg, osFs, logger),
		services.NewCacheService(mgr, logger),
		osFs,
	)
	b.cacheRebuilt = rebuild
	return b, nil
}

// NewBuilderWith assembles a builder from explicit collaborators.
func NewBuilderWith(cfg *config.Config, logger *slog.Logger, feeds services.FeedService, cacheSvc services.CacheService, destFs afero.Fs) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		cfg:    cfg,
		logger: logger,
		feeds:  feeds,
		cache:  cacheSvc,
		DestFs: destFs,
	}
	if cfg.CompressXML {
		b.minifier = utils.NewXMLMinifier()
	}
	return b
}

// Config returns the builder's configuration
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Close releases the build cache.
func (b *Builder) Close() error {
	return b.cache.Close()
}
