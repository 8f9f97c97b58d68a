package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/utils"
)

// Run executes the main build logic. args are the build flags, for
// example -compress or -baseurl.
func Run(ctx context.Context, args []string) error {
	cfg := config.Load(args)
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return RunWith(ctx, cfg, logger)
}

// RunWith builds with an already loaded config.
func RunWith(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	lock, err := utils.AcquireBuildLock(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	b, err := NewBuilder(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("failed to close build cache", "error", err)
		}
	}()

	fmt.Printf("🔨 Building feeds for %s | Parallel Workers: %d\n", cfg.BaseURL, b.workers())
	m, err := b.Build(ctx)
	if err != nil {
		return err
	}
	if m.CacheRebuilt {
		fmt.Println("🔄 Build cache reset (new cache or site base changed).")
	}
	m.Print()
	fmt.Println("✅ Build Complete.")

	if cfg.Watch {
		return b.Watch(ctx)
	}
	return nil
}
