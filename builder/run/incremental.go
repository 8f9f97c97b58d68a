package run

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/marque-journal/marque/internal/watch"
)

// isContentPath reports whether a changed file can affect the artifacts.
func isContentPath(contentDir, path string) bool {
	if !watch.JSONFiles(path) {
		return false
	}
	rel, err := filepath.Rel(contentDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// BuildChanged rebuilds after changedPath was modified (for watch mode).
// Every artifact depends on every collection, so the whole set is
// regenerated; unchanged outputs are still left untouched on disk.
func (b *Builder) BuildChanged(ctx context.Context, changedPath string) bool {
	if !isContentPath(b.cfg.ContentDir, changedPath) {
		return false
	}
	fmt.Printf("⚡ Change detected in [%s]\n", filepath.Base(changedPath))
	m, err := b.Build(ctx)
	if err != nil {
		fmt.Printf("❌ Rebuild failed: %v\n", err)
		return true
	}
	m.Print()
	return true
}

// Watch rebuilds on content changes until ctx is cancelled.
func (b *Builder) Watch(ctx context.Context) error {
	debounce := watch.DefaultDebounce
	if b.cfg.Build != nil {
		debounce = b.cfg.Build.DebounceDuration
	}
	w, err := watch.New([]string{b.cfg.ContentDir}, debounce, b.logger, func(e watch.Event) {
		b.BuildChanged(ctx, e.Name)
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	w.Filter = watch.JSONFiles
	fmt.Println("👀 Watch mode active. Waiting for changes...")
	return w.Run(ctx)
}
