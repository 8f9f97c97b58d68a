// Package clean removes generated output and, optionally, the build cache.
package clean

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marque-journal/marque/builder/config"
)

// Run removes cfg.OutputDir, and cfg.CacheDir when cleanCache is set.
// Directories are renamed aside first and deleted in the background so the
// command returns immediately; wait blocks until that deletion finishes.
func Run(cfg *config.Config, cleanCache bool) (wait func(), err error) {
	start := time.Now()

	targets := []string{cfg.OutputDir}
	if cleanCache {
		targets = append(targets, cfg.CacheDir)
	}

	done := make(chan struct{})
	var pending []string
	for _, dir := range targets {
		if dir == "" || isRoot(dir) {
			return nil, fmt.Errorf("refusing to clean %q", dir)
		}
		trash, err := moveAside(dir)
		if err != nil {
			return nil, err
		}
		if trash != "" {
			pending = append(pending, trash)
		}
	}

	go func() {
		defer close(done)
		for _, p := range pending {
			_ = os.RemoveAll(p)
		}
	}()

	fmt.Printf("🧹 Clean initiated in %v (backgrounding deletion).\n", time.Since(start))
	return func() { <-done }, nil
}

// moveAside renames dir to a sibling trash name and returns it. A missing
// dir is not an error. If the rename fails dir is deleted in place.
func moveAside(dir string) (string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", nil
	}

	trash := filepath.Join(filepath.Dir(dir),
		fmt.Sprintf("%s_deleting_%d", filepath.Base(dir), time.Now().UnixNano()))

	fmt.Printf("🧹 Moving '%s' to trash...\n", dir)
	if err := os.Rename(dir, trash); err != nil {
		fmt.Printf("⚠️ Rename failed (%v), deleting synchronously...\n", err)
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("remove %s: %w", dir, err)
		}
		return "", nil
	}
	return trash, nil
}

func isRoot(dir string) bool {
	clean := filepath.Clean(dir)
	return clean == filepath.Dir(clean)
}
