package clean

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marque-journal/marque/builder/config"
)

func setupDirs(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		OutputDir: filepath.Join(root, "public"),
		CacheDir:  filepath.Join(root, ".marque-cache"),
	}
	for _, dir := range []string{cfg.OutputDir, cfg.CacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "sitemap.xml"), []byte("<x/>"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRun_OutputOnly(t *testing.T) {
	cfg := setupDirs(t)

	wait, err := Run(cfg, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wait()

	if exists(cfg.OutputDir) {
		t.Error("output dir should be removed")
	}
	if !exists(cfg.CacheDir) {
		t.Error("cache dir should be kept")
	}

	entries, err := os.ReadDir(filepath.Dir(cfg.OutputDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("trash left behind: %v", entries)
	}
}

func TestRun_WithCache(t *testing.T) {
	cfg := setupDirs(t)

	wait, err := Run(cfg, true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wait()

	if exists(cfg.OutputDir) || exists(cfg.CacheDir) {
		t.Error("both directories should be removed")
	}
}

func TestRun_MissingDirs(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		OutputDir: filepath.Join(root, "nope"),
		CacheDir:  filepath.Join(root, "also-nope"),
	}
	wait, err := Run(cfg, true)
	if err != nil {
		t.Fatalf("missing dirs should not fail: %v", err)
	}
	wait()
}

func TestRun_RefusesRoot(t *testing.T) {
	for _, dir := range []string{"", "/"} {
		if _, err := Run(&config.Config{OutputDir: dir}, false); err == nil {
			t.Errorf("Run(%q) should fail", dir)
		}
	}
}
