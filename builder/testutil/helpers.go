package testutil

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/cache"
)

// CreateTestCache opens a cache in a temp directory; it is closed on cleanup.
func CreateTestCache(t *testing.T) *cache.Manager {
	t.Helper()
	m, err := cache.Open(t.TempDir(), cache.Options{})
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// CreateTestFilesystemWithContent creates an in-memory filesystem holding files.
func CreateTestFilesystemWithContent(files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			panic(err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	return fs
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// AssertFileExists checks if a file exists in the filesystem
func AssertFileExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("Error checking file existence: %v", err)
	}
	if !exists {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("Error checking file existence: %v", err)
	}
	if exists {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// ReadFile returns a file's content or fails the test.
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}
