package utils

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// OutputPath maps a served URL path such as "/sitemap-cars.xml" to its file
// under outDir. Paths that would escape outDir are rejected.
func OutputPath(outDir, urlPath string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(urlPath, "\\", "/"))
	if clean == "/" {
		return "", fmt.Errorf("empty output path %q", urlPath)
	}
	full := filepath.Join(outDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	rel, err := filepath.Rel(outDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q escapes %s", urlPath, outDir)
	}
	return full, nil
}

func WriteFileVFS(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write VFS file %s: %w", path, err)
	}
	return nil
}
