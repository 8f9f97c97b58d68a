// Package scaffold lays out a new content directory for `marque init`.
package scaffold

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/models"
)

const defaultMarqueYaml = `# Site Configuration
title: "Marque Journal"
description: "Cars, columns, guides and heritage for people who still care about driving."
baseURL: "https://marque-journal.com"
language: "en"

author:
  name: "Editorial Desk"
  url: "https://marque-journal.com/about"

contentDir: "content"
outputDir: "public"

# Affiliate links (MARQUE_MONETIZE / MARQUE_AFFILIATE_TAG override these)
monetize: true
affiliateTag: "marquejournal-22"

rssLimit: 30
relatedLimit: 4

features:
  generators:
    sitemap: true
    robots: true
    rss: true
    structuredData: true
    related: true
`

// Run creates marque.yaml and an empty JSON array per collection under
// root. Existing files are left alone. It returns the paths it created.
func Run(fs afero.Fs, root string) ([]string, error) {
	fmt.Println("🌱 Initializing new Marque project...")

	contentDir := filepath.Join(root, "content")
	if err := fs.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", contentDir, err)
	}

	files := map[string]string{
		filepath.Join(root, "marque.yaml"):         defaultMarqueYaml,
		filepath.Join(contentDir, "monetize.json"): "[]\n",
	}
	for _, c := range models.AllCollections() {
		files[filepath.Join(contentDir, string(c)+".json")] = "[]\n"
	}

	var created []string
	for _, path := range sortedKeys(files) {
		exists, err := afero.Exists(fs, path)
		if err != nil {
			return created, err
		}
		if exists {
			fmt.Printf("   ⏭️  '%s' already exists, skipping\n", path)
			continue
		}
		if err := afero.WriteFile(fs, path, []byte(files[path]), 0644); err != nil {
			return created, fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("   📄 Created '%s'\n", path)
		created = append(created, path)
	}

	fmt.Println("✅ Project ready. Add records to content/*.json and run 'marque build'.")
	return created, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
