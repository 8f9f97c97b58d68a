// Package new appends a draft record to a collection file for `marque new`.
package new

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/utils"
)

// ErrUsage is returned when the arguments do not name a collection and title.
var ErrUsage = errors.New(`usage: marque new <collection> "Record Title"`)

// maxSlugLen keeps generated slugs reasonable as URL segments.
const maxSlugLen = 100

// draft is the skeleton written for a new record. Drafts stay out of every
// feed until their status is cleared or set to "published".
type draft struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"createdAt"`
}

// Slug derives the record slug for title. Titles with nothing sluggable get a
// stable key prefixed with the collection name.
func Slug(c models.Collection, title string) string {
	slug := utils.ToSlug(title)
	if slug == "" {
		return utils.StableKey(title, string(c))
	}
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// Run appends a draft to <contentDir>/<collection>.json and returns its path
// and slug. Existing records keep every field, including unknown ones.
func Run(fs afero.Fs, cfg *config.Config, args []string) (path, slug string, err error) {
	if len(args) < 2 {
		return "", "", ErrUsage
	}
	c, ok := models.ParseCollection(args[0])
	if !ok {
		return "", "", fmt.Errorf("unknown collection %q", args[0])
	}
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	if title == "" {
		return "", "", ErrUsage
	}
	slug = Slug(c, title)
	path = filepath.Join(cfg.ContentDir, string(c)+".json")

	var existing []json.RawMessage
	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &existing); err != nil {
				return "", "", fmt.Errorf("parse %s: %w", path, err)
			}
		}
	case errors.Is(err, os.ErrNotExist):
		if err := fs.MkdirAll(cfg.ContentDir, 0755); err != nil {
			return "", "", err
		}
	default:
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}

	for _, raw := range existing {
		var rec struct {
			Slug string `json:"slug"`
		}
		if json.Unmarshal(raw, &rec) == nil && rec.Slug == slug {
			return "", "", fmt.Errorf("%s/%s already exists in %s", c, slug, path)
		}
	}

	entry, err := json.Marshal(draft{
		Slug:      slug,
		Title:     title,
		Summary:   "Enter a short summary here...",
		Tags:      []string{},
		Status:    "draft",
		CreatedAt: utils.FormatDate(cfg.Now()),
	})
	if err != nil {
		return "", "", err
	}
	existing = append(existing, entry)

	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return "", "", err
	}
	out = append(out, '\n')
	if err := afero.WriteFile(fs, path, out, 0644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, slug, nil
}
