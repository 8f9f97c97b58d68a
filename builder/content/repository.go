// Package content loads the journal's static JSON collections.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/models"
)

var ErrUnknownCollection = errors.New("unknown collection")

// Repository serves records read from <dir>/<collection>.json. A missing file
// is an empty collection. Reads return copies, so callers may sort freely.
type Repository struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	records map[models.Collection][]models.Record
}

func NewRepository(fs afero.Fs, dir string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Repository{
		fs:      fs,
		dir:     dir,
		logger:  logger,
		records: make(map[models.Collection][]models.Record),
	}
}

// Dir returns the content directory the repository reads from.
func (r *Repository) Dir() string { return r.dir }

// Reload re-reads every collection. On error the previous snapshot is kept.
func (r *Repository) Reload() error {
	next := make(map[models.Collection][]models.Record, len(models.AllCollections()))
	for _, c := range models.AllCollections() {
		recs, err := r.readCollection(c)
		if err != nil {
			return err
		}
		next[c] = recs
	}

	r.mu.Lock()
	r.records = next
	r.mu.Unlock()

	r.logger.Debug("content loaded", "dir", r.dir, "counts", countsOf(next))
	return nil
}

func (r *Repository) readCollection(c models.Collection) ([]models.Record, error) {
	path := filepath.Join(r.dir, string(c)+".json")
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var recs []models.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range recs {
		recs[i].Slug = strings.Trim(strings.TrimSpace(recs[i].Slug), "/")
	}
	return recs, nil
}

// Records returns a copy of one collection's records in file order.
func (r *Repository) Records(c models.Collection) ([]models.Record, error) {
	if _, ok := models.ParseCollection(string(c)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.records[c]
	out := make([]models.Record, len(src))
	copy(out, src)
	return out, nil
}

// Find looks a record up by slug.
func (r *Repository) Find(c models.Collection, slug string) (models.Record, bool) {
	slug = strings.Trim(slug, "/")
	if slug == "" {
		return models.Record{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records[c] {
		if rec.Slug == slug {
			return rec, true
		}
	}
	return models.Record{}, false
}

// Counts returns the number of records per collection.
func (r *Repository) Counts() map[models.Collection]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return countsOf(r.records)
}

func countsOf(m map[models.Collection][]models.Record) map[models.Collection]int {
	out := make(map[models.Collection]int, len(m))
	for c, recs := range m {
		out[c] = len(recs)
	}
	return out
}
