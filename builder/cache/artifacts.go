package cache

import (
	"fmt"
	"sort"
	"time"
)

// Artifact returns the metadata recorded for an output path, or nil.
func (m *Manager) Artifact(path string) (*ArtifactMeta, error) {
	return m.artifacts.Get(path)
}

// Unchanged reports whether path was last generated with exactly body.
func (m *Manager) Unchanged(path string, body []byte) (bool, error) {
	prev, err := m.artifacts.Get(path)
	if err != nil || prev == nil {
		return false, err
	}
	return prev.Hash == HashContent(body) && m.store.Exists(CategoryArtifacts, prev.Hash), nil
}

// PutArtifact stores body and records it as the current version of path.
// changed is false when the recorded hash already matched.
func (m *Manager) PutArtifact(path, contentType string, body []byte) (meta *ArtifactMeta, changed bool, err error) {
	prev, err := m.artifacts.Get(path)
	if err != nil {
		return nil, false, err
	}

	hash, ct, err := m.store.Put(CategoryArtifacts, body)
	if err != nil {
		return nil, false, fmt.Errorf("store %s: %w", path, err)
	}
	if prev != nil && prev.Hash == hash {
		return prev, false, nil
	}

	meta = &ArtifactMeta{
		Path:        path,
		Hash:        hash,
		Size:        int64(len(body)),
		ContentType: contentType,
		Compression: ct,
		GeneratedAt: time.Now().Unix(),
	}
	if err := m.artifacts.Put(path, meta); err != nil {
		return nil, false, fmt.Errorf("record %s: %w", path, err)
	}
	return meta, true, nil
}

// ArtifactBody returns the stored body of the current version of path.
func (m *Manager) ArtifactBody(path string) ([]byte, error) {
	meta, err := m.artifacts.Get(path)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, path)
	}
	return m.store.Get(CategoryArtifacts, meta.Hash)
}

// ListArtifacts returns every recorded artifact sorted by path.
func (m *Manager) ListArtifacts() ([]ArtifactMeta, error) {
	var out []ArtifactMeta
	err := m.artifacts.ForEach(func(_ string, a *ArtifactMeta) error {
		out = append(out, *a)
		return nil
	}, nil)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, err
}

// DeleteArtifact forgets path. Its blob is reclaimed by the next GC.
func (m *Manager) DeleteArtifact(path string) error {
	return m.artifacts.Delete(path)
}

// Prune forgets every artifact whose path is not in keep and returns the
// paths it removed.
func (m *Manager) Prune(keep map[string]bool) ([]string, error) {
	all, err := m.ListArtifacts()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, a := range all {
		if keep[a.Path] {
			continue
		}
		if err := m.DeleteArtifact(a.Path); err != nil {
			return removed, err
		}
		removed = append(removed, a.Path)
	}
	return removed, nil
}
