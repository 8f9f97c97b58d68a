package cache

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// GCResult contains statistics from a GC run
type GCResult struct {
	ScannedBlobs int
	LiveBlobs    int
	DeletedBlobs int
	DeletedBytes int64
	DryRun       bool
	Duration     time.Duration
}

// RunGC deletes stored bodies that no artifact references.
func (m *Manager) RunGC(dryRun bool) (*GCResult, error) {
	start := time.Now()
	res := &GCResult{DryRun: dryRun}

	live := make(map[string]bool)
	if err := m.artifacts.ForEach(func(_ string, a *ArtifactMeta) error {
		live[a.Hash] = true
		return nil
	}, nil); err != nil {
		return nil, fmt.Errorf("collect live hashes: %w", err)
	}

	hashes, err := m.store.ListHashes(CategoryArtifacts)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}
	res.ScannedBlobs = len(hashes)

	for _, h := range hashes {
		if live[h] {
			res.LiveBlobs++
			continue
		}
		if body, err := m.store.Get(CategoryArtifacts, h); err == nil {
			res.DeletedBytes += int64(len(body))
		}
		res.DeletedBlobs++
		if !dryRun {
			_ = m.store.Delete(CategoryArtifacts, h)
		}
	}

	if !dryRun {
		err := m.db.Update(func(tx *bolt.Tx) error {
			stats := tx.Bucket([]byte(BucketStats))
			if err := stats.Put([]byte(KeyLastGC), putInt64(time.Now().Unix())); err != nil {
				return err
			}
			return stats.Put([]byte(KeyBuildsSinceGC), putUint32(0))
		})
		if err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

// ShouldRunGC reports whether enough builds have passed and enough of the
// store is unreferenced to make a GC worthwhile.
func (m *Manager) ShouldRunGC(minBuilds int, deadRatio float64) (bool, string) {
	s, err := m.Stats()
	if err != nil {
		return false, "failed to get stats"
	}
	if s.BuildsSinceGC < minBuilds {
		return false, fmt.Sprintf("only %d builds since last GC (min: %d)", s.BuildsSinceGC, minBuilds)
	}
	if s.StoreBlobs == 0 {
		return false, "store is empty"
	}
	ratio := float64(s.DeadBlobs) / float64(s.StoreBlobs)
	if ratio > deadRatio {
		return true, fmt.Sprintf("dead blob ratio %.0f%% exceeds %.0f%%", ratio*100, deadRatio*100)
	}
	return false, "no GC trigger conditions met"
}

// Verify checks every artifact has a readable body with a matching hash.
func (m *Manager) Verify() ([]string, error) {
	var problems []string
	err := m.artifacts.ForEach(func(key string, a *ArtifactMeta) error {
		body, err := m.store.Get(CategoryArtifacts, a.Hash)
		if err != nil {
			problems = append(problems, fmt.Sprintf("missing blob %s for %s", a.Hash, key))
			return nil
		}
		if HashContent(body) != a.Hash {
			problems = append(problems, fmt.Sprintf("hash mismatch for %s", key))
		}
		return nil
	}, func(key string, err error) {
		problems = append(problems, fmt.Sprintf("corrupt artifact record %s: %v", key, err))
	})
	return problems, err
}
