package cache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Options tune how the cache database is opened.
type Options struct {
	Timeout     time.Duration // bbolt file lock timeout
	FastZstdMax int           // bodies below this use the fastest zstd level
	IsDev       bool          // relax fsync on growth for serve mode
}

// Manager provides the main cache interface
type Manager struct {
	db        *bolt.DB
	store     *Store
	artifacts *TypedStore[ArtifactMeta]
	basePath  string
	opts      Options
	cacheID   string
}

// Open opens or creates a cache at basePath.
func Open(basePath string, opts Options) (*Manager, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	db, err := bolt.Open(filepath.Join(basePath, "meta.db"), 0644, &bolt.Options{
		Timeout:      opts.Timeout,
		FreelistType: bolt.FreelistArrayType,
		NoGrowSync:   opts.IsDev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store, err := NewStore(filepath.Join(basePath, "store"), opts.FastZstdMax)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	m := &Manager{
		db:        db,
		store:     store,
		artifacts: NewTypedStore[ArtifactMeta](db, BucketArtifacts),
		basePath:  basePath,
		opts:      opts,
	}
	if err := m.initSchema(); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return m, nil
}

// Close closes the cache
func (m *Manager) Close() error {
	if m.store != nil {
		_ = m.store.Close()
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *Manager) initSchema() error {
	return m.db.Update(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets() {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		meta := tx.Bucket([]byte(BucketMeta))
		if meta.Get([]byte(KeySchemaVersion)) == nil {
			return meta.Put([]byte(KeySchemaVersion), putUint32(SchemaVersion))
		}
		return nil
	})
}

// VerifyCacheID reports whether the stored cache ID differs from expectedID.
// The ID covers everything that changes every artifact at once (site base,
// binary version), so a mismatch means the cache should be cleared.
func (m *Manager) VerifyCacheID(expectedID string) (needsRebuild bool, err error) {
	var stored []byte
	err = m.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(BucketMeta)).Get([]byte(KeyCacheID)); v != nil {
			stored = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	m.cacheID = expectedID
	return stored == nil || string(stored) != expectedID, nil
}

// SetCacheID updates the cache ID
func (m *Manager) SetCacheID(id string) error {
	m.cacheID = id
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketMeta)).Put([]byte(KeyCacheID), []byte(id))
	})
}

// Store returns the underlying content store
func (m *Manager) Store() *Store { return m.store }

// BasePath returns the cache directory.
func (m *Manager) BasePath() string { return m.basePath }

// Clear removes all cache data and reopens an empty cache in place.
func (m *Manager) Clear() error {
	_ = m.Close()
	if err := os.RemoveAll(m.basePath); err != nil {
		return fmt.Errorf("failed to remove cache: %w", err)
	}
	fresh, err := Open(m.basePath, m.opts)
	if err != nil {
		return err
	}
	m.db, m.store, m.artifacts = fresh.db, fresh.store, fresh.artifacts
	return nil
}

// IncrementBuildCount bumps the build counters and records the build time.
func (m *Manager) IncrementBuildCount() error {
	return m.db.Update(func(tx *bolt.Tx) error {
		stats := tx.Bucket([]byte(BucketStats))
		for _, key := range []string{KeyBuildCount, KeyBuildsSinceGC} {
			n := getUint32(stats.Get([]byte(key))) + 1
			if err := stats.Put([]byte(key), putUint32(n)); err != nil {
				return err
			}
		}
		return stats.Put([]byte(KeyLastBuild), putInt64(time.Now().Unix()))
	})
}

// Stats returns cache statistics.
func (m *Manager) Stats() (*CacheStats, error) {
	s := &CacheStats{}
	live := make(map[string]bool)
	err := m.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(BucketMeta)).Get([]byte(KeySchemaVersion)); v != nil {
			s.SchemaVersion = int(getUint32(v))
		}
		stats := tx.Bucket([]byte(BucketStats))
		s.BuildCount = int(getUint32(stats.Get([]byte(KeyBuildCount))))
		s.BuildsSinceGC = int(getUint32(stats.Get([]byte(KeyBuildsSinceGC))))
		s.LastGC = getInt64(stats.Get([]byte(KeyLastGC)))
		s.LastBuildTime = getInt64(stats.Get([]byte(KeyLastBuild)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = m.artifacts.ForEach(func(_ string, a *ArtifactMeta) error {
		s.TotalArtifacts++
		live[a.Hash] = true
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	hashes, err := m.store.ListHashes(CategoryArtifacts)
	if err != nil {
		return nil, err
	}
	s.StoreBlobs = len(hashes)
	for _, h := range hashes {
		if !live[h] {
			s.DeadBlobs++
		}
	}
	if s.StoreBytes, err = m.store.Size(CategoryArtifacts); err != nil {
		return nil, err
	}
	return s, nil
}

func putUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func getUint32(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func putInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func getInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
