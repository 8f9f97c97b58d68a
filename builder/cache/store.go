package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrBlobNotFound is returned when a hash has no stored body.
var ErrBlobNotFound = errors.New("blob not found")

// Store provides content-addressed file storage with two-tier sharding
type Store struct {
	basePath    string
	fastZstdMax int
	fast        *zstd.Encoder
	better      *zstd.Encoder
	decoder     *zstd.Decoder
}

// NewStore creates a new content-addressed store. Bodies smaller than
// fastZstdMax use the fastest encoder level; larger ones the default level.
func NewStore(basePath string, fastZstdMax int) (*Store, error) {
	if fastZstdMax <= 0 {
		fastZstdMax = 64 * 1024
	}
	fast, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	better, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = fast.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = fast.Close()
		_ = better.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Store{
		basePath:    basePath,
		fastZstdMax: fastZstdMax,
		fast:        fast,
		better:      better,
		decoder:     decoder,
	}, nil
}

// Close releases resources
func (s *Store) Close() error {
	_ = s.fast.Close()
	_ = s.better.Close()
	s.decoder.Close()
	return nil
}

// shardPath computes the two-tier shard path: hash[0:2]/hash[2:4]/hash
func (s *Store) shardPath(category, hash string) string {
	if len(hash) < 4 {
		return filepath.Join(s.basePath, category, hash)
	}
	return filepath.Join(s.basePath, category, hash[0:2], hash[2:4], hash)
}

func extension(ct CompressionType) string {
	if ct == CompressionNone {
		return ".raw"
	}
	return ".zst"
}

func (s *Store) compressionFor(size int) CompressionType {
	switch {
	case size < RawThreshold:
		return CompressionNone
	case size < s.fastZstdMax:
		return CompressionZstdFast
	default:
		return CompressionZstdDefault
	}
}

// Put stores content and returns its hash and compression type.
func (s *Store) Put(category string, content []byte) (string, CompressionType, error) {
	hash := HashContent(content)
	ct := s.compressionFor(len(content))
	path := s.shardPath(category, hash) + extension(ct)

	if _, err := os.Stat(path); err == nil {
		return hash, ct, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	data := content
	switch ct {
	case CompressionZstdFast:
		data = s.fast.EncodeAll(content, nil)
	case CompressionZstdDefault:
		data = s.better.EncodeAll(content, nil)
	}

	// Atomic write: .tmp -> fsync -> rename. Identical bodies may be stored
	// concurrently, so each writer gets its own temp file.
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("failed to write content: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("failed to rename file: %w", err)
	}
	return hash, ct, nil
}

// Get retrieves content by hash regardless of how it was compressed.
func (s *Store) Get(category, hash string) ([]byte, error) {
	base := s.shardPath(category, hash)
	if data, err := os.ReadFile(base + ".zst"); err == nil {
		return s.decoder.DecodeAll(data, nil)
	}
	data, err := os.ReadFile(base + ".raw")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, hash)
	}
	return data, nil
}

// Exists checks if a hash exists in the store
func (s *Store) Exists(category, hash string) bool {
	base := s.shardPath(category, hash)
	for _, ext := range []string{".raw", ".zst"} {
		if _, err := os.Stat(base + ext); err == nil {
			return true
		}
	}
	return false
}

// Delete removes a hash from the store
func (s *Store) Delete(category, hash string) error {
	base := s.shardPath(category, hash)
	_ = os.Remove(base + ".raw")
	_ = os.Remove(base + ".zst")
	return nil
}

// ListHashes returns all hashes in a category
func (s *Store) ListHashes(category string) ([]string, error) {
	var hashes []string
	err := s.walk(category, func(name string, _ fs.FileInfo) {
		if ext := filepath.Ext(name); ext == ".raw" || ext == ".zst" {
			hashes = append(hashes, strings.TrimSuffix(name, ext))
		}
	})
	return hashes, err
}

// Size returns total bytes used by a category
func (s *Store) Size(category string) (int64, error) {
	var total int64
	err := s.walk(category, func(_ string, info fs.FileInfo) {
		total += info.Size()
	})
	return total, err
}

func (s *Store) walk(category string, fn func(name string, info fs.FileInfo)) error {
	root := filepath.Join(s.basePath, category)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fn(d.Name(), info)
		return nil
	})
}
