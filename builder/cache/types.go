// Package cache provides a BoltDB + content-addressed filesystem cache for
// generated feed artifacts, so unchanged sitemaps are not rewritten.
package cache

import (
	"encoding/hex"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

// ArtifactMeta describes the last version of one generated file.
type ArtifactMeta struct {
	Path        string          `msgpack:"path"` // URL path, e.g. /sitemap-cars.xml
	Hash        string          `msgpack:"hash"` // BLAKE3 of the body
	Size        int64           `msgpack:"size"`
	ContentType string          `msgpack:"content_type"`
	Compression CompressionType `msgpack:"compression"`
	GeneratedAt int64           `msgpack:"generated_at"`
}

// CacheStats holds runtime statistics
type CacheStats struct {
	TotalArtifacts int   `msgpack:"total_artifacts"`
	StoreBytes     int64 `msgpack:"store_bytes"`
	StoreBlobs     int   `msgpack:"store_blobs"`
	DeadBlobs      int   `msgpack:"dead_blobs"`
	LastGC         int64 `msgpack:"last_gc"`
	BuildCount     int   `msgpack:"build_count"`
	BuildsSinceGC  int   `msgpack:"builds_since_gc"`
	SchemaVersion  int   `msgpack:"schema_version"`
	LastBuildTime  int64 `msgpack:"last_build_time"`
}

// CompressionType indicates how an artifact is stored
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionZstdFast
	CompressionZstdDefault
)

// Constants for compression thresholds
const (
	RawThreshold  = 4 * 1024 // < 4KB stored raw
	SchemaVersion = 1
)

// HashContent computes BLAKE3 hash of content and returns hex string
func HashContent(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString computes BLAKE3 hash of a string
func HashString(s string) string {
	return HashContent([]byte(s))
}

// Encode serializes a value to msgpack bytes
func Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode deserializes msgpack bytes to a value
func Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
