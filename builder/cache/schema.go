package cache

// BoltDB bucket names
const (
	BucketArtifacts = "artifacts" // {output path} -> ArtifactMeta
	BucketMeta      = "meta"      // schema_version, cache_id
	BucketStats     = "stats"     // last_gc, build_count, builds_since_gc, last_build

	KeySchemaVersion = "schema_version"
	KeyCacheID       = "cache_id"
	KeyLastGC        = "last_gc"
	KeyBuildCount    = "build_count"
	KeyBuildsSinceGC = "builds_since_gc"
	KeyLastBuild     = "last_build"
)

// CategoryArtifacts is the store directory holding artifact bodies.
const CategoryArtifacts = "artifacts"

// AllBuckets returns all bucket names for initialization
func AllBuckets() []string {
	return []string{
		BucketArtifacts,
		BucketMeta,
		BucketStats,
	}
}
