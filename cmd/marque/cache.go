package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/marque-journal/marque/builder/cache"
	"github.com/marque-journal/marque/builder/config"
)

// handleCacheCommand processes cache-related subcommands
func handleCacheCommand(args []string) error {
	if len(args) < 1 {
		printCacheUsage()
		return errors.New("missing cache subcommand")
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "stats":
		return cacheStats()
	case "gc":
		dryRun := false
		for _, arg := range subArgs {
			if arg == "--dry-run" || arg == "-n" {
				dryRun = true
			}
		}
		return cacheGC(dryRun)
	case "verify":
		return cacheVerify()
	case "clear":
		return cacheClear()
	case "inspect":
		if len(subArgs) < 1 {
			return errors.New("usage: marque cache inspect <path>")
		}
		return cacheInspect(subArgs[0])
	default:
		printCacheUsage()
		return fmt.Errorf("unknown cache subcommand: %s", subcommand)
	}
}

func printCacheUsage() {
	fmt.Println("Usage: marque cache <subcommand> [arguments]")
	fmt.Println("\nSubcommands:")
	fmt.Println("  stats          Show cache statistics")
	fmt.Println("  gc             Delete stored bodies no artifact references")
	fmt.Println("  verify         Check cache integrity")
	fmt.Println("  clear          Delete all cache data")
	fmt.Println("  inspect <path> Show the cache entry for an output path, e.g. /sitemap-cars.xml")
	fmt.Println("\nFlags for gc:")
	fmt.Println("  --dry-run, -n  Show what would be deleted without deleting")
}

func openCache() (*cache.Manager, error) {
	cfg := config.Load(nil)
	cm, err := cache.Open(cfg.CacheDir, cache.Options{
		Timeout:     cfg.Build.CacheDBTimeout,
		FastZstdMax: cfg.Build.FastZstdMax,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return cm, nil
}

func cacheStats() error {
	cm, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cm.Close() }()

	stats, err := cm.Stats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("📊 Cache Statistics")
	fmt.Println("════════════════════════════════════════")
	fmt.Printf("Location:        %s\n", cm.BasePath())
	fmt.Printf("Schema Version:  %d\n", stats.SchemaVersion)
	fmt.Printf("Artifacts:       %d\n", stats.TotalArtifacts)
	fmt.Printf("Stored Bodies:   %d (%d unreferenced)\n", stats.StoreBlobs, stats.DeadBlobs)
	fmt.Printf("Store Size:      %.2f MB\n", float64(stats.StoreBytes)/(1024*1024))
	fmt.Printf("Build Count:     %d (%d since GC)\n", stats.BuildCount, stats.BuildsSinceGC)
	fmt.Printf("Last Build:      %s\n", formatUnix(stats.LastBuildTime))
	fmt.Printf("Last GC:         %s\n", formatUnix(stats.LastGC))

	if ok, reason := cm.ShouldRunGC(5, 0.3); ok {
		fmt.Printf("\n💡 GC recommended: %s\n", reason)
	}
	return nil
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return "never"
	}
	return time.Unix(ts, 0).Format(time.RFC3339)
}

func cacheGC(dryRun bool) error {
	cm, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cm.Close() }()

	if dryRun {
		fmt.Println("🗑️  Running GC (dry run)...")
	} else {
		fmt.Println("🗑️  Running garbage collection...")
	}

	result, err := cm.RunGC(dryRun)
	if err != nil {
		return fmt.Errorf("GC failed: %w", err)
	}

	fmt.Println("════════════════════════════════════════")
	fmt.Printf("Scanned:    %d blobs\n", result.ScannedBlobs)
	fmt.Printf("Live:       %d blobs\n", result.LiveBlobs)
	fmt.Printf("Deleted:    %d blobs (%.2f MB)\n", result.DeletedBlobs, float64(result.DeletedBytes)/(1024*1024))
	fmt.Printf("Duration:   %v\n", result.Duration)

	if dryRun {
		fmt.Println("\n(No changes made - dry run mode)")
	} else {
		fmt.Println("\n✅ GC complete")
	}
	return nil
}

func cacheVerify() error {
	cm, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cm.Close() }()

	fmt.Println("🔍 Verifying cache integrity...")

	problems, err := cm.Verify()
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if len(problems) == 0 {
		fmt.Println("✅ Cache is healthy - no issues found")
		return nil
	}
	fmt.Printf("⚠️  Found %d issues:\n", len(problems))
	for i, p := range problems {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
	fmt.Println("\nRun 'marque cache clear' and rebuild to repair.")
	return nil
}

func cacheClear() error {
	cm, err := openCache()
	if err != nil {
		return err
	}

	fmt.Println("🗑️  Clearing all cache data...")
	if err := cm.Clear(); err != nil {
		_ = cm.Close()
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	_ = cm.Close()

	fmt.Println("✅ Cache cleared. Run 'marque build' to repopulate.")
	return nil
}

func cacheInspect(path string) error {
	cm, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cm.Close() }()

	meta, err := cm.Artifact(path)
	if err != nil {
		return fmt.Errorf("error looking up path: %w", err)
	}
	if meta == nil {
		return fmt.Errorf("no cache entry found for: %s", path)
	}

	fmt.Println("📄 Cache Entry")
	fmt.Println("════════════════════════════════════════")
	fmt.Printf("Path:         %s\n", meta.Path)
	fmt.Printf("ContentType:  %s\n", meta.ContentType)
	fmt.Printf("Hash:         %s\n", truncateHash(meta.Hash))
	fmt.Printf("Size:         %d bytes\n", meta.Size)
	fmt.Printf("Compression:  %d\n", meta.Compression)
	fmt.Printf("Generated:    %s\n", formatUnix(meta.GeneratedAt))
	return nil
}

func truncateHash(hash string) string {
	if len(hash) > 16 {
		return hash[:8] + "..." + hash[len(hash)-8:]
	}
	return hash
}
