package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BuildConfig contains tunable build and serve parameters.
// These can be overridden via marque.build.yaml
type BuildConfig struct {
	// Worker settings
	MaxWorkers     int `yaml:"maxWorkers"`     // Maximum worker pool size (default: 32)
	DefaultWorkers int `yaml:"defaultWorkers"` // Default worker count (default: 8)

	// Cache settings
	FastZstdMax    int           `yaml:"fastZstdMax"`    // Threshold for fast zstd compression (default: 64KB)
	CacheDBTimeout time.Duration `yaml:"cacheDBTimeout"` // BoltDB timeout (default: 10s)

	// HTTP cache lifetimes (s-maxage and stale-while-revalidate)
	FeedTTL   time.Duration `yaml:"feedTTL"`   // default: 1h
	RobotsTTL time.Duration `yaml:"robotsTTL"` // default: 24h

	// Serve
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`  // Server shutdown timeout (default: 5s)
	DebounceDuration time.Duration `yaml:"debounceDuration"` // Content watcher debounce (default: 300ms)
	APIRateLimit     float64       `yaml:"apiRateLimit"`     // requests per second on /api/ (default: 20)
	APIRateBurst     int           `yaml:"apiRateBurst"`     // default: 40
}

// DefaultBuildConfig returns the default build configuration
func DefaultBuildConfig() *BuildConfig {
	return &BuildConfig{
		MaxWorkers:     32,
		DefaultWorkers: 8,

		FastZstdMax:    64 * 1024,
		CacheDBTimeout: 10 * time.Second,

		FeedTTL:   time.Hour,
		RobotsTTL: 24 * time.Hour,

		ShutdownTimeout:  5 * time.Second,
		DebounceDuration: 300 * time.Millisecond,
		APIRateLimit:     20,
		APIRateBurst:     40,
	}
}

// LoadBuildConfig loads build configuration from marque.build.yaml
// Returns defaults if file doesn't exist
func LoadBuildConfig() *BuildConfig {
	cfg := DefaultBuildConfig()

	data, err := os.ReadFile("marque.build.yaml")
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultBuildConfig()
	}

	cfg.validate()
	return cfg
}

// validate ensures configuration values are within reasonable bounds
func (c *BuildConfig) validate() {
	if c.MaxWorkers < 1 {
		c.MaxWorkers = 1
	}
	if c.MaxWorkers > 256 {
		c.MaxWorkers = 256
	}
	if c.DefaultWorkers < 1 {
		c.DefaultWorkers = 1
	}
	if c.DefaultWorkers > c.MaxWorkers {
		c.DefaultWorkers = c.MaxWorkers
	}

	if c.FastZstdMax < 1024 {
		c.FastZstdMax = 1024
	}
	if c.CacheDBTimeout < 1*time.Second {
		c.CacheDBTimeout = 1 * time.Second
	}

	if c.FeedTTL < time.Minute {
		c.FeedTTL = time.Minute
	}
	if c.FeedTTL > 7*24*time.Hour {
		c.FeedTTL = 7 * 24 * time.Hour
	}
	if c.RobotsTTL < time.Minute {
		c.RobotsTTL = time.Minute
	}
	if c.RobotsTTL > 7*24*time.Hour {
		c.RobotsTTL = 7 * 24 * time.Hour
	}

	if c.ShutdownTimeout < 1*time.Second {
		c.ShutdownTimeout = 1 * time.Second
	}
	if c.ShutdownTimeout > 60*time.Second {
		c.ShutdownTimeout = 60 * time.Second
	}
	if c.DebounceDuration < 10*time.Millisecond {
		c.DebounceDuration = 10 * time.Millisecond
	}
	if c.DebounceDuration > 5*time.Second {
		c.DebounceDuration = 5 * time.Second
	}
	if c.APIRateLimit <= 0 {
		c.APIRateLimit = 20
	}
	if c.APIRateBurst < 1 {
		c.APIRateBurst = 1
	}
}
