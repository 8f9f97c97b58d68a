// handles marque.yaml, command-line flags and environment overrides
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marque-journal/marque/builder/monetize"
)

const (
	// DefaultSiteURL is the production origin used when nothing overrides it.
	DefaultSiteURL = "https://marque-journal.com"
	// DefaultAffiliateTag is the Amazon associate tag used when none is configured.
	DefaultAffiliateTag = monetize.DefaultTag

	EnvSiteURL      = "MARQUE_SITE_URL"
	EnvAffiliateTag = "MARQUE_AFFILIATE_TAG"
	EnvMonetize     = "MARQUE_MONETIZE"
	EnvDebug        = "MARQUE_DEBUG"
)

type Author struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type GeneratorsConfig struct {
	Sitemap        bool `yaml:"sitemap"`
	Robots         bool `yaml:"robots"`
	RSS            bool `yaml:"rss"`
	StructuredData bool `yaml:"structuredData"`
	Related        bool `yaml:"related"`
}

type FeaturesConfig struct {
	Generators GeneratorsConfig `yaml:"generators"`
}

// Config is built once at startup and passed to everything that needs it.
// Nothing else in the module reads the environment.
type Config struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
	BaseURL     string `yaml:"baseURL"`
	Author      Author `yaml:"author"`

	ContentDir string `yaml:"contentDir"`
	OutputDir  string `yaml:"outputDir"`
	CacheDir   string `yaml:"cacheDir"`

	Monetize     bool   `yaml:"monetize"`
	AffiliateTag string `yaml:"affiliateTag"`

	RSSLimit     int  `yaml:"rssLimit"`
	RelatedLimit int  `yaml:"relatedLimit"`
	CompressXML  bool `yaml:"compressXML"`

	Features FeaturesConfig `yaml:"features"`

	Host  string `yaml:"-"`
	Port  string `yaml:"-"`
	Watch bool   `yaml:"-"`
	IsDev bool   `yaml:"-"`
	Debug bool   `yaml:"-"`

	// Now is the clock used for scheduling decisions such as hiding
	// future-dated columns. Tests replace it.
	Now func() time.Time `yaml:"-"`

	Build *BuildConfig `yaml:"-"`
}

func defaultConfig() *Config {
	return &Config{
		Title:        "Marque Journal",
		Description:  "Cars, columns, guides and heritage for people who still care about driving.",
		Language:     "en",
		ContentDir:   "content",
		OutputDir:    "public",
		CacheDir:     ".marque-cache",
		Monetize:     true,
		RSSLimit:     30,
		RelatedLimit: 4,
		Features: FeaturesConfig{
			Generators: GeneratorsConfig{
				Sitemap:        true,
				Robots:         true,
				RSS:            true,
				StructuredData: true,
				Related:        true,
			},
		},
		Host: "localhost",
		Port: "2604",
		Now:  time.Now,
	}
}

// ResolveSiteBase returns the MARQUE_SITE_URL override with trailing slashes
// removed, or DefaultSiteURL when it is unset or blank.
func ResolveSiteBase(getenv func(string) string) string {
	if getenv != nil {
		if v := strings.TrimRight(strings.TrimSpace(getenv(EnvSiteURL)), "/"); v != "" {
			return v
		}
	}
	return DefaultSiteURL
}

// Load reads marque.yaml (or config.yaml) from the working directory, applies
// the process environment and then args. Parse problems fall back to defaults.
func Load(args []string) *Config {
	return LoadWith(args, os.Getenv, os.Stderr)
}

// LoadWith is Load with an explicit environment and warning sink.
func LoadWith(args []string, getenv func(string) string, warn io.Writer) *Config {
	if warn == nil {
		warn = io.Discard
	}
	cfg := defaultConfig()

	for _, name := range []string{"marque.yaml", "config.yaml"} {
		data, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		parsed := defaultConfig()
		if err := yaml.Unmarshal(data, parsed); err != nil {
			fmt.Fprintf(warn, "⚠️  Failed to parse %s: %v (using defaults)\n", name, err)
		} else {
			cfg = parsed
		}
		break
	}

	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if v := getenv(EnvSiteURL); strings.TrimSpace(v) != "" {
		cfg.BaseURL = ResolveSiteBase(getenv)
	}
	if v := strings.TrimSpace(getenv(EnvAffiliateTag)); v != "" {
		cfg.AffiliateTag = v
	}
	if v := strings.TrimSpace(getenv(EnvMonetize)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Monetize = b
		} else {
			fmt.Fprintf(warn, "⚠️  Ignoring %s=%q: %v\n", EnvMonetize, v, err)
		}
	}
	if v := strings.TrimSpace(getenv(EnvDebug)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		} else {
			fmt.Fprintf(warn, "⚠️  Ignoring %s=%q: %v\n", EnvDebug, v, err)
		}
	}

	fs := flag.NewFlagSet("marque", flag.ContinueOnError)
	fs.SetOutput(warn)
	baseURL := fs.String("baseurl", "", "Site base URL")
	outDir := fs.String("out", "", "Output directory")
	contentDir := fs.String("content", "", "Content directory")
	compress := fs.Bool("compress", false, "Minify generated XML")
	monetizeFlag := fs.String("monetize", "", "Enable affiliate links (true|false)")
	host := fs.String("host", "", "Host/IP for serve to bind to")
	port := fs.String("port", "", "Port for serve")
	watch := fs.Bool("watch", false, "Rebuild when content changes")
	debug := fs.Bool("debug", false, "Log at debug level")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(warn, "⚠️  %v\n", err)
	}

	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *contentDir != "" {
		cfg.ContentDir = *contentDir
	}
	if *compress {
		cfg.CompressXML = true
	}
	if *monetizeFlag != "" {
		if b, err := strconv.ParseBool(*monetizeFlag); err == nil {
			cfg.Monetize = b
		}
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != "" {
		cfg.Port = *port
	}
	cfg.Watch = *watch
	if *debug {
		cfg.Debug = true
	}

	cfg.normalize()
	cfg.Build = LoadBuildConfig()
	return cfg
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultSiteURL
	}
	if c.AffiliateTag == "" {
		c.AffiliateTag = DefaultAffiliateTag
	}
	if c.RSSLimit <= 0 {
		c.RSSLimit = 30
	}
	if c.RSSLimit > 500 {
		c.RSSLimit = 500
	}
	if c.RelatedLimit <= 0 {
		c.RelatedLimit = 4
	}
	if c.RelatedLimit > 50 {
		c.RelatedLimit = 50
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	c.ContentDir = absPath(c.ContentDir)
	c.OutputDir = absPath(c.OutputDir)
	c.CacheDir = absPath(c.CacheDir)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// SetDevMode marks the config as running under `marque serve`.
func SetDevMode(cfg *Config, dev bool) {
	cfg.IsDev = dev
}

// FeedTTL returns the shared-cache lifetime for sitemap and RSS responses.
func (c *Config) FeedTTL() time.Duration {
	if c.Build == nil {
		return DefaultBuildConfig().FeedTTL
	}
	return c.Build.FeedTTL
}

// RobotsTTL returns the shared-cache lifetime for robots.txt.
func (c *Config) RobotsTTL() time.Duration {
	if c.Build == nil {
		return DefaultBuildConfig().RobotsTTL
	}
	return c.Build.RobotsTTL
}
