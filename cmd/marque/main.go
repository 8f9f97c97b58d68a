package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/run"
	"github.com/marque-journal/marque/builder/utils"
	"github.com/marque-journal/marque/internal/clean"
	newrecord "github.com/marque-journal/marque/internal/new"
	"github.com/marque-journal/marque/internal/scaffold"
	"github.com/marque-journal/marque/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "build":
		err = run.Run(ctx, args)
	case "serve":
		cfg := config.Load(args)
		config.SetDevMode(cfg, true)
		err = server.Run(ctx, cfg, newLogger(cfg))
	case "clean":
		err = runClean(args)
	case "init":
		_, err = scaffold.Run(afero.NewOsFs(), ".")
	case "new":
		err = runNew(args)
	case "key":
		err = runKey(args)
	case "cache":
		err = handleCacheCommand(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runClean(args []string) error {
	cleanCache := false
	var rest []string
	for _, a := range args {
		if a == "--cache" || a == "-cache" {
			cleanCache = true
			continue
		}
		rest = append(rest, a)
	}
	wait, err := clean.Run(config.Load(rest), cleanCache)
	if err != nil {
		return err
	}
	wait()
	return nil
}

func runNew(args []string) error {
	cfg := config.Load(nil)
	path, slug, err := newrecord.Run(afero.NewOsFs(), cfg, args)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Added draft '%s' to %s\n", slug, path)
	return nil
}

// runKey prints the URL keys a label maps to, for checking tag URLs.
func runKey(args []string) error {
	if len(args) < 1 {
		return errors.New(`usage: marque key "Label"`)
	}
	for _, label := range args {
		fmt.Printf("%s\n  slug:     %q\n  taxonomy: %s\n  stable:   %s\n",
			label, utils.ToSlug(label), utils.TaxonomyKey(label), utils.StableKey(label, "tag"))
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: marque <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  build                     Generate sitemaps, robots.txt, RSS and JSON-LD into the output dir")
	fmt.Println("  serve                     Serve feeds and APIs with hot content reload")
	fmt.Println("  clean [--cache]           Remove the output dir (and the build cache)")
	fmt.Println("  init                      Create marque.yaml and empty content files")
	fmt.Println("  new <collection> <title>  Append a draft record to a collection")
	fmt.Println("  key <label>...            Show the slug and taxonomy key for labels")
	fmt.Println("  cache <subcommand>        Inspect or maintain the build cache")
	fmt.Println("  help                      Show this help message")
	fmt.Println("\nFlags for build and serve:")
	fmt.Println("  -baseurl <url>            Site base URL (overrides MARQUE_SITE_URL)")
	fmt.Println("  -content <dir>            Content directory")
	fmt.Println("  -out <dir>                Output directory")
	fmt.Println("  -compress                 Minify generated XML")
	fmt.Println("  -monetize true|false      Toggle affiliate links")
	fmt.Println("  -watch                    Rebuild when content changes (build)")
	fmt.Println("  -host, -port              Bind address (serve)")
	fmt.Println("  -debug                    Log at debug level (or MARQUE_DEBUG=1)")
}
