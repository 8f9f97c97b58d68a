// Package server answers the feed artifacts over HTTP for `marque serve`.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/eko/gocache/lib/v4/cache"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/services"
	"github.com/marque-journal/marque/internal/watch"
)

// Server renders artifacts on demand and memoizes each body for its
// s-maxage, so a burst of crawler hits renders once.
type Server struct {
	cfg     *config.Config
	feeds   services.FeedService
	logger  *slog.Logger
	bodies  *cache.Cache[string]
	limiter *rate.Limiter
	hub     *reloadHub

	// gen is bumped on every successful Reload and prefixes cache keys, so
	// a render that straddles a reload lands under a key nobody reads.
	gen atomic.Uint64
}

// New wires a server around feeds. feeds must already be loaded.
func New(cfg *config.Config, feeds services.FeedService, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bc := cfg.Build
	if bc == nil {
		bc = config.DefaultBuildConfig()
	}

	ristrettoCache, err := ristretto.NewCache[string, string](&ristretto.Config[string, string]{
		NumCounters: 10_000,
		MaxCost:     64 << 20, // bytes of rendered bodies
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}

	return &Server{
		cfg:     cfg,
		feeds:   feeds,
		logger:  logger,
		bodies:  cache.New[string](ristretto_store.NewRistretto(ristrettoCache)),
		limiter: rate.NewLimiter(rate.Limit(bc.APIRateLimit), bc.APIRateBurst),
		hub:     newReloadHub(),
	}, nil
}

// Handler returns the full middleware chain. /events is kept outside the
// gzip layer so reload notifications are flushed as they happen.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/structured-data/{collection}/{slug}", s.handleStructuredData)
	api.HandleFunc("GET /api/related/{collection}/{slug}", s.handleRelated)
	api.HandleFunc("GET /api/out/{key}", s.handleOutbound)

	feeds := http.NewServeMux()
	s.registerFeeds(feeds)
	feeds.Handle("/api/", withRateLimit(s.limiter, api))

	root := http.NewServeMux()
	root.HandleFunc("GET /events", s.handleEvents)
	root.Handle("/", withGzip(feeds))

	return withRequestID(withLogging(s.logger, root))
}

// Reload re-reads content, drops memoized bodies and tells /events
// subscribers. A failed reload keeps serving the previous content.
func (s *Server) Reload(ctx context.Context) error {
	if err := s.feeds.Reload(); err != nil {
		return err
	}
	s.gen.Add(1)
	if err := s.bodies.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear response cache", "error", err)
	}
	s.hub.broadcast()
	return nil
}

// Close ends open event streams.
func (s *Server) Close() {
	s.hub.close()
}

// Run loads content from cfg.ContentDir, serves until ctx is cancelled and
// reloads whenever a content file changes.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	feeds := services.NewFeedService(cfg, afero.NewOsFs(), logger)
	if err := feeds.Reload(); err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	srv, err := New(cfg, feeds, logger)
	if err != nil {
		return err
	}

	bc := cfg.Build
	if bc == nil {
		bc = config.DefaultBuildConfig()
	}

	w, err := watch.New([]string{cfg.ContentDir}, bc.DebounceDuration, logger, func(e watch.Event) {
		if err := srv.Reload(ctx); err != nil {
			fmt.Printf("❌ Reload failed (%s): %v\n", e.Name, err)
			return
		}
		fmt.Printf("🔄 Content reloaded (%s)\n", e.Name)
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	w.Filter = watch.JSONFiles
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("content watcher stopped", "error", err)
		}
	}()

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("🌐 Serving on http://%s\n", addr)
		if cfg.Host == "0.0.0.0" {
			fmt.Println("   (Accessible on your local network)")
		}
		fmt.Println("   (Content reload notifications on /events)")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("\n🛑 Shutting down HTTP server...")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), bc.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Println("✅ Server stopped.")
	return nil
}
