package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/eko/gocache/lib/v4/store"

	"github.com/marque-journal/marque/builder/feeds"
	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/services"
)

// maxRelatedLimit caps ?limit= on the related endpoint.
const maxRelatedLimit = 50

type renderFunc func() ([]byte, error)

func (s *Server) registerFeeds(mux *http.ServeMux) {
	feedTTL, robotsTTL := s.cfg.FeedTTL(), s.cfg.RobotsTTL()

	for _, f := range feeds.Definitions(s.cfg.Now) {
		c := f.Collection
		mux.HandleFunc("GET "+f.Path(), func(w http.ResponseWriter, r *http.Request) {
			s.serveCached(w, r, services.ContentTypeXML, feedTTL, func() ([]byte, error) {
				return s.feeds.Sitemap(c)
			})
		})
	}

	index := func(w http.ResponseWriter, r *http.Request) {
		s.serveCached(w, r, services.ContentTypeXML, feedTTL, s.feeds.SitemapIndex)
	}
	mux.HandleFunc("GET "+services.PathSitemapIndex, index)
	mux.HandleFunc("GET "+services.PathSitemapIndexAlt, index)

	mux.HandleFunc("GET "+services.PathRobots, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		s.serveCached(w, r, services.ContentTypeRobots, robotsTTL, func() ([]byte, error) {
			return s.feeds.Robots(), nil
		})
	})

	mux.HandleFunc("GET "+services.PathRSS, func(w http.ResponseWriter, r *http.Request) {
		s.serveCached(w, r, services.ContentTypeRSS, feedTTL, s.feeds.RSS)
	})
}

// serveCached answers from the response cache, rendering on a miss.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, contentType string, ttl time.Duration, render renderFunc) {
	key := s.cacheKey(r)

	var body []byte
	if cached, err := s.bodies.Get(r.Context(), key); err == nil {
		body = []byte(cached)
	} else {
		doc, err := render()
		if err != nil {
			s.renderFailed(w, r, err)
			return
		}
		body = doc
		if err := s.bodies.Set(r.Context(), key, string(doc),
			store.WithExpiration(ttl),
			store.WithCost(int64(len(doc))),
		); err != nil {
			s.logger.Warn("failed to cache response", "path", key, "error", err)
		}
	}

	tag := etag(body)
	w.Header().Set("ETag", tag)
	if notModified(r, tag) {
		w.Header().Set("Cache-Control", CacheControl(ttl))
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if contentType == services.ContentTypeXML {
		WriteXML(w, body, ttl)
		return
	}
	writeBody(w, contentType, body, ttl)
}

// cacheKey is the reload generation plus the request path. Cached routes
// take no query parameters, so the query is left out.
func (s *Server) cacheKey(r *http.Request) string {
	return fmt.Sprintf("%d|%s", s.gen.Load(), r.URL.Path)
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrInvalidStructuredData):
		s.logger.Warn("record has invalid structured data", "id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error("render failed", "id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func collectionParam(r *http.Request) (models.Collection, bool) {
	return models.ParseCollection(r.PathValue("collection"))
}

func (s *Server) handleStructuredData(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}
	slug := r.PathValue("slug")
	s.serveCached(w, r, services.ContentTypeJSONLD, s.cfg.FeedTTL(), func() ([]byte, error) {
		return s.feeds.StructuredData(c, slug)
	})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRelatedLimit)
	}

	items, err := s.feeds.Related(c, r.PathValue("slug"), limit)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items}, s.cfg.FeedTTL())
}

// handleOutbound redirects to the tagged partner URL for a monetize key.
func (s *Server) handleOutbound(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.feeds.Outbound(r.PathValue("key"))
	if !ok || cfg.PrimaryURL == "" {
		writeError(w, http.StatusNotFound, "no monetization config")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Robots-Tag", "noindex, nofollow")
	http.Redirect(w, r, cfg.PrimaryURL, http.StatusFound)
}
