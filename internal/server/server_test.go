package server

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marque-journal/marque/builder/config"
	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/services"
	"github.com/marque-journal/marque/builder/services/mocks"
	"github.com/marque-journal/marque/builder/testutil"
)

func newSampleServer(t *testing.T, mutate func(*config.Config)) (*Server, afero.Fs) {
	t.Helper()
	cfg := testutil.CreateSampleConfig()
	if mutate != nil {
		mutate(cfg)
	}
	fs := testutil.CreateTestFilesystemWithContent(testutil.SampleContent)
	feeds := services.NewFeedService(cfg, fs, testutil.DiscardLogger())
	require.NoError(t, feeds.Reload())
	srv, err := New(cfg, feeds, testutil.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, fs
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCacheControl(t *testing.T) {
	assert.Equal(t, "public, max-age=0, s-maxage=3600, stale-while-revalidate=3600", CacheControl(time.Hour))
	assert.Equal(t, "public, max-age=0, s-maxage=86400, stale-while-revalidate=86400", CacheControl(24*time.Hour))
	assert.Equal(t, "public, max-age=0, s-maxage=0, stale-while-revalidate=0", CacheControl(-time.Second))
}

func TestWriteXML(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteXML(rec, []byte("<urlset/>"), time.Hour)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, CacheControl(time.Hour), rec.Header().Get("Cache-Control"))
	assert.Equal(t, "<urlset/>", rec.Body.String())
}

func TestSitemapRoutes(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	h := srv.Handler()

	tests := []struct {
		path     string
		contains string
		excludes string
	}{
		{"/sitemap-cars.xml", "<loc>https://marque-journal.com/cars/porsche-964</loc>", "/cars/hidden"},
		{"/sitemap-columns.xml", "/columns/why-manuals-matter", "/columns/next-month"},
		{"/sitemap-guides.xml", "/guides/first-track-day", ""},
		{"/sitemap-heritage.xml", "/heritage/mercedes-300sl", ""},
		{"/sitemap-news.xml", "<urlset", "<url>"},
		{"/sitemap.xml", "<sitemapindex", "sitemap-news.xml"},
		{"/sitemap", "<loc>https://marque-journal.com/sitemap-cars.xml</loc>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
			assert.Equal(t, "public, max-age=0, s-maxage=3600, stale-while-revalidate=3600", rec.Header().Get("Cache-Control"))
			assert.True(t, strings.HasPrefix(rec.Body.String(), `<?xml version="1.0" encoding="UTF-8"?>`))
			assert.Contains(t, rec.Body.String(), tt.contains)
			if tt.excludes != "" {
				assert.NotContains(t, rec.Body.String(), tt.excludes)
			}
			assert.NotEmpty(t, rec.Header().Get("ETag"))
			assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
		})
	}

	assert.Equal(t, http.StatusNotFound, get(t, h, "/sitemap-boats.xml").Code)
}

func TestRobots(t *testing.T) {
	srv, _ := newSampleServer(t, func(c *config.Config) { c.BaseURL = "http://localhost:3000" })
	rec := get(t, srv.Handler(), "/robots.txt")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "public, max-age=0, s-maxage=86400, stale-while-revalidate=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "User-agent: *\nAllow: /\nDisallow: /api/\nDisallow: /_internal/\n\n"+
		"Sitemap: http://localhost:3000/sitemap\nSitemap: http://localhost:3000/sitemap.xml\n", rec.Body.String())
}

func TestRSSRoute(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	rec := get(t, srv.Handler(), "/rss.xml")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<link>https://marque-journal.com/columns/why-manuals-matter</link>")
}

func TestETagRevalidation(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	h := srv.Handler()

	first := get(t, h, "/sitemap-cars.xml")
	require.Equal(t, http.StatusOK, first.Code)
	tag := first.Header().Get("ETag")

	second := get(t, h, "/sitemap-cars.xml", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())

	third := get(t, h, "/sitemap-cars.xml", "If-None-Match", `"stale"`)
	assert.Equal(t, http.StatusOK, third.Code)
}

func TestGzip(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	rec := get(t, srv.Handler(), "/sitemap-cars.xml", "Accept-Encoding", "gzip")

	require.Equal(t, http.StatusOK, rec.Code)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		// Bodies below the gzip threshold are sent as-is.
		assert.Contains(t, rec.Body.String(), "<urlset")
		return
	}
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/cars/porsche-964")
}

func TestRequestIDPassthrough(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	h := srv.Handler()

	assert.Equal(t, "abc123", get(t, h, "/robots.txt", HeaderRequestID, "abc123").Header().Get(HeaderRequestID))

	minted := get(t, h, "/robots.txt", HeaderRequestID, "has spaces").Header().Get(HeaderRequestID)
	assert.NotEqual(t, "has spaces", minted)
	assert.Len(t, minted, 21)
}

func TestStructuredDataRoute(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	h := srv.Handler()

	rec := get(t, h, "/api/structured-data/columns/why-manuals-matter")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/ld+json", rec.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "https://schema.org", doc["@context"])
	graph, ok := doc["@graph"].([]any)
	require.True(t, ok)
	article := graph[0].(map[string]any)
	assert.Equal(t, "Article", article["@type"])
	assert.Equal(t, "Why Manuals Still Matter", article["headline"])

	for _, path := range []string{
		"/api/structured-data/columns/nope",
		"/api/structured-data/boats/porsche-964",
		"/api/structured-data/columns/next-month",
		"/api/structured-data/cars/placeholder",
		"/api/structured-data/cars/hidden",
	} {
		assert.Equal(t, http.StatusNotFound, get(t, h, path).Code, path)
	}
}

func TestRelatedRoute(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	h := srv.Handler()

	rec := get(t, h, "/api/related/cars/porsche-964?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items []models.RelatedItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "bmw-e30-m3", resp.Items[0].Slug)

	for _, bad := range []string{"0", "-2", "many"} {
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/related/cars/porsche-964?limit="+bad).Code, bad)
	}
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/related/cars/unknown").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/related/cars/hidden").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/related/columns/next-month").Code)
}

func TestRelatedLimitIsCapped(t *testing.T) {
	feeds := mocks.NewMockFeedService()
	feeds.RelatedItems["cars/porsche-964"] = []models.RelatedItem{{Slug: "a"}}
	srv, err := New(testutil.CreateSampleConfig(), feeds, testutil.DiscardLogger())
	require.NoError(t, err)

	rec := get(t, srv.Handler(), "/api/related/cars/porsche-964?limit=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxRelatedLimit, feeds.LastLimit)
}

func TestOutboundRedirect(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	h := srv.Handler()

	rec := get(t, h, "/api/out/detailing-kit")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://www.amazon.co.jp/dp/B000X?tag=marque-test-22", rec.Header().Get("Location"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/out/unknown").Code)
}

func TestOutboundDisabled(t *testing.T) {
	srv, _ := newSampleServer(t, func(c *config.Config) { c.Monetize = false })
	assert.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/api/out/detailing-kit").Code)
}

func TestAPIRateLimit(t *testing.T) {
	srv, _ := newSampleServer(t, func(c *config.Config) {
		c.Build.APIRateLimit = 0.001
		c.Build.APIRateBurst = 2
	})
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusFound, get(t, h, "/api/out/detailing-kit").Code)
	}
	rec := get(t, h, "/api/out/detailing-kit")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Feeds are not rate limited.
	assert.Equal(t, http.StatusOK, get(t, h, "/robots.txt").Code)
}

func TestRenderErrors(t *testing.T) {
	feeds := mocks.NewMockFeedService()
	feeds.Err = errors.New("disk on fire")
	srv, err := New(testutil.CreateSampleConfig(), feeds, testutil.DiscardLogger())
	require.NoError(t, err)

	rec := get(t, srv.Handler(), "/rss.xml")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestInvalidStructuredDataIsNotFound(t *testing.T) {
	feeds := mocks.NewMockFeedService()
	feeds.Err = fmt.Errorf("columns/untitled: %w", models.ErrInvalidStructuredData)
	srv, err := New(testutil.CreateSampleConfig(), feeds, testutil.DiscardLogger())
	require.NoError(t, err)

	rec := get(t, srv.Handler(), "/api/structured-data/columns/untitled")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "invalid structured data")
}

func TestCacheKey(t *testing.T) {
	srv, _ := newSampleServer(t, nil)

	plain := srv.cacheKey(httptest.NewRequest(http.MethodGet, "/sitemap-cars.xml", nil))
	tracked := srv.cacheKey(httptest.NewRequest(http.MethodGet, "/sitemap-cars.xml?utm_source=x", nil))
	assert.Equal(t, plain, tracked, "query strings should share one cache entry")

	require.NoError(t, srv.Reload(context.Background()))
	reloaded := srv.cacheKey(httptest.NewRequest(http.MethodGet, "/sitemap-cars.xml", nil))
	assert.NotEqual(t, plain, reloaded, "a reload should move to fresh keys")
}

// slowIndexFeeds holds the first SitemapIndex render after it has read its
// body, until release is closed.
type slowIndexFeeds struct {
	*mocks.MockFeedService
	started chan struct{}
	release chan struct{}
	held    atomic.Bool
}

func (f *slowIndexFeeds) SitemapIndex() ([]byte, error) {
	doc, err := f.MockFeedService.SitemapIndex()
	if f.held.CompareAndSwap(false, true) {
		close(f.started)
		<-f.release
	}
	return doc, err
}

func TestRenderStraddlingReloadIsNotServed(t *testing.T) {
	mock := mocks.NewMockFeedService()
	mock.Index = []byte("<sitemapindex>before</sitemapindex>")
	feeds := &slowIndexFeeds{
		MockFeedService: mock,
		started:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	srv, err := New(testutil.CreateSampleConfig(), feeds, testutil.DiscardLogger())
	require.NoError(t, err)
	h := srv.Handler()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- get(t, h, "/sitemap.xml") }()
	<-feeds.started

	mock.Index = []byte("<sitemapindex>after</sitemapindex>")
	require.NoError(t, srv.Reload(context.Background()))
	close(feeds.release)

	stale := <-done
	assert.Contains(t, stale.Body.String(), "before")

	// Wait until the straddling render's body has landed in the cache.
	oldKey := "0|/sitemap.xml"
	require.Eventually(t, func() bool {
		_, err := srv.bodies.Get(context.Background(), oldKey)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	rec := get(t, h, "/sitemap.xml")
	assert.Contains(t, rec.Body.String(), "after")
}

func TestReloadPicksUpContent(t *testing.T) {
	srv, fs := newSampleServer(t, nil)
	h := srv.Handler()

	require.Equal(t, http.StatusOK, get(t, h, "/sitemap-heritage.xml").Code)

	require.NoError(t, afero.WriteFile(fs, "content/heritage.json",
		[]byte(`[{"slug": "jaguar-e-type", "title": "E-Type"}]`), 0644))
	require.NoError(t, srv.Reload(context.Background()))

	rec := get(t, h, "/sitemap-heritage.xml")
	assert.Contains(t, rec.Body.String(), "/heritage/jaguar-e-type")
	assert.NotContains(t, rec.Body.String(), "mercedes-300sl")
}

func TestEventsStream(t *testing.T) {
	srv, _ := newSampleServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Close()

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	line, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: connected\n", line)

	require.Eventually(t, func() bool { return srv.hub.count() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, srv.Reload(context.Background()))

	for {
		line, err = lines.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) != "" {
			break
		}
	}
	assert.Equal(t, "data: reload\n", line)
}
