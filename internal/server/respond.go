package server

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// CacheControl lets shared caches serve a response for ttl and keep serving
// it for another ttl while revalidating. Browsers always revalidate.
func CacheControl(ttl time.Duration) string {
	secs := int64(ttl / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("public, max-age=0, s-maxage=%d, stale-while-revalidate=%d", secs, secs)
}

// WriteXML writes a complete XML document with status 200.
func WriteXML(w http.ResponseWriter, doc []byte, ttl time.Duration) {
	writeBody(w, "application/xml", doc, ttl)
}

func writeBody(w http.ResponseWriter, contentType string, body []byte, ttl time.Duration) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", CacheControl(ttl))
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// etag is a strong validator derived from the body.
func etag(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// notModified reports whether the client already holds tag.
func notModified(r *http.Request, tag string) bool {
	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == tag || candidate == "*" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any, ttl time.Duration) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	if ttl > 0 {
		h.Set("Cache-Control", CacheControl(ttl))
	} else {
		h.Set("Cache-Control", "no-store")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	body, _ := json.Marshal(map[string]string{"error": msg})
	_, _ = w.Write(body)
}
