package utils

import (
	"bytes"
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/xml"
)

const (
	MimeXML = "application/xml"
	MimeRSS = "application/rss+xml"
)

// NewXMLMinifier returns a minifier for sitemap and RSS documents.
func NewXMLMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(MimeXML, xml.Minify)
	m.AddFunc(MimeRSS, xml.Minify)
	return m
}

// MinifyXML strips insignificant whitespace from doc.
func MinifyXML(m *minify.M, mime string, doc []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(doc))
	if err := m.Minify(mime, &out, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("minify %s: %w", mime, err)
	}
	return out.Bytes(), nil
}
