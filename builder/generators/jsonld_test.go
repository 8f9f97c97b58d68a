package generators

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/marque-journal/marque/builder/models"
)

var testSite = SiteInfo{
	BaseURL:    "https://marque-journal.com",
	Name:       "Marque Journal",
	Language:   "en",
	AuthorName: "Editorial Desk",
	AuthorURL:  "https://marque-journal.com/about",
}

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, b)
	}
	return m
}

func TestMarshalJSONLDSingle(t *testing.T) {
	b, err := MarshalJSONLD(ForSite(testSite))
	if err != nil {
		t.Fatalf("MarshalJSONLD() error = %v", err)
	}
	m := decode(t, b)
	if m["@context"] != "https://schema.org" || m["@type"] != "WebSite" {
		t.Errorf("header = %v / %v", m["@context"], m["@type"])
	}
	if m["name"] != "Marque Journal" {
		t.Errorf("name = %v", m["name"])
	}
	if !strings.HasPrefix(string(b), `{"@context":"https://schema.org","@type":"WebSite",`) {
		t.Errorf("unexpected key order: %s", b)
	}
}

func TestMarshalJSONLDRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		node models.StructuredData
	}{
		{"article without headline", models.Article{URL: "https://x/a"}},
		{"article relative url", models.Article{Headline: "h", URL: "/a"}},
		{"article long headline", models.Article{Headline: strings.Repeat("a", 111), URL: "https://x/a"}},
		{"product without name", models.Product{URL: "https://x/p"}},
		{"empty breadcrumbs", models.BreadcrumbList{}},
		{"breadcrumb gap", models.BreadcrumbList{ItemListElement: []models.ListItem{{Position: 2, Name: "x"}}}},
		{"website relative", models.WebSite{Name: "n", URL: "x"}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalJSONLD(tt.node)
			if !errors.Is(err, models.ErrInvalidStructuredData) {
				t.Errorf("error = %v, want ErrInvalidStructuredData", err)
			}
		})
	}

	if _, err := MarshalJSONLD(); !errors.Is(err, models.ErrInvalidStructuredData) {
		t.Errorf("MarshalJSONLD() with no nodes error = %v", err)
	}
}

func TestForRecordCar(t *testing.T) {
	nodes := ForRecord(testSite, models.Cars, models.Record{
		Slug:  "porsche-964",
		Title: "Porsche 911 (964)",
		Maker: "Porsche",
		Model: "911 Carrera 2",
		Image: "/img/964.jpg",
	})
	b, err := MarshalJSONLD(nodes...)
	if err != nil {
		t.Fatalf("MarshalJSONLD() error = %v", err)
	}

	m := decode(t, b)
	graph, ok := m["@graph"].([]any)
	if !ok || len(graph) != 2 {
		t.Fatalf("@graph = %v", m["@graph"])
	}
	product := graph[0].(map[string]any)
	if product["@type"] != "Product" {
		t.Errorf("@type = %v", product["@type"])
	}
	if product["url"] != "https://marque-journal.com/cars/porsche-964" {
		t.Errorf("url = %v", product["url"])
	}
	brand := product["brand"].(map[string]any)
	if brand["@type"] != "Brand" || brand["name"] != "Porsche" {
		t.Errorf("brand = %v", brand)
	}
	if img := product["image"].([]any); img[0] != "https://marque-journal.com/img/964.jpg" {
		t.Errorf("image = %v", img)
	}

	crumbs := graph[1].(map[string]any)
	items := crumbs["itemListElement"].([]any)
	if len(items) != 3 {
		t.Fatalf("breadcrumbs = %v", items)
	}
	if items[1].(map[string]any)["name"] != "Cars" {
		t.Errorf("collection crumb = %v", items[1])
	}
}

func TestForRecordArticle(t *testing.T) {
	long := strings.Repeat("Long headline ", 12)
	nodes := ForRecord(testSite, models.Columns, models.Record{
		Slug:        "on-patina",
		Title:       long,
		Summary:     "A **short** note.",
		PublishedAt: day("2024-04-01"),
		UpdatedAt:   day("2024-04-03"),
	})

	article, ok := nodes[0].(models.Article)
	if !ok {
		t.Fatalf("primary node is %T, want Article", nodes[0])
	}
	if n := len([]rune(article.Headline)); n > maxHeadline {
		t.Errorf("headline has %d runes", n)
	}
	if article.DatePublished != "2024-04-01" || article.DateModified != "2024-04-03" {
		t.Errorf("dates = %s / %s", article.DatePublished, article.DateModified)
	}
	if article.Description != "A short note." {
		t.Errorf("Description = %q", article.Description)
	}
	if article.Author == nil || article.Author.URL != testSite.AuthorURL {
		t.Errorf("Author = %+v, want site author", article.Author)
	}
	if _, err := MarshalJSONLD(nodes...); err != nil {
		t.Errorf("MarshalJSONLD() error = %v", err)
	}
}
