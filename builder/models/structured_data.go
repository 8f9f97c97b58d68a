package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidStructuredData is returned when a JSON-LD shape fails validation.
var ErrInvalidStructuredData = errors.New("invalid structured data")

// StructuredData is the closed set of schema.org shapes the site emits.
// Each shape validates its own required fields before it is serialized.
type StructuredData interface {
	SchemaType() string
	Validate() error
}

type Person struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Organization struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Logo string `json:"logo,omitempty"`
}

type Article struct {
	Headline      string        `json:"headline"`
	Description   string        `json:"description,omitempty"`
	URL           string        `json:"url"`
	Image         []string      `json:"image,omitempty"`
	DatePublished string        `json:"datePublished,omitempty"`
	DateModified  string        `json:"dateModified,omitempty"`
	Author        *Person       `json:"author,omitempty"`
	Publisher     *Organization `json:"publisher,omitempty"`
	Keywords      []string      `json:"keywords,omitempty"`
}

func (Article) SchemaType() string { return "Article" }

func (a Article) Validate() error {
	if a.Headline == "" {
		return fmt.Errorf("%w: Article.headline is required", ErrInvalidStructuredData)
	}
	if len([]rune(a.Headline)) > 110 {
		return fmt.Errorf("%w: Article.headline exceeds 110 characters", ErrInvalidStructuredData)
	}
	return requireAbsolute("Article.url", a.URL)
}

type Brand struct {
	Name string `json:"name"`
}

type Product struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url"`
	Image       []string `json:"image,omitempty"`
	Brand       *Brand   `json:"brand,omitempty"`
	Model       string   `json:"model,omitempty"`
}

func (Product) SchemaType() string { return "Product" }

func (p Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: Product.name is required", ErrInvalidStructuredData)
	}
	return requireAbsolute("Product.url", p.URL)
}

type ListItem struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item,omitempty"`
}

type BreadcrumbList struct {
	ItemListElement []ListItem `json:"itemListElement"`
}

func (BreadcrumbList) SchemaType() string { return "BreadcrumbList" }

func (b BreadcrumbList) Validate() error {
	if len(b.ItemListElement) == 0 {
		return fmt.Errorf("%w: BreadcrumbList needs at least one item", ErrInvalidStructuredData)
	}
	for i, it := range b.ItemListElement {
		if it.Position != i+1 {
			return fmt.Errorf("%w: BreadcrumbList position %d out of order", ErrInvalidStructuredData, it.Position)
		}
		if it.Name == "" {
			return fmt.Errorf("%w: BreadcrumbList item %d has no name", ErrInvalidStructuredData, it.Position)
		}
		if it.Item != "" {
			if err := requireAbsolute("BreadcrumbList.item", it.Item); err != nil {
				return err
			}
		}
	}
	return nil
}

type WebSite struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	InLanguage  string `json:"inLanguage,omitempty"`
}

func (WebSite) SchemaType() string { return "WebSite" }

func (w WebSite) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("%w: WebSite.name is required", ErrInvalidStructuredData)
	}
	return requireAbsolute("WebSite.url", w.URL)
}

func requireAbsolute(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalidStructuredData, field, raw)
	}
	return nil
}

// Nested nodes carry their own @type so consumers need no context to read them.

func (p Person) MarshalJSON() ([]byte, error) {
	type node Person
	return json.Marshal(struct {
		Type string `json:"@type"`
		node
	}{"Person", node(p)})
}

func (o Organization) MarshalJSON() ([]byte, error) {
	type node Organization
	return json.Marshal(struct {
		Type string `json:"@type"`
		node
	}{"Organization", node(o)})
}

func (b Brand) MarshalJSON() ([]byte, error) {
	type node Brand
	return json.Marshal(struct {
		Type string `json:"@type"`
		node
	}{"Brand", node(b)})
}

func (l ListItem) MarshalJSON() ([]byte, error) {
	type node ListItem
	return json.Marshal(struct {
		Type string `json:"@type"`
		node
	}{"ListItem", node(l)})
}
