package generators

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/utils"
)

const schemaContext = "https://schema.org"

// maxHeadline is the longest Article headline search engines accept.
const maxHeadline = 110

// SiteInfo is what structured data needs to know about the site itself.
type SiteInfo struct {
	BaseURL     string
	Name        string
	Description string
	Language    string
	AuthorName  string
	AuthorURL   string
}

// MarshalJSONLD validates every node and serializes them. One node becomes a
// single object; several are wrapped in an @graph. Nothing invalid is emitted.
func MarshalJSONLD(nodes ...models.StructuredData) ([]byte, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", models.ErrInvalidStructuredData)
	}

	typed := make([]json.RawMessage, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: nil node", models.ErrInvalidStructuredData)
		}
		if err := n.Validate(); err != nil {
			return nil, err
		}
		raw, err := withType(n)
		if err != nil {
			return nil, err
		}
		typed = append(typed, raw)
	}

	if len(typed) == 1 {
		return splice(typed[0], "@context", schemaContext)
	}
	return json.Marshal(struct {
		Context string            `json:"@context"`
		Graph   []json.RawMessage `json:"@graph"`
	}{schemaContext, typed})
}

func withType(n models.StructuredData) (json.RawMessage, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", n.SchemaType(), err)
	}
	return splice(body, "@type", n.SchemaType())
}

// splice prepends "key": value to a JSON object.
func splice(obj []byte, key, value string) ([]byte, error) {
	obj = bytes.TrimSpace(obj)
	if len(obj) < 2 || obj[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", models.ErrInvalidStructuredData)
	}
	k, _ := json.Marshal(key)
	v, _ := json.Marshal(value)

	var out bytes.Buffer
	out.Grow(len(obj) + len(k) + len(v) + 2)
	out.WriteByte('{')
	out.Write(k)
	out.WriteByte(':')
	out.Write(v)
	if rest := bytes.TrimSpace(obj[1:]); len(rest) > 0 && rest[0] != '}' {
		out.WriteByte(',')
	}
	out.Write(obj[1:])
	return out.Bytes(), nil
}

// ForRecord picks the structured data for a record page: cars are products,
// everything else is an article, and every page gets a breadcrumb trail.
func ForRecord(site SiteInfo, c models.Collection, r models.Record) []models.StructuredData {
	canonical := utils.CanonicalURL(site.BaseURL, utils.RecordPath(string(c), r.Slug))
	var images []string
	if r.Image != "" {
		images = []string{absolute(site.BaseURL, r.Image)}
	}

	var primary models.StructuredData
	if c == models.Cars {
		p := models.Product{
			Name:        productName(r),
			Description: plain(r.Summary),
			URL:         canonical,
			Image:       images,
			Model:       r.Model,
		}
		if r.Maker != "" {
			p.Brand = &models.Brand{Name: r.Maker}
		}
		primary = p
	} else {
		a := models.Article{
			Headline:    truncateRunes(strings.TrimSpace(r.Title), maxHeadline),
			Description: plain(r.Summary),
			URL:         canonical,
			Image:       images,
			Keywords:    r.Tags,
			Publisher:   &models.Organization{Name: site.Name, URL: site.BaseURL},
		}
		if t, ok := r.Published(); ok {
			a.DatePublished = utils.FormatDate(t)
		}
		if t, ok := r.LastModified(); ok {
			a.DateModified = utils.FormatDate(t)
		}
		author := r.Author
		if author == "" {
			author = site.AuthorName
		}
		if author != "" {
			a.Author = &models.Person{Name: author}
			if author == site.AuthorName {
				a.Author.URL = site.AuthorURL
			}
		}
		primary = a
	}

	return []models.StructuredData{primary, breadcrumbs(site, c, r, canonical)}
}

// ForSite describes the site as a whole.
func ForSite(site SiteInfo) models.StructuredData {
	return models.WebSite{
		Name:        site.Name,
		URL:         site.BaseURL,
		Description: site.Description,
		InLanguage:  site.Language,
	}
}

func breadcrumbs(site SiteInfo, c models.Collection, r models.Record, canonical string) models.BreadcrumbList {
	name := r.Title
	if name == "" {
		name = r.Slug
	}
	return models.BreadcrumbList{ItemListElement: []models.ListItem{
		{Position: 1, Name: "Home", Item: utils.CanonicalURL(site.BaseURL, "/")},
		{Position: 2, Name: collectionLabel(c), Item: utils.CanonicalURL(site.BaseURL, "/"+string(c))},
		{Position: 3, Name: name, Item: canonical},
	}}
}

func collectionLabel(c models.Collection) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func productName(r models.Record) string {
	if t := strings.TrimSpace(r.Title); t != "" {
		return t
	}
	return strings.TrimSpace(strings.Join([]string{r.Maker, r.Model}, " "))
}

func absolute(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return utils.CanonicalURL(base, ref)
}

// plain drops the most common markdown markers from a one-paragraph summary.
func plain(md string) string {
	r := strings.NewReplacer("**", "", "__", "", "`", "", "#", "")
	return strings.Join(strings.Fields(r.Replace(md)), " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}
