package content

import (
	"strings"
	"time"

	"github.com/marque-journal/marque/builder/models"
)

// Predicate decides whether a record may appear in public feeds.
type Predicate func(models.Record) bool

// Indexable is the base rule: not marked noindex and not a draft.
func Indexable(r models.Record) bool {
	if r.NoIndex {
		return false
	}
	status := strings.ToLower(strings.TrimSpace(r.Status))
	return status == "" || status == "published"
}

// IndexableCar additionally requires a title; untitled car stubs are placeholders.
func IndexableCar(r models.Record) bool {
	return Indexable(r) && strings.TrimSpace(r.Title) != ""
}

// IndexableColumn hides columns scheduled after now.
func IndexableColumn(now func() time.Time) Predicate {
	return func(r models.Record) bool {
		if !Indexable(r) {
			return false
		}
		if r.PublishedAt == nil || r.PublishedAt.IsZero() {
			return true
		}
		return !r.PublishedAt.After(now())
	}
}
