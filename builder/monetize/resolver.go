package monetize

import (
	"sync/atomic"

	"github.com/marque-journal/marque/builder/models"
)

// Resolver answers monetization lookups for the current table and settings.
// The table can be swapped on content reload; lookups never block.
type Resolver struct {
	enabled bool
	tag     string
	table   atomic.Pointer[Table]
}

func NewResolver(table *Table, enabled bool, tag string) *Resolver {
	r := &Resolver{enabled: enabled, tag: tag}
	r.table.Store(table)
	return r
}

// Enabled reports whether affiliate links are switched on.
func (r *Resolver) Enabled() bool { return r.enabled }

// Swap replaces the table.
func (r *Resolver) Swap(t *Table) { r.table.Store(t) }

// Resolve returns the config for key with PrimaryURL tagged. ok is false when
// monetization is off or the key is unknown.
func (r *Resolver) Resolve(key string) (cfg models.MonetizeConfig, ok bool) {
	if !r.enabled || key == "" {
		return models.MonetizeConfig{}, false
	}
	cfg, ok = r.table.Load().Lookup(key)
	if !ok {
		return models.MonetizeConfig{}, false
	}
	cfg.PrimaryURL = WithAmazonTag(cfg.PrimaryURL, r.tag)
	return cfg, true
}

// Link tags an arbitrary outbound href when monetization is on.
func (r *Resolver) Link(href string) string {
	if !r.enabled {
		return href
	}
	return WithAmazonTag(href, r.tag)
}
