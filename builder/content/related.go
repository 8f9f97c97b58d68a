package content

import (
	"sort"

	"github.com/marque-journal/marque/builder/models"
	"github.com/marque-journal/marque/builder/utils"
)

// Related picks up to limit records from candidates to show next to current.
// Records sharing more tags rank first; ties are broken by a pseudo-random
// score seeded from both slugs, so the order is stable between builds.
func Related(candidates []models.Record, current models.Record, limit int) []models.Record {
	if limit <= 0 {
		return nil
	}

	own := make(map[string]struct{}, len(current.Tags))
	for _, t := range current.Tags {
		own[utils.TaxonomyKey(t)] = struct{}{}
	}
	seed := utils.Hash(current.Slug)

	type scored struct {
		rec    models.Record
		shared int
		jitter float64
	}
	pool := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if c.Slug == "" || c.Slug == current.Slug || !Indexable(c) {
			continue
		}
		shared := 0
		seen := make(map[string]struct{}, len(c.Tags))
		for _, t := range c.Tags {
			k := utils.TaxonomyKey(t)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if _, ok := own[k]; ok {
				shared++
			}
		}
		pool = append(pool, scored{rec: c, shared: shared, jitter: utils.SeedToUnit(seed, utils.Hash(c.Slug))})
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].shared != pool[j].shared {
			return pool[i].shared > pool[j].shared
		}
		if pool[i].jitter != pool[j].jitter {
			return pool[i].jitter < pool[j].jitter
		}
		return pool[i].rec.Slug < pool[j].rec.Slug
	})

	if len(pool) > limit {
		pool = pool[:limit]
	}
	out := make([]models.Record, len(pool))
	for i, s := range pool {
		out[i] = s.rec
	}
	return out
}

// RelatedItems maps records to the JSON shape served by the API.
func RelatedItems(siteBase string, c models.Collection, recs []models.Record) []models.RelatedItem {
	out := make([]models.RelatedItem, 0, len(recs))
	for _, r := range recs {
		tags := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			tags = append(tags, utils.TaxonomyKey(t))
		}
		out = append(out, models.RelatedItem{
			Slug:  r.Slug,
			Title: r.Title,
			URL:   utils.CanonicalURL(siteBase, utils.RecordPath(string(c), r.Slug)),
			Tags:  tags,
		})
	}
	return out
}
