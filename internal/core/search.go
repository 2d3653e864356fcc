// Package core provides catalog search for deeptube.
//
// INVARIANTS:
// - Catalog-only, no ledger access
// - Results keep catalog order
package core

import (
	"strings"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/model"
)

const (
	defaultSearchLimit = 100
	maxSearchLimit     = 1000
)

// SearchFilter defines search criteria. Zero values match everything.
type SearchFilter struct {
	Query  string           // Case-insensitive name substring
	Zone   model.ZoneFilter // Empty or ZoneAll for every zone
	Status model.Status     // Empty for every status
	Limit  int              // Max results
}

// SearchResult is a matching country with its status label.
type SearchResult struct {
	Country model.Country `json:"country"`
	Label   *model.Label  `json:"label,omitempty"`
}

// Search filters the catalog by zone, status and name.
func Search(cat *catalog.Catalog, filter SearchFilter) []SearchResult {
	zone := filter.Zone
	if zone == "" {
		zone = model.ZoneAll
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))

	results := make([]SearchResult, 0)
	for _, c := range cat.Filter(zone) {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(c.Name), query) {
			continue
		}
		r := SearchResult{Country: c}
		if l, ok := StatusLabel(c); ok {
			r.Label = &l
		}
		results = append(results, r)
		if len(results) >= limit {
			break
		}
	}
	return results
}
