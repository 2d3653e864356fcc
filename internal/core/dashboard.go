// Package core provides the Overview Dashboard for deeptube.
//
// INVARIANTS:
// - Read-only operations only
// - NO side effects
// - Human-readable summary
package core

import (
	"context"
	"time"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/model"
)

// Dashboard provides a read-only overview of the catalog and ledger.
type Dashboard struct {
	catalog *catalog.Catalog
	ledger  *Ledger
}

// NewDashboard creates a new dashboard. ledger may be nil.
func NewDashboard(cat *catalog.Catalog, ledger *Ledger) *Dashboard {
	return &Dashboard{
		catalog: cat,
		ledger:  ledger,
	}
}

// ZoneSummary counts the countries of one zone.
type ZoneSummary struct {
	Zone     model.Zone `json:"zone"`
	Total    int        `json:"total"`
	Pickable int        `json:"pickable"`
	Listed   bool       `json:"listed"`
}

// Overview contains the complete system overview.
type Overview struct {
	GeneratedAt time.Time `json:"generated_at"`

	// Catalog Summary
	TotalCountries int                  `json:"total_countries"`
	Pickable       int                  `json:"pickable"`
	ByStatus       map[model.Status]int `json:"by_status"`
	Zones          []ZoneSummary        `json:"zones"`

	// Ledger Summary
	LedgerEnabled   bool         `json:"ledger_enabled"`
	LedgerEncrypted bool         `json:"ledger_encrypted"`
	Ledger          *LedgerStats `json:"ledger,omitempty"`
}

// GetOverview returns a complete read-only overview.
func (d *Dashboard) GetOverview(ctx context.Context) (*Overview, error) {
	o := &Overview{
		GeneratedAt: time.Now(),
		ByStatus:    make(map[model.Status]int, len(model.AllStatuses)),
	}

	for _, s := range model.AllStatuses {
		o.ByStatus[s] = 0
	}

	for _, c := range d.catalog.Countries() {
		o.TotalCountries++
		o.ByStatus[c.Status]++
		if c.Pickable() {
			o.Pickable++
		}
	}

	for _, z := range d.catalog.Zones() {
		zs := ZoneSummary{Zone: z.Tag, Listed: z.Listed}
		for _, c := range d.catalog.Filter(model.FilterFor(z.Tag)) {
			zs.Total++
			if c.Pickable() {
				zs.Pickable++
			}
		}
		o.Zones = append(o.Zones, zs)
	}

	if d.ledger != nil {
		stats, err := d.ledger.Stats(ctx)
		if err != nil {
			return nil, err
		}
		o.LedgerEnabled = true
		o.LedgerEncrypted = d.ledger.Encrypted()
		o.Ledger = stats
	}

	return o, nil
}
