// Package core provides the selection engine for deeptube.
// This includes the Selection Controller, the confirmation service,
// the selection ledger and the read-only catalog views.
//
// INVARIANTS:
// - The zone slot and the country slot are independent
// - Derived views are recomputed from current state on every call
// - Confirm has no side effects
package core

import (
	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/model"
)

// Controller owns the selection state of a single session.
// It is not safe for concurrent use; each session owns its own controller.
type Controller struct {
	catalog   *catalog.Catalog
	zone      model.ZoneFilter
	countryID string
}

// NewController creates a controller initialised with the catalog defaults.
func NewController(cat *catalog.Catalog) *Controller {
	d := cat.Defaults()
	return &Controller{
		catalog:   cat,
		zone:      d.Zone,
		countryID: d.Country,
	}
}

// Catalog returns the catalog the controller derives its views from.
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// SetZone replaces the zone slot. The country slot is left untouched.
func (c *Controller) SetZone(z model.ZoneFilter) {
	c.zone = z
}

// SetCountry replaces the country slot. The id is not checked.
func (c *Controller) SetCountry(id string) {
	c.countryID = id
}

// Zone returns the zone slot.
func (c *Controller) Zone() model.ZoneFilter {
	return c.zone
}

// CountryID returns the country slot.
func (c *Controller) CountryID() string {
	return c.countryID
}

// FilteredList returns the countries in the selected zone in catalog order.
func (c *Controller) FilteredList() []model.Country {
	return c.catalog.Filter(c.zone)
}

// Selected resolves the country slot against the whole catalog,
// so a selection survives zone changes.
func (c *Controller) Selected() (model.Country, bool) {
	return c.catalog.Lookup(c.countryID)
}

// Confirm evaluates the current selection. The first matching rule wins:
// nothing selected, blocked, upcoming, unavailable, active.
func (c *Controller) Confirm() Outcome {
	country, ok := c.Selected()
	if !ok {
		return NoSelection{}
	}

	switch country.Status {
	case model.StatusBlocked:
		return Rejected{Reason: ReasonBlocked}
	case model.StatusUpcoming:
		return Deferred{AvailableFrom: country.AvailableFrom}
	case model.StatusUnavailable:
		return Deferred{Reason: ReasonNotYetAvailable}
	default:
		return Accepted{CountryID: country.ID, Name: country.Name}
	}
}

// ZoneHint returns the hint shown under the zone chooser.
func (c *Controller) ZoneHint() string {
	return c.catalog.Hint(c.zone)
}

// Notes returns the footer notes for the selected zone.
func (c *Controller) Notes() []string {
	return c.catalog.Notes(c.zone)
}

// Detail is the detail panel for the current selection.
type Detail struct {
	Country model.Country `json:"country"`
	Label   *model.Label  `json:"label,omitempty"`
	// InFilter is false when the selection lies outside the filtered list.
	InFilter bool `json:"in_filter"`
}

// Detail returns the detail panel, or false when nothing resolves.
func (c *Controller) Detail() (Detail, bool) {
	country, ok := c.Selected()
	if !ok {
		return Detail{}, false
	}
	d := Detail{
		Country:  country,
		InFilter: c.zone.Matches(country.Zone),
	}
	if l, ok := StatusLabel(country); ok {
		d.Label = &l
	}
	return d, true
}
