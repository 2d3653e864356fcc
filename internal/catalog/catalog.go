// Package catalog provides the static country catalog.
//
// INVARIANTS:
// - Loaded once, read-only afterwards
// - Catalog order is preserved by every view
// - Every accessor returns copies, never the backing slices
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/deeptube/deeptube/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

var (
	ErrUnknownZone   = errors.New("unknown zone")
	ErrUnknownStatus = errors.New("unknown status")
)

// document is the on-disk layout of a catalog asset.
type document struct {
	Title     string           `yaml:"title" validate:"required"`
	Prompt    string           `yaml:"prompt"`
	AllHint   string           `yaml:"all_hint"`
	Defaults  model.Defaults   `yaml:"defaults"`
	Zones     []model.ZoneInfo `yaml:"zones" validate:"required,unique=Tag,dive"`
	Countries []model.Country  `yaml:"countries" validate:"required,min=1,unique=ID,dive"`
	Notes     []model.Note     `yaml:"notes" validate:"dive"`
}

// Catalog is an immutable, validated country catalog.
// It is safe for concurrent read-only use by any number of sessions.
type Catalog struct {
	title     string
	prompt    string
	allHint   string
	defaults  model.Defaults
	zones     []model.ZoneInfo
	countries []model.Country
	notes     []model.Note
	byID      map[string]int
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Load(embedded)
})

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return loadDefault()
}

// LoadFile loads and validates a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Load(data)
}

// Load parses and validates a catalog from YAML.
func Load(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := newValidator().Validate(&doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		title:     doc.Title,
		prompt:    doc.Prompt,
		allHint:   doc.AllHint,
		defaults:  doc.Defaults,
		zones:     doc.Zones,
		countries: doc.Countries,
		notes:     doc.Notes,
		byID:      make(map[string]int, len(doc.Countries)),
	}
	for i, country := range doc.Countries {
		c.byID[country.ID] = i
	}
	return c, nil
}

// Title returns the page title.
func (c *Catalog) Title() string { return c.title }

// Prompt returns the line shown under the title.
func (c *Catalog) Prompt() string { return c.prompt }

// Defaults returns the initial selection state.
func (c *Catalog) Defaults() model.Defaults { return c.defaults }

// Len returns the number of countries.
func (c *Catalog) Len() int { return len(c.countries) }

// Countries returns every country in catalog order.
func (c *Catalog) Countries() []model.Country {
	return slices.Clone(c.countries)
}

// Filter returns the countries passing f in catalog order.
// ZoneAll returns the whole catalog.
func (c *Catalog) Filter(f model.ZoneFilter) []model.Country {
	if f == model.ZoneAll {
		return c.Countries()
	}
	var out []model.Country
	for _, country := range c.countries {
		if f.Matches(country.Zone) {
			out = append(out, country)
		}
	}
	return out
}

// Lookup finds a country by id across the whole catalog.
func (c *Catalog) Lookup(id string) (model.Country, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Country{}, false
	}
	return c.countries[i], true
}

// Zones returns every zone descriptor.
func (c *Catalog) Zones() []model.ZoneInfo {
	return slices.Clone(c.zones)
}

// ListedZones returns the zones offered in the zone chooser.
func (c *Catalog) ListedZones() []model.ZoneInfo {
	var out []model.ZoneInfo
	for _, z := range c.zones {
		if z.Listed {
			out = append(out, z)
		}
	}
	return out
}

// Zone returns the descriptor for tag.
func (c *Catalog) Zone(tag model.Zone) (model.ZoneInfo, bool) {
	for _, z := range c.zones {
		if z.Tag == tag {
			return z, true
		}
	}
	return model.ZoneInfo{}, false
}

// Hint returns the hint shown under the zone chooser for f.
func (c *Catalog) Hint(f model.ZoneFilter) string {
	tag, ok := f.Zone()
	if !ok {
		return c.allHint
	}
	z, _ := c.Zone(tag)
	return z.Hint
}

// Notes returns the footer notes visible under f.
func (c *Catalog) Notes(f model.ZoneFilter) []string {
	var out []string
	for _, n := range c.notes {
		if n.Zone == "" || model.ZoneFilter(n.Zone) == f {
			out = append(out, n.Text)
		}
	}
	return out
}

// ParseZoneFilter parses user input into a zone filter.
func ParseZoneFilter(s string) (model.ZoneFilter, error) {
	f := model.ZoneFilter(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownZone, s)
	}
	return f, nil
}

// ParseStatus parses user input into a status.
func ParseStatus(s string) (model.Status, error) {
	st := model.Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}
