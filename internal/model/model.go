// Package model defines the core domain models for deeptube.
// Countries, zones and statuses form a closed, read-only catalog;
// selection records are the only entities written at runtime.
package model

import (
	"time"
)

// Zone is one of the fixed zone tags a country belongs to.
type Zone string

const (
	ZoneOS  Zone = "ОСЬ"
	ZoneNZV Zone = "НЗВ"
	ZoneOSI Zone = "ОСИ"
)

// AllZones lists the defined zone tags in display order.
var AllZones = []Zone{ZoneOS, ZoneNZV, ZoneOSI}

// Valid reports whether z is one of the defined zone tags.
func (z Zone) Valid() bool {
	switch z {
	case ZoneOS, ZoneNZV, ZoneOSI:
		return true
	}
	return false
}

// ZoneFilter is either ZoneAll or a zone tag.
type ZoneFilter string

// ZoneAll disables zone filtering.
const ZoneAll ZoneFilter = "all"

// FilterFor returns the filter selecting a single zone.
func FilterFor(z Zone) ZoneFilter {
	return ZoneFilter(z)
}

// Matches reports whether a country in zone z passes the filter.
func (f ZoneFilter) Matches(z Zone) bool {
	return f == ZoneAll || Zone(f) == z
}

// Zone returns the tag behind the filter and false for ZoneAll.
func (f ZoneFilter) Zone() (Zone, bool) {
	if f == ZoneAll {
		return "", false
	}
	return Zone(f), true
}

// Valid reports whether f is ZoneAll or a defined zone tag.
func (f ZoneFilter) Valid() bool {
	return f == ZoneAll || Zone(f).Valid()
}

// Status is the availability status of a country.
type Status string

const (
	StatusActive      Status = "active"
	StatusBlocked     Status = "blocked"
	StatusUpcoming    Status = "upcoming"
	StatusUnavailable Status = "unavailable"
)

// AllStatuses lists the defined statuses.
var AllStatuses = []Status{StatusActive, StatusBlocked, StatusUpcoming, StatusUnavailable}

// Valid reports whether s is a defined status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusBlocked, StatusUpcoming, StatusUnavailable:
		return true
	}
	return false
}

// Country is a catalog entry. Entries are never mutated after load.
// AvailableFrom is set if and only if Status is StatusUpcoming.
type Country struct {
	ID            string `json:"id" yaml:"id" validate:"required"`
	Name          string `json:"name" yaml:"name" validate:"required"`
	Zone          Zone   `json:"zone" yaml:"zone" validate:"zone"`
	Status        Status `json:"status" yaml:"status" validate:"status"`
	AvailableFrom string `json:"available_from,omitempty" yaml:"available_from,omitempty" validate:"required_if=Status upcoming,excluded_unless=Status upcoming"`
}

// Pickable reports whether the country can be chosen in the interactive picker.
func (c Country) Pickable() bool {
	return c.Status == StatusActive
}

// ZoneInfo describes a zone in the zone chooser.
type ZoneInfo struct {
	Tag    Zone   `json:"tag" yaml:"tag" validate:"zone"`
	Hint   string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Listed bool   `json:"listed" yaml:"listed"`
}

// Note is a footer line. A note with an empty Zone is always shown.
type Note struct {
	Text string `json:"text" yaml:"text" validate:"required"`
	Zone Zone   `json:"zone,omitempty" yaml:"zone,omitempty" validate:"omitempty,zone"`
}

// Defaults is the initial selection state of a new session.
type Defaults struct {
	Zone    ZoneFilter `json:"zone" yaml:"zone" validate:"required"`
	Country string     `json:"country" yaml:"country" validate:"required"`
}

// LabelKind classifies a status label.
type LabelKind string

const (
	LabelBlocked     LabelKind = "blocked"
	LabelUpcoming    LabelKind = "upcoming"
	LabelUnavailable LabelKind = "unavailable"
)

// Label is the status decoration shown next to a country.
type Label struct {
	Kind LabelKind `json:"kind"`
	Text string    `json:"text"`
}

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is a single transient message for the user.
type Notification struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// RecordState represents the state of a selection record.
type RecordState string

const (
	RecordStateCurrent    RecordState = "current"
	RecordStateSuperseded RecordState = "superseded"
)

// SelectionRecord is an accepted confirmation stored in the ledger.
type SelectionRecord struct {
	ID          string      `json:"id"` // UUID
	Account     string      `json:"account"`
	CountryID   string      `json:"country_id"`
	CountryName string      `json:"country_name"`
	Zone        Zone        `json:"zone"`
	ConfirmedAt time.Time   `json:"confirmed_at"`
	State       RecordState `json:"state"`
}
