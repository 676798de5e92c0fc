package domain

import (
	"errors"
	"fmt"
)

// NonUSRegion tags records that fall outside every known US state.
const NonUSRegion = "Non-US"

// UnknownSuperclass is used for classifications missing from the class mappings.
const UnknownSuperclass = "Unknown"

var (
	// ErrDataUnavailable is returned (wrapped) by every dataset loader when the
	// dataset cannot be read. It is fatal to initialization.
	ErrDataUnavailable = errors.New("landing data unavailable")

	// ErrInvalidYear marks a row whose year is missing or unparsable.
	ErrInvalidYear = errors.New("invalid landing year")

	// ErrMissingCoordinates marks a row without a usable latitude/longitude pair.
	ErrMissingCoordinates = errors.New("missing landing coordinates")
)

// RawLandingRow is the flat, string-typed form of one dataset row. Field tags
// match the column names of the classified CSV export and the property names
// of the GeoJSON export.
type RawLandingRow struct {
	Name       string `json:"name"       db:"name"`
	ID         string `json:"id"         db:"id"`
	NameType   string `json:"nametype"   db:"nametype"`
	RecClass   string `json:"recclass"   db:"recclass"`
	Mass       string `json:"mass (g)"   db:"mass"`
	Fall       string `json:"fall"       db:"fall"`
	Year       string `json:"year"       db:"year"`
	RecLat     string `json:"reclat"     db:"reclat"`
	RecLong    string `json:"reclong"    db:"reclong"`
	Superclass string `json:"superclass" db:"superclass"`
	State      string `json:"state"      db:"state"`
}

// LandingRecord is one meteorite landing event. Records are immutable once the
// dataset is loaded; Superclass and Region are attached at most once, before
// the index is built.
type LandingRecord struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Year           int     `json:"year"`
	Mass           float64 `json:"mass"` // grams; 0 means unknown
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Classification string  `json:"classification"`
	Superclass     string  `json:"superclass,omitempty"`
	Region         string  `json:"region,omitempty"`
	Fall           string  `json:"fall,omitempty"` // "Fell" or "Found"
}

// HasMass reports whether the record carries a known, positive mass.
func (r LandingRecord) HasMass() bool { return r.Mass > 0 }

// Span is the inclusive [Min, Max] year range over which playback is defined.
type Span struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validate reports an error when the span is inverted.
func (s Span) Validate() error {
	if s.Min > s.Max {
		return fmt.Errorf("invalid span: min year %d is after max year %d", s.Min, s.Max)
	}
	return nil
}

// Contains reports whether year lies within the span.
func (s Span) Contains(year int) bool {
	return year >= s.Min && year <= s.Max
}

// Clamp pulls year into the span.
func (s Span) Clamp(year int) int {
	if year < s.Min {
		return s.Min
	}
	if year > s.Max {
		return s.Max
	}
	return year
}
