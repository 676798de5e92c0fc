package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// yearRe picks the first four-digit run out of timestamp-style year values,
// e.g. "01/01/1880 12:00:00 AM" -> "1880".
var yearRe = regexp.MustCompile(`\b(\d{4})\b`)

// ParseLanding converts a raw dataset row into a LandingRecord. It returns
// ErrInvalidYear or ErrMissingCoordinates (wrapped) for rows that cannot take
// part in playback.
func ParseLanding(row RawLandingRow) (LandingRecord, error) {
	year, ok := parseYear(row.Year)
	if !ok {
		return LandingRecord{}, fmt.Errorf("parse landing %q: %w: %q", row.Name, ErrInvalidYear, row.Year)
	}

	lat, latOK := parseFloat(row.RecLat)
	lon, lonOK := parseFloat(row.RecLong)
	if !latOK || !lonOK {
		return LandingRecord{}, fmt.Errorf("parse landing %q: %w", row.Name, ErrMissingCoordinates)
	}

	mass := parseFloatOrZero(row.Mass)
	if mass < 0 {
		mass = 0
	}

	id := strings.TrimSpace(row.ID)
	if id == "" {
		id = generateID(row.Name, year, lat, lon)
	}

	return LandingRecord{
		ID:             id,
		Name:           strings.TrimSpace(row.Name),
		Year:           year,
		Mass:           mass,
		Lat:            lat,
		Lon:            lon,
		Classification: strings.TrimSpace(row.RecClass),
		Superclass:     strings.TrimSpace(row.Superclass),
		Region:         strings.TrimSpace(row.State),
		Fall:           strings.TrimSpace(row.Fall),
	}, nil
}

// parseYear accepts plain integers, integral floats ("1880.0") and
// timestamp-style values.
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
		return int(f), true
	}
	if m := yearRe.FindStringSubmatch(s); len(m) == 2 {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	v, _ := parseFloat(s)
	return v
}

// generateID produces a deterministic ID for rows exported without one, so
// reloading the same dataset yields the same identifiers.
func generateID(name string, year int, lat, lon float64) string {
	input := fmt.Sprintf("%s|%d|%.4f|%.4f", strings.ToLower(strings.TrimSpace(name)), year, lat, lon)
	hash := sha256.Sum256([]byte(input))
	return "landing-" + hex.EncodeToString(hash[:8])
}
