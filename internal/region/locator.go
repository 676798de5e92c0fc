// Package region tags landing coordinates with the US state that contains them.
package region

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
	geojson "github.com/paulmach/go.geojson"
)

// Locator resolves a coordinate to a region tag. Implementations are pure:
// the same coordinate always yields the same tag.
type Locator interface {
	Locate(lat, lon float64) string
}

// BoundingBox is a lat/lon rectangle in degrees.
type BoundingBox struct {
	West, East, South, North float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// ContiguousUS bounds the lower 48 states.
var ContiguousUS = BoundingBox{West: -125.0011, East: -66.9326, South: 24.9493, North: 49.5904}

// DefaultExcluded lists state features dropped by LoadStates, as they fall
// outside ContiguousUS anyway.
var DefaultExcluded = []string{"Alaska", "Hawaii", "Puerto Rico"}

// NormalizeName turns a display name into a region tag: "New York" -> "new-york".
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// Canonical turns user input into the tag records carry: NonUSRegion in any
// case, otherwise the normalized state name. Blank input stays blank.
func Canonical(name string) string {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, domain.NonUSRegion) {
		return domain.NonUSRegion
	}
	return NormalizeName(name)
}

type point struct{ lon, lat float64 }

// polygon is an outer ring followed by zero or more holes.
type polygon struct {
	rings [][]point
	bbox  BoundingBox
}

type state struct {
	tag   string
	polys []polygon
	bbox  BoundingBox
}

// StateLocator tags points with the state polygon that contains them, or
// domain.NonUSRegion when none does.
type StateLocator struct {
	bounds BoundingBox
	states []state
}

// LoadStates reads a states FeatureCollection from path, dropping the
// DefaultExcluded features.
func LoadStates(path string) (*StateLocator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region boundaries: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse region boundaries %s: %w", path, err)
	}
	return NewStateLocator(fc, ContiguousUS, DefaultExcluded...)
}

// NewStateLocator builds a locator from Polygon and MultiPolygon features.
// Each feature's NAME (or name) property becomes its tag after NormalizeName.
// Features named in exclude and non-areal geometries are skipped.
func NewStateLocator(fc *geojson.FeatureCollection, bounds BoundingBox, exclude ...string) (*StateLocator, error) {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[NormalizeName(name)] = true
	}

	loc := &StateLocator{bounds: bounds}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		name := f.PropertyMustString("NAME", f.PropertyMustString("name"))
		tag := NormalizeName(name)
		if tag == "" || skip[tag] {
			continue
		}

		var polys []polygon
		switch {
		case f.Geometry.IsPolygon():
			polys = append(polys, newPolygon(f.Geometry.Polygon))
		case f.Geometry.IsMultiPolygon():
			for _, p := range f.Geometry.MultiPolygon {
				polys = append(polys, newPolygon(p))
			}
		default:
			continue
		}
		loc.states = append(loc.states, state{tag: tag, polys: polys, bbox: unionBBox(polys)})
	}

	if len(loc.states) == 0 {
		return nil, errors.New("region boundaries contain no polygon features")
	}
	return loc, nil
}

// Locate implements Locator. States are tested in feature order and the
// first containing state wins.
func (l *StateLocator) Locate(lat, lon float64) string {
	if !l.bounds.Contains(lat, lon) {
		return domain.NonUSRegion
	}
	pt := point{lon: lon, lat: lat}
	for i := range l.states {
		s := &l.states[i]
		if !s.bbox.Contains(lat, lon) {
			continue
		}
		for j := range s.polys {
			if pointInPolygon(pt, &s.polys[j]) {
				return s.tag
			}
		}
	}
	return domain.NonUSRegion
}

// States returns the tags of the loaded states in feature order.
func (l *StateLocator) States() []string {
	out := make([]string, len(l.states))
	for i := range l.states {
		out[i] = l.states[i].tag
	}
	return out
}

func newPolygon(coords [][][]float64) polygon {
	p := polygon{rings: make([][]point, 0, len(coords))}
	for _, ring := range coords {
		pts := make([]point, 0, len(ring))
		for _, c := range ring {
			if len(c) >= 2 {
				pts = append(pts, point{lon: c[0], lat: c[1]})
			}
		}
		p.rings = append(p.rings, pts)
	}
	if len(p.rings) > 0 {
		p.bbox = ringBBox(p.rings[0])
	}
	return p
}

// pointInPolygon is inside the outer ring and outside every hole.
func pointInPolygon(pt point, p *polygon) bool {
	if len(p.rings) == 0 || !p.bbox.Contains(pt.lat, pt.lon) {
		return false
	}
	if !pointInRing(pt, p.rings[0]) {
		return false
	}
	for _, hole := range p.rings[1:] {
		if pointInRing(pt, hole) {
			return false
		}
	}
	return true
}

// pointInRing is the even-odd ray casting test.
func pointInRing(pt point, ring []point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.lat > pt.lat) != (b.lat > pt.lat) &&
			pt.lon < (b.lon-a.lon)*(pt.lat-a.lat)/(b.lat-a.lat)+a.lon {
			inside = !inside
		}
	}
	return inside
}

func ringBBox(ring []point) BoundingBox {
	if len(ring) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{West: ring[0].lon, East: ring[0].lon, South: ring[0].lat, North: ring[0].lat}
	for _, p := range ring[1:] {
		b.West = min(b.West, p.lon)
		b.East = max(b.East, p.lon)
		b.South = min(b.South, p.lat)
		b.North = max(b.North, p.lat)
	}
	return b
}

func unionBBox(polys []polygon) BoundingBox {
	if len(polys) == 0 {
		return BoundingBox{}
	}
	b := polys[0].bbox
	for _, p := range polys[1:] {
		b.West = min(b.West, p.bbox.West)
		b.East = max(b.East, p.bbox.East)
		b.South = min(b.South, p.bbox.South)
		b.North = max(b.North, p.bbox.North)
	}
	return b
}
