package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
	geojson "github.com/paulmach/go.geojson"
)

// GeoJSONLoader reads a FeatureCollection of landing points whose properties
// carry the CSV columns. Point geometry fills in missing reclat/reclong.
type GeoJSONLoader struct {
	path   string
	logger *slog.Logger
}

// NewGeoJSONLoader creates a loader for the GeoJSON file at path.
func NewGeoJSONLoader(path string, logger *slog.Logger) *GeoJSONLoader {
	return &GeoJSONLoader{path: path, logger: logger}
}

func (l *GeoJSONLoader) Load(ctx context.Context) ([]domain.LandingRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, unavailable("read", l.path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, unavailable("parse", l.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable("load", l.path, err)
	}

	rows := make([]domain.RawLandingRow, 0, len(fc.Features))
	for _, f := range fc.Features {
		rows = append(rows, featureRow(f))
	}
	return parseRows(rows, l.path, l.logger), nil
}

func featureRow(f *geojson.Feature) domain.RawLandingRow {
	row := domain.RawLandingRow{
		Name:       property(f, "name"),
		ID:         property(f, "id"),
		NameType:   property(f, "nametype"),
		RecClass:   property(f, "recclass"),
		Mass:       property(f, "mass (g)", "mass"),
		Fall:       property(f, "fall"),
		Year:       property(f, "year"),
		RecLat:     property(f, "reclat"),
		RecLong:    property(f, "reclong"),
		Superclass: property(f, "superclass"),
		State:      property(f, "state"),
	}
	if row.ID == "" && f.ID != nil {
		row.ID = stringify(f.ID)
	}
	if (row.RecLat == "" || row.RecLong == "") && f.Geometry != nil && f.Geometry.IsPoint() && len(f.Geometry.Point) >= 2 {
		row.RecLong = strconv.FormatFloat(f.Geometry.Point[0], 'f', -1, 64)
		row.RecLat = strconv.FormatFloat(f.Geometry.Point[1], 'f', -1, 64)
	}
	return row
}

// property returns the first non-null property among keys as a string.
// d3-style exports keep every value a string; other tools emit numbers.
func property(f *geojson.Feature, keys ...string) string {
	for _, key := range keys {
		if v, ok := f.Properties[key]; ok && v != nil {
			return stringify(v)
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
