package region

import "github.com/couchcryptid/meteorite-playback/internal/domain"

// Annotate returns a copy of records in which every record without a region
// tag is tagged by loc. Records that already carry a tag keep it.
func Annotate(records []domain.LandingRecord, loc Locator) []domain.LandingRecord {
	out := make([]domain.LandingRecord, len(records))
	for i, r := range records {
		if r.Region == "" {
			r.Region = loc.Locate(r.Lat, r.Lon)
		}
		out[i] = r
	}
	return out
}
